package ws

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull reports a slow consumer whose bounded outbound queue
// overflowed. The policy is disconnect-and-force-reconnect: the client
// is closed and recovers missed messages through resync, so delivery
// is never silently reordered.
var ErrQueueFull = errors.New("outbound queue full")

// RuntimeClient decouples delivery from the socket write: frames are
// queued on a bounded channel and drained by a single write loop,
// which keeps per-connection writes in enqueue order.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	connID string
	userID string

	mu    sync.Mutex
	rooms map[string]struct{}

	out  chan []byte
	once sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	connID, userID string,
	queueSize int,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		connID: connID,
		userID: userID,
		rooms:  make(map[string]struct{}),
		out:    make(chan []byte, queueSize),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ConnID() string { return c.connID }
func (c *RuntimeClient) UserID() string { return c.userID }

func (c *RuntimeClient) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (c *RuntimeClient) AddRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *RuntimeClient) RemoveRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// Send never blocks on a slow socket: a full queue closes the whole
// connection instead of stalling the caller or skipping frames.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return errors.New("client closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		c.Close()
		return ErrQueueFull
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				return
			}
		}
	}
}
