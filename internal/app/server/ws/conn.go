package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const maxMessageSize = 512 * 1024

// WebSocket wraps a gorilla connection with write deadlines and a
// ping/pong liveness loop. A peer that stops answering pings within
// pongWait is treated exactly like an explicit disconnect: the read
// loop fails and the gateway tears the session down.
type WebSocket struct {
	*websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
	pongWait time.Duration
}

func NewWebSocket(parent context.Context, log *slog.Logger, conn *websocket.Conn, pongWait time.Duration) *WebSocket {
	ctx, cancel := context.WithCancel(parent)
	return &WebSocket{Conn: conn, ctx: ctx, cancel: cancel, log: log, pongWait: pongWait}
}

func (w *WebSocket) WriteMessage(data []byte) error {
	w.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

// StartHeartbeat pings on the given interval; the interval must be
// shorter than pongWait. Pings go through WriteControl, which is the
// only write gorilla allows concurrently with the data write loop.
func (w *WebSocket) StartHeartbeat(interval time.Duration) {
	w.Conn.SetReadDeadline(time.Now().Add(w.pongWait))
	w.Conn.SetPongHandler(func(string) error {
		return w.Conn.SetReadDeadline(time.Now().Add(w.pongWait))
	})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := w.Conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					w.Close()
					return
				}
			}
		}
	}()
}

func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	defer w.Close()
	w.Conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				w.log.Warn("ws - read loop - unexpected close", "err", err)
			}
			return
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}

func (w *WebSocket) Close() {
	w.cancel()
	_ = w.Conn.Close()
}
