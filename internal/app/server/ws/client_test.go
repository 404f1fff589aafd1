package ws_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shjroemon/social-network-be/internal/app/server/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair upgrades a loopback connection and returns both ends.
func dialPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
	}
	t.Cleanup(func() { server.Close() })
	return server, client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientWritesFramesInOrder(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	sock := ws.NewWebSocket(context.Background(), testLogger(), serverConn, time.Minute)
	c := ws.NewClient(context.Background(), sock, uuid.NewString(), uuid.NewString(), 64)
	defer c.Close()

	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, c.Send(context.Background(), []byte(fmt.Sprintf("frame-%d", i))))
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < n; i++ {
		_, data, err := clientConn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("frame-%d", i), string(data))
	}
}

func TestClientOverflowClosesConnection(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	sock := ws.NewWebSocket(context.Background(), testLogger(), serverConn, time.Minute)
	c := ws.NewClient(context.Background(), sock, uuid.NewString(), uuid.NewString(), 1)

	// The peer never reads, so the write loop eventually blocks on the
	// socket and the one-slot queue overflows.
	frame := bytes.Repeat([]byte("x"), 256*1024)
	var overflow error
	for i := 0; i < 2000; i++ {
		if err := c.Send(context.Background(), frame); err != nil {
			overflow = err
			break
		}
	}
	require.ErrorIs(t, overflow, ws.ErrQueueFull)

	// Overflow tears the whole session down.
	err := c.Send(context.Background(), []byte("after"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ws.ErrQueueFull))

	clientConn.SetReadDeadline(time.Now().Add(15 * time.Second))
	for {
		if _, _, err := clientConn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestHeartbeatConcurrentWithWrites(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	sock := ws.NewWebSocket(context.Background(), testLogger(), serverConn, time.Minute)
	c := ws.NewClient(context.Background(), sock, uuid.NewString(), uuid.NewString(), 64)
	defer c.Close()

	// The peer reads continuously; gorilla answers pings from inside
	// its read loop.
	const n = 200
	got := make(chan string, n)
	go func() {
		clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, data, err := clientConn.ReadMessage()
			if err != nil {
				close(got)
				return
			}
			got <- string(data)
		}
	}()

	// Pings fire constantly while the write loop streams data frames.
	sock.StartHeartbeat(time.Millisecond)
	for i := 0; i < n; i++ {
		require.NoError(t, c.Send(context.Background(), []byte(fmt.Sprintf("frame-%d", i))))
		time.Sleep(100 * time.Microsecond)
	}

	for i := 0; i < n; i++ {
		select {
		case frame, ok := <-got:
			require.True(t, ok, "peer read loop ended early at frame %d", i)
			assert.Equal(t, fmt.Sprintf("frame-%d", i), frame)
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %d never arrived", i)
		}
	}
}

func TestClientRoomIndex(t *testing.T) {
	serverConn, _ := dialPair(t)
	sock := ws.NewWebSocket(context.Background(), testLogger(), serverConn, time.Minute)
	c := ws.NewClient(context.Background(), sock, uuid.NewString(), uuid.NewString(), 8)
	defer c.Close()

	assert.Empty(t, c.Rooms())
	c.AddRoom("a")
	c.AddRoom("b")
	c.AddRoom("a")
	assert.ElementsMatch(t, []string{"a", "b"}, c.Rooms())
	c.RemoveRoom("a")
	assert.Equal(t, []string{"b"}, c.Rooms())
}

func TestReadLoopStopsWhenPeerCloses(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	sock := ws.NewWebSocket(context.Background(), testLogger(), serverConn, time.Minute)

	var got [][]byte
	done := make(chan struct{})
	go func() {
		defer close(done)
		sock.ReadLoop(func(data []byte) {
			got = append(got, append([]byte(nil), data...))
		})
	}()

	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte("one")))
	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte("two")))
	require.NoError(t, clientConn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second)))
	clientConn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop after peer close")
	}
	require.Len(t, got, 2)
	assert.Equal(t, "one", string(got[0]))
	assert.Equal(t, "two", string(got[1]))
}
