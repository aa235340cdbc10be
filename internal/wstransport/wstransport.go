// Package wstransport defines the vault core's WebSocket transport contract
// (§6) and a production implementation over gorilla/websocket, grounded on
// the teacher's connection-handling idiom (serialized writes, one reader
// goroutine) in its main broker loop.
package wstransport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketClient is the injected WebSocket transport collaborator. All
// callbacks may fire on arbitrary goroutines; implementations must
// internally serialize writes.
type WebSocketClient interface {
	Open(ctx context.Context, url string, onMessage func(text string), onClose func(err error)) error
	Send(text string) error
	Close() error
}

// RealClient dials a real WebSocket endpoint using gorilla/websocket,
// serializing writes behind a mutex and running a single reader goroutine
// per connection.
type RealClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewRealClient constructs an unconnected RealClient; call Open to dial.
func NewRealClient() *RealClient {
	return &RealClient{}
}

// Open dials url and starts the reader loop, invoking onMessage for each
// inbound text frame and onClose exactly once when the connection ends.
func (c *RealClient) Open(ctx context.Context, url string, onMessage func(text string), onClose func(err error)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go func() {
		var closeErr error
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				closeErr = err
				break
			}
			if msgType == websocket.TextMessage {
				onMessage(string(data))
			}
		}
		if onClose != nil {
			onClose(closeErr)
		}
	}()

	return nil
}

// Send writes a single text frame, serialized against concurrent senders —
// gorilla/websocket connections are not safe for concurrent writers.
func (c *RealClient) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close terminates the underlying connection.
func (c *RealClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
