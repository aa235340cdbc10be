package wstransport

import (
	"context"
	"sync"
)

// Fake is a deterministic WebSocketClient test double: Open succeeds
// immediately (or returns OpenErr once), Send records every frame, and the
// test can drive inbound messages/close via Deliver/Break.
type Fake struct {
	OpenErr error

	mu        sync.Mutex
	onMessage func(text string)
	onClose   func(err error)
	Sent      []string
	closed    bool
	opens     int
}

// Open implements WebSocketClient.
func (f *Fake) Open(ctx context.Context, url string, onMessage func(text string), onClose func(err error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.OpenErr != nil {
		err := f.OpenErr
		f.OpenErr = nil
		return err
	}
	f.onMessage = onMessage
	f.onClose = onClose
	f.closed = false
	return nil
}

// Send implements WebSocketClient.
func (f *Fake) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, text)
	return nil
}

// Close implements WebSocketClient, invoking the registered onClose exactly
// once (mirroring RealClient's reader-goroutine contract).
func (f *Fake) Close() error {
	f.mu.Lock()
	already := f.closed
	f.closed = true
	onClose := f.onClose
	f.mu.Unlock()
	if !already && onClose != nil {
		onClose(nil)
	}
	return nil
}

// Deliver synchronously invokes the registered onMessage handler, as if the
// server had sent text.
func (f *Fake) Deliver(text string) {
	f.mu.Lock()
	onMessage := f.onMessage
	f.mu.Unlock()
	if onMessage != nil {
		onMessage(text)
	}
}

// Break simulates an unexpected disconnect (server-initiated close).
func (f *Fake) Break() {
	f.Close()
}

// Opens reports how many times Open has been called.
func (f *Fake) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}
