// Package connection defines the transport the autoupdate channel runs over
// and the envelope format carried on it.
//
// A Transport is good for a single connection. Once it is closed, locally or
// by the server, a new one must be created; see NewFunc.
package connection

import (
	"context"
	"sync"
)

type Transport interface {
	// Connect dials the server and starts delivering frames on Messages.
	Connect(ctx context.Context) error
	// Messages delivers the raw frames in the order they were received.
	Messages() <-chan []byte
	// Done is closed once the connection is gone.
	Done() <-chan struct{}
	// Err reports why Done was closed.
	Err() error
	IsClosed() bool
	Close(ctx context.Context) error
}

// NewFunc creates a fresh, unconnected Transport.
type NewFunc func(ctx context.Context) (Transport, error)

// Base carries the state shared by the Transport implementations.
type Base struct {
	Config *Config

	messages chan []byte
	done     chan struct{}
	doneOnce sync.Once

	errMu sync.Mutex
	err   error
}

func NewBase(cfg *Config) *Base {
	size := cfg.MessageBuffer
	if size <= 0 {
		size = DefaultMessageBuffer
	}
	return &Base{
		Config:   cfg,
		messages: make(chan []byte, size),
		done:     make(chan struct{}),
	}
}

func (b *Base) Messages() <-chan []byte {
	return b.messages
}

func (b *Base) Done() <-chan struct{} {
	return b.done
}

func (b *Base) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

func (b *Base) IsClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Deliver hands a frame to the consumer. It blocks while the buffer is full
// and returns false if the connection went away in the meantime.
func (b *Base) Deliver(data []byte) bool {
	select {
	case b.messages <- data:
		return true
	case <-b.done:
		return false
	}
}

// CloseWithError marks the connection as gone. Only the first error is kept.
func (b *Base) CloseWithError(err error) {
	b.doneOnce.Do(func() {
		b.errMu.Lock()
		b.err = err
		b.errMu.Unlock()
		close(b.done)
	})
}
