package autoupdate

import (
	"context"
	"errors"
	"sync"

	"github.com/openslides/openslides.go/pkg/connection"
)

var errDropped = errors.New("connection dropped")

// mockTransport is an in-memory connection.Transport.
type mockTransport struct {
	*connection.Base
	connectErr error
	// gate, when set, holds Connect until it is closed. The context is not
	// consulted once Connect has passed the gate.
	gate   chan struct{}
	closed bool
	mu     sync.Mutex
}

func (m *mockTransport) Connect(ctx context.Context) error {
	if m.gate != nil {
		<-m.gate
		return m.connectErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.connectErr
}

func (m *mockTransport) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockTransport) Close(context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.CloseWithError(errors.New("closed locally"))
	return nil
}

func (m *mockTransport) send(frame string) {
	m.Deliver([]byte(frame))
}

func (m *mockTransport) drop() {
	m.CloseWithError(errDropped)
}

// mockDialer hands out transports. While failing is set, every transport
// refuses to connect. While gate is set, every transport blocks in Connect
// until the gate is closed.
type mockDialer struct {
	mu         sync.Mutex
	failing    error
	gate       chan struct{}
	transports []*mockTransport
	dialed     chan *mockTransport
}

func newMockDialer() *mockDialer {
	return &mockDialer{dialed: make(chan *mockTransport, 16)}
}

func (d *mockDialer) setFailing(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing = err
}

func (d *mockDialer) setGate(gate chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = gate
}

func (d *mockDialer) newFunc() connection.NewFunc {
	return func(context.Context) (connection.Transport, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		t := &mockTransport{
			Base:       connection.NewBase(&connection.Config{}),
			connectErr: d.failing,
			gate:       d.gate,
		}
		if d.failing == nil {
			d.transports = append(d.transports, t)
			d.dialed <- t
		}
		return t, nil
	}
}
