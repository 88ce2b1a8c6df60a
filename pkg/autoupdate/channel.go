// Package autoupdate keeps a store.Store in sync with the server.
//
// The server pushes every change of a record the client may see as an
// envelope over a WebSocket. A status code of 200 carries the new record and
// is injected into the store, 404 evicts the record. There are no
// acknowledgements: the last envelope for a record wins.
//
// When the connection drops, the Channel reconnects following its Retryer
// and returns to Connected, or gives up and stays Disconnected.
package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/store"
)

type Channel struct {
	// NewFunc creates the transport for the initial connection and for
	// every reconnect.
	NewFunc connection.NewFunc

	store   *store.Store
	codec   codec.Codec
	retryer Retryer
	logger  logger.Logger

	transport   connection.Transport
	transportMu sync.Mutex

	state State
	// stateCh is closed and replaced on every transition.
	stateCh chan struct{}
	err     error
	running bool
	hooks   []func(from, to State)
	stateMu sync.Mutex

	onReconnect func(ctx context.Context) error

	// ctx is canceled by Close and stops the loop and pending dials.
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// New creates a disconnected Channel feeding st. A nil retryer means
// DefaultRetryer, a nil log discards.
func New(newFunc connection.NewFunc, st *store.Store, c codec.Codec, retryer Retryer, log logger.Logger) *Channel {
	if retryer == nil {
		retryer = DefaultRetryer()
	}
	if log == nil {
		log = logger.Discard()
	}
	if c == nil {
		c = codec.JSON()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		NewFunc: newFunc,
		store:   st,
		codec:   c,
		retryer: retryer,
		logger:  log,
		state:   StateDisconnected,
		stateCh: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnStateChange registers fn to be called after every state transition.
// fn runs on the goroutine that caused the transition and must not block.
func (c *Channel) OnStateChange(fn func(from, to State)) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// OnReconnect registers fn to be run after every successful reconnect,
// before the channel reports Connected again. Envelopes pushed while the
// connection was down are lost, so this is the place to reload data.
// An error from fn counts as a failed reconnect.
func (c *Channel) OnReconnect(fn func(ctx context.Context) error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.onReconnect = fn
}

func (c *Channel) transitionTo(newState State) error {
	c.stateMu.Lock()
	from := c.state
	if err := from.validateTransitionTo(newState); err != nil {
		c.stateMu.Unlock()
		return err
	}
	c.state = newState
	close(c.stateCh)
	c.stateCh = make(chan struct{})
	hooks := append(([]func(from, to State))(nil), c.hooks...)
	c.stateMu.Unlock()

	c.logger.Debug("autoupdate state transitioned", "from", from, "to", newState)
	for _, fn := range hooks {
		fn(from, newState)
	}
	return nil
}

func (c *Channel) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Err returns the error that made the channel give up reconnecting.
func (c *Channel) Err() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.err
}

// WaitState blocks until the channel is in state s or ctx is done.
func (c *Channel) WaitState(ctx context.Context, s State) error {
	for {
		c.stateMu.Lock()
		current, changed := c.state, c.stateCh
		c.stateMu.Unlock()

		if current == s {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for state %v, still %v: %w", s, current, ctx.Err())
		case <-changed:
		}
	}
}

// Connect establishes the connection and starts receiving envelopes.
//
// An error from the initial connection is returned to the caller and no
// reconnect is attempted: it usually means misconfiguration or a missing
// login, which retrying does not fix. Connect may be called again once the
// channel is Disconnected.
func (c *Channel) Connect(ctx context.Context) error {
	if err := c.transitionTo(StateConnecting); err != nil {
		if c.State().Final() {
			return constants.ErrClosed
		}
		return err
	}

	if err := c.dial(ctx); err != nil {
		if stateErr := c.transitionTo(StateDisconnected); stateErr != nil && c.ctx.Err() == nil {
			c.logger.Error("BUG: failed to transition to disconnected state", "error", stateErr)
		}
		return fmt.Errorf("failed to connect autoupdate channel: %w", err)
	}

	c.stateMu.Lock()
	c.err = nil
	start := !c.running
	if start {
		c.running = true
		c.loopDone = make(chan struct{})
	}
	loopDone := c.loopDone
	c.stateMu.Unlock()

	if err := c.transitionTo(StateConnected); err != nil {
		// Close won the race and may have looked for the transport and the
		// loop before either existed.
		c.abandonConnect(start, loopDone)
		return constants.ErrClosed
	}

	if start {
		go c.run(loopDone)
	}
	return nil
}

func (c *Channel) dial(ctx context.Context) error {
	// Close must be able to abort a pending dial.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	t, err := c.NewFunc(ctx)
	if err != nil {
		return err
	}
	if err := t.Connect(ctx); err != nil {
		return err
	}

	c.transportMu.Lock()
	c.transport = t
	c.transportMu.Unlock()
	return nil
}

// abandonConnect releases what a Connect that lost against Close has set up.
func (c *Channel) abandonConnect(started bool, loopDone chan struct{}) {
	if t := c.currentTransport(); t != nil {
		if err := t.Close(context.Background()); err != nil && !errors.Is(err, constants.ErrConnectionClosed) {
			c.logger.Debug("failed to release abandoned connection", "error", err)
		}
	}
	if started {
		c.stateMu.Lock()
		c.running = false
		c.stateMu.Unlock()
		close(loopDone)
	}
}

func (c *Channel) currentTransport() connection.Transport {
	c.transportMu.Lock()
	defer c.transportMu.Unlock()
	return c.transport
}

// run receives envelopes for the lifetime of the connection, reconnecting as
// needed. running is reset by the give-up path only: on Close, done is what
// Close waits for.
func (c *Channel) run(done chan struct{}) {
	defer close(done)

	for {
		t := c.currentTransport()
		c.consume(t)

		if c.ctx.Err() != nil {
			return
		}

		c.logger.Warn("autoupdate connection lost", "error", t.Err())
		if err := t.Close(context.Background()); err != nil {
			c.logger.Debug("failed to release lost connection", "error", err)
		}
		if err := c.transitionTo(StateConnecting); err != nil {
			// Closing.
			return
		}

		if !c.reconnect(t.Err()) {
			return
		}
	}
}

// consume dispatches frames until the transport is gone or the channel closes.
func (c *Channel) consume(t connection.Transport) {
	for {
		select {
		case frame := <-t.Messages():
			c.dispatch(frame)
		case <-t.Done():
			// Frames received before the drop are still valid.
			for {
				select {
				case frame := <-t.Messages():
					c.dispatch(frame)
				default:
					return
				}
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// reconnect retries until it succeeds, the retryer gives up or the channel
// closes. It reports whether the loop should continue.
func (c *Channel) reconnect(lastErr error) bool {
	for attempt := 0; ; attempt++ {
		delay, ok := c.retryer.NextDelay(attempt, lastErr)
		if !ok {
			c.logger.Error("autoupdate channel gave up reconnecting", "attempts", attempt, "error", lastErr)
			c.stateMu.Lock()
			c.err = lastErr
			c.running = false
			c.stateMu.Unlock()
			if err := c.transitionTo(StateDisconnected); err != nil {
				c.logger.Debug("not transitioning to disconnected", "error", err)
			}
			return false
		}

		c.logger.Debug("autoupdate channel waiting to reconnect", "attempt", attempt, "delay", delay)
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(delay):
		}

		err := c.dial(c.ctx)
		if err == nil {
			err = c.resync()
		}
		if err != nil {
			if c.ctx.Err() != nil {
				return false
			}
			c.logger.Warn("autoupdate channel failed to reconnect", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}

		c.retryer.Reset()
		if err := c.transitionTo(StateConnected); err != nil {
			return false
		}
		c.logger.Info("autoupdate channel reconnected", "attempts", attempt+1)
		return true
	}
}

func (c *Channel) resync() error {
	c.stateMu.Lock()
	fn := c.onReconnect
	c.stateMu.Unlock()

	if fn == nil {
		return nil
	}
	if err := fn(c.ctx); err != nil {
		if t := c.currentTransport(); t != nil {
			_ = t.Close(context.Background())
		}
		return fmt.Errorf("failed to resync after reconnect: %w", err)
	}
	return nil
}

// Close stops reconnecting and closes the connection. The store is left
// untouched. The context bounds the close handshake.
func (c *Channel) Close(ctx context.Context) error {
	if err := c.transitionTo(StateClosing); err != nil {
		return fmt.Errorf("%w: %v", constants.ErrClosed, err)
	}
	defer func() {
		if err := c.transitionTo(StateClosed); err != nil {
			c.logger.Error("BUG: failed to transition to closed state", "error", err)
		}
	}()

	c.cancel()

	c.stateMu.Lock()
	running, loopDone := c.running, c.loopDone
	c.stateMu.Unlock()
	if running {
		<-loopDone
	}

	t := c.currentTransport()
	if t == nil {
		return nil
	}
	if err := t.Close(ctx); err != nil && !errors.Is(err, constants.ErrConnectionClosed) {
		return err
	}
	return nil
}
