// Package gorillaws implements connection.Transport on top of gorilla/websocket.
package gorillaws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
)

// DefaultDialer is the gorilla default dialer with compression enabled.
// Subprotocols are taken from the connection config on every dial.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

// closeWriteTimeout bounds the close frame write when Close gets a context
// without deadline.
const closeWriteTimeout = time.Second

type Connection struct {
	*connection.Base

	Dialer *gorilla.Dialer

	// connLock guards conn, which is nil before Connect and after Close.
	conn     *gorilla.Conn
	connLock sync.Mutex

	logger logger.Logger
}

var _ connection.Transport = (*Connection)(nil)

func New(cfg *connection.Config) *Connection {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Connection{
		Base:   connection.NewBase(cfg),
		Dialer: DefaultDialer,
		logger: log,
	}
}

// NewFunc returns a connection.NewFunc creating gorillaws transports for cfg.
func NewFunc(cfg *connection.Config) connection.NewFunc {
	return func(context.Context) (connection.Transport, error) {
		return New(cfg), nil
	}
}

// Connect dials the endpoint and starts the read loop. Ping frames are
// answered by gorilla's default ping handler.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.IsClosed() {
		return constants.ErrConnectionClosed
	}

	dialer := *c.Dialer
	dialer.Subprotocols = c.Config.Subprotocols()

	conn, res, err := dialer.DialContext(ctx, c.Config.URL.String(), c.Config.Header)
	if res != nil && res.Body != nil {
		defer res.Body.Close()
	}
	if err != nil {
		if res != nil {
			return fmt.Errorf("failed to dial %s: %w", c.Config.URL.Redacted(), connection.HandshakeError(err, res.StatusCode))
		}
		return fmt.Errorf("failed to dial %s: %w", c.Config.URL.Redacted(), err)
	}

	if p := conn.Subprotocol(); p != "" && p != c.Config.Codec.Name() {
		c.logger.Warn("server selected an unexpected subprotocol", "want", c.Config.Codec.Name(), "got", p)
	}

	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()

	c.logger.Debug("websocket connected", "url", c.Config.URL.Redacted(), "subprotocol", conn.Subprotocol())

	go c.readLoop(conn)

	return nil
}

func (c *Connection) readLoop(conn *gorilla.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleError(err)
			c.release(conn)
			return
		}
		if !c.Deliver(data) {
			return
		}
	}
}

func (c *Connection) handleError(err error) {
	switch {
	case errors.Is(err, net.ErrClosed):
		// Closed locally.
	case gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway):
		c.logger.Info("websocket closed by server", "error", err)
	default:
		c.logger.Warn("websocket read failed", "error", err)
	}
	c.CloseWithError(err)
}

func (c *Connection) release(conn *gorilla.Conn) {
	c.connLock.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connLock.Unlock()

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Debug("failed to close websocket", "error", err)
	}
}

// Close sends a close frame and closes the underlying connection. The close
// frame write is bounded by the deadline of ctx.
func (c *Connection) Close(ctx context.Context) error {
	c.CloseWithError(constants.ErrConnectionClosed)

	c.connLock.Lock()
	conn := c.conn
	c.conn = nil
	c.connLock.Unlock()

	if conn == nil {
		return nil
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(closeWriteTimeout)
	}
	msg := gorilla.FormatCloseMessage(constants.CloseMessageCode, "")
	if err := conn.WriteControl(gorilla.CloseMessage, msg, deadline); err != nil && !errors.Is(err, gorilla.ErrCloseSent) {
		c.logger.Debug("failed to write close message", "error", err)
	}

	return conn.Close()
}
