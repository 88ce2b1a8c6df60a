// Package gws implements connection.Transport on top of lxzan/gws.
//
// It is an alternative to gorillaws for deployments that prefer gws'
// lower allocation profile. Both behave the same towards the caller.
package gws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lxzan/gws"

	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
)

const defaultHandshakeTimeout = 10 * time.Second

type Connection struct {
	*connection.Base

	conn     *gws.Conn
	connLock sync.Mutex

	logger logger.Logger
}

var _ connection.Transport = (*Connection)(nil)

type websocketHandler struct {
	gws.BuiltinEventHandler
	conn *Connection
}

func (h *websocketHandler) OnClose(socket *gws.Conn, err error) {
	var ce *gws.CloseError
	switch {
	case errors.As(err, &ce) && (ce.Code == constants.CloseMessageCode || ce.Code == constants.CloseGoingAwayCode):
		h.conn.logger.Info("websocket closed by server", "code", ce.Code)
	case h.conn.IsClosed():
		// Closed locally.
	default:
		h.conn.logger.Warn("websocket read failed", "error", err)
	}
	if err == nil {
		err = constants.ErrConnectionClosed
	}
	h.conn.CloseWithError(err)
}

func (h *websocketHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *websocketHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	// The message buffer is pooled, so the frame must be copied out.
	data := append([]byte(nil), message.Bytes()...)
	h.conn.Deliver(data)
}

func New(cfg *connection.Config) *Connection {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Connection{
		Base:   connection.NewBase(cfg),
		logger: log,
	}
}

// NewFunc returns a connection.NewFunc creating gws transports for cfg.
func NewFunc(cfg *connection.Config) connection.NewFunc {
	return func(context.Context) (connection.Transport, error) {
		return New(cfg), nil
	}
}

// Connect dials the endpoint and starts the read loop. gws has no context
// aware dial, so the deadline of ctx is used as handshake timeout.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.IsClosed() {
		return constants.ErrConnectionClosed
	}

	header := http.Header{}
	for k, v := range c.Config.Header {
		header[k] = append([]string(nil), v...)
	}
	for _, p := range c.Config.Subprotocols() {
		header.Add("Sec-WebSocket-Protocol", p)
	}

	timeout := defaultHandshakeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	option := &gws.ClientOption{
		Addr:             c.Config.URL.String(),
		RequestHeader:    header,
		HandshakeTimeout: timeout,
		PermessageDeflate: gws.PermessageDeflate{
			Enabled: true,
		},
	}

	conn, res, err := gws.NewClient(&websocketHandler{conn: c}, option)
	if err != nil {
		if res != nil {
			return fmt.Errorf("failed to dial %s: %w", c.Config.URL.Redacted(), connection.HandshakeError(err, res.StatusCode))
		}
		return fmt.Errorf("failed to dial %s: %w", c.Config.URL.Redacted(), err)
	}

	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()

	c.logger.Debug("websocket connected", "url", c.Config.URL.Redacted())

	go conn.ReadLoop()

	return nil
}

func (c *Connection) Close(ctx context.Context) error {
	c.CloseWithError(constants.ErrConnectionClosed)

	c.connLock.Lock()
	conn := c.conn
	c.conn = nil
	c.connLock.Unlock()

	if conn == nil {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	conn.WriteClose(constants.CloseMessageCode, nil)

	if err := conn.NetConn().Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
