// Package fakeserver provides a fake OpenSlides server for tests.
//
// It serves the REST endpoints under /rest/ and /apps/, and the autoupdate
// WebSocket under /ws/. Every successful write through REST is pushed to all
// connected WebSocket clients, like the real server does.
//
// The REST API is routed with gorilla/mux and the WebSocket endpoint is
// implemented with the gws library. Failures can be injected per request
// path, and connected sockets can be dropped to exercise reconnection.
package fakeserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lxzan/gws"

	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
)

const (
	// SessionCookie is the name of the cookie identifying a logged in client.
	SessionCookie = "OpenSlidesSessionID"

	// DefaultVersion is the server version reported by /apps/core/version/.
	DefaultVersion = "3.4.0"

	// LoginFailedDetail is the detail the server sends for bad credentials.
	LoginFailedDetail = "Username or password is not correct."
)

// TokenSecret signs the access tokens handed out on login.
var TokenSecret = []byte("fakeserver")

// Failure describes an injected REST failure.
type Failure struct {
	// Method matches the HTTP method; empty matches every method.
	Method string
	// PathPrefix matches the request path.
	PathPrefix string
	StatusCode int
	Detail     string
	// Times is how often the failure triggers; 0 means always.
	Times int
}

type account struct {
	user     *models.User
	password string
}

type Server struct {
	mu       sync.RWMutex
	accounts map[string]*account
	sessions map[string]*models.User
	records  map[models.Key]models.Model
	nextID   map[models.Collection]int
	failures []*Failure
	conns    map[*gws.Conn]codec.Codec

	// Version is reported by /apps/core/version/.
	Version string

	upgrader *gws.Upgrader
	http     *httptest.Server
	logger   logger.Logger
}

type Option func(*Server)

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// New starts a fake server on a random local port. It knows a single
// account, admin with password admin and id 1.
func New(opts ...Option) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		sessions: make(map[string]*models.User),
		records:  make(map[models.Key]models.Model),
		nextID:   make(map[models.Collection]int),
		conns:    make(map[*gws.Conn]codec.Codec),
		Version:  DefaultVersion,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = gws.NewUpgrader(&handler{server: s}, &gws.ServerOption{
		SubProtocols: []string{codec.NameJSON, codec.NameCBOR},
		PermessageDeflate: gws.PermessageDeflate{
			Enabled: true,
		},
	})

	s.AddUser(&models.User{
		ID:         models.IntID(1),
		Username:   "admin",
		FirstName:  "Administrator",
		IsActive:   true,
		IsPresent:  true,
		GroupsID:   models.IntIDs(2),
		VoteWeight: models.DecimalFromInt(1),
	}, "admin")
	s.Seed(&models.Group{ID: models.IntID(2), Name: "Admin"})

	s.http = httptest.NewServer(s.router())

	return s
}

// URL returns the base URL, e.g. "http://127.0.0.1:41235".
func (s *Server) URL() *url.URL {
	u, err := url.Parse(s.http.URL)
	if err != nil {
		panic(err)
	}
	return u
}

// Close drops all sockets and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.http.Close()
}

// AddUser registers an account and stores its user record.
func (s *Server) AddUser(u *models.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[u.Username] = &account{user: u, password: password}
	s.putLocked(u)
}

// Login opens a session for the account without going through REST and
// returns its cookie.
func (s *Server) Login(username string) (*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", username)
	}
	sessionID := uuid.Must(uuid.NewV4()).String()
	s.sessions[sessionID] = acc.user
	return &http.Cookie{Name: SessionCookie, Value: sessionID, Path: "/"}, nil
}

// WebSocketURL returns the autoupdate endpoint.
func (s *Server) WebSocketURL() *url.URL {
	return connection.WebSocketURL(s.URL(), "")
}

// Seed stores records without pushing them.
func (s *Server) Seed(ms ...models.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range ms {
		s.putLocked(m)
	}
}

// Record returns the stored record for k.
func (s *Server) Record(k models.Key) (models.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.records[k]
	return m, ok
}

// Inject registers a failure for matching REST requests.
func (s *Server) Inject(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, &f)
}

// Push stores the records and sends them to every connected client.
func (s *Server) Push(ms ...models.Model) {
	s.Seed(ms...)
	for _, m := range ms {
		s.broadcast(func(c codec.Codec) (connection.Envelope, error) {
			return connection.NewUpsert(c, m)
		})
	}
}

// PushDelete removes the records and announces their deletion.
func (s *Server) PushDelete(keys ...models.Key) {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.records, k)
	}
	s.mu.Unlock()

	for _, k := range keys {
		s.broadcast(func(codec.Codec) (connection.Envelope, error) {
			return connection.NewDelete(k), nil
		})
	}
}

// PushRaw sends frame as is to every connected client.
func (s *Server) PushRaw(frame []byte) {
	for conn, c := range s.sockets() {
		s.write(conn, c, frame)
	}
}

// Connections returns the number of connected WebSocket clients.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// WaitConnections blocks until n clients are connected.
func (s *Server) WaitConnections(ctx context.Context, n int) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.Connections() == n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DropConnections closes the network connection of every client without
// a close frame, the way a crashing server or a broken network would.
func (s *Server) DropConnections() {
	for conn := range s.sockets() {
		if err := conn.NetConn().Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("failed to drop connection", "error", err)
		}
	}
}

// GoAway closes every autoupdate connection with a going-away close frame,
// the way a restarting server does.
func (s *Server) GoAway() {
	for conn := range s.sockets() {
		if err := conn.WriteClose(constants.CloseGoingAwayCode, nil); err != nil {
			s.logger.Debug("failed to send going away", "error", err)
		}
	}
}

func (s *Server) sockets() map[*gws.Conn]codec.Codec {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[*gws.Conn]codec.Codec, len(s.conns))
	for conn, c := range s.conns {
		out[conn] = c
	}
	return out
}

func (s *Server) broadcast(build func(codec.Codec) (connection.Envelope, error)) {
	for conn, c := range s.sockets() {
		env, err := build(c)
		if err != nil {
			s.logger.Error("failed to build envelope", "error", err)
			continue
		}
		frame, err := c.Marshal(env)
		if err != nil {
			s.logger.Error("failed to encode envelope", "error", err)
			continue
		}
		s.write(conn, c, frame)
	}
}

func (s *Server) write(conn *gws.Conn, c codec.Codec, frame []byte) {
	opcode := gws.OpcodeText
	if c.Name() == codec.NameCBOR {
		opcode = gws.OpcodeBinary
	}
	if err := conn.WriteMessage(opcode, frame); err != nil {
		s.logger.Debug("failed to write frame", "error", err)
	}
}

func (s *Server) putLocked(m models.Model) {
	k := models.KeyOf(m)
	s.records[k] = m
	if n, ok := k.ID.Int(); ok && n > s.nextID[k.Collection] {
		s.nextID[k.Collection] = n
	}
}

func (s *Server) failure(r *http.Request) *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.failures {
		if f.Method != "" && f.Method != r.Method {
			continue
		}
		if !strings.HasPrefix(r.URL.Path, f.PathPrefix) {
			continue
		}
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
			}
		}
		return f
	}
	return nil
}

type handler struct {
	gws.BuiltinEventHandler
	server *Server
}

func (h *handler) OnClose(socket *gws.Conn, err error) {
	h.server.mu.Lock()
	delete(h.server.conns, socket)
	h.server.mu.Unlock()
	h.server.logger.Debug("websocket client disconnected", "error", err)
}

func (h *handler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	// Clients never send anything on the autoupdate channel.
	h.server.logger.Debug("ignoring client frame", "size", len(message.Bytes()))
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); !ok {
		writeDetail(w, http.StatusForbidden, "You are not authenticated.")
		return
	}

	c := codec.JSON()
	for _, p := range strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",") {
		if strings.TrimSpace(p) == codec.NameCBOR {
			c = codec.CBOR()
		}
	}

	socket, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.conns[socket] = c
	s.mu.Unlock()
	s.logger.Debug("websocket client connected", "codec", c.Name())

	go socket.ReadLoop()
}

func (s *Server) session(r *http.Request) (*models.User, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.sessions[cookie.Value]
	return u, ok
}
