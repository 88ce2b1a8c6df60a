package openslides

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/Masterminds/semver"

	"github.com/openslides/openslides.go/httpclient"
	"github.com/openslides/openslides.go/pkg/autoupdate"
	"github.com/openslides/openslides.go/pkg/config"
	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/connection/gorillaws"
	"github.com/openslides/openslides.go/pkg/connection/gws"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/repository"
	"github.com/openslides/openslides.go/pkg/store"
	"github.com/openslides/openslides.go/pkg/viewmodels"
)

// Session is one login to an OpenSlides server together with the mirror of
// everything that login may see.
//
// The mirror exists between Login and Logout. Accessors return nil outside
// of that window.
type Session struct {
	cfg    *config.Config
	client *httpclient.Client
	logger logger.Logger

	direct       bool
	storeOptions []store.Option
	// ownsLogger is set when the logger was built from the configuration.
	ownsLogger bool

	mu      sync.RWMutex
	store   *store.Store
	channel *autoupdate.Channel
	whoAmI  *httpclient.WhoAmI

	users           *repository.Repository[*models.User]
	groups          *repository.Repository[*models.Group]
	motions         *repository.Repository[*models.Motion]
	polls           *repository.Repository[*models.MotionPoll]
	agenda          *repository.Repository[*models.AgendaItem]
	listsOfSpeakers *repository.Repository[*models.ListOfSpeakers]
	projectors      *repository.Repository[*models.Projector]
	chatMessages    *repository.Repository[*models.ChatMessage]
}

type Option func(*Session)

// WithLogger overrides the logger built from the configuration.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithDirectInjection makes repository writes update the store without
// waiting for the autoupdate channel.
func WithDirectInjection() Option {
	return func(s *Session) {
		s.direct = true
	}
}

func WithStoreOptions(opts ...store.Option) Option {
	return func(s *Session) {
		s.storeOptions = append(s.storeOptions, opts...)
	}
}

// New prepares a session for the server in cfg. Nothing is sent to the
// server before Login.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		l, err := cfg.Logger()
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
		s.logger = l
		s.ownsLogger = true
	}

	client, err := httpclient.New(cfg.URL,
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		httpclient.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.client = client

	return s, nil
}

// CheckVersion fails with constants.ErrIncompatibleServer unless the server
// version meets the configured constraint.
func (s *Session) CheckVersion(ctx context.Context) (*semver.Version, error) {
	info, err := s.client.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query server version: %w", err)
	}
	v, err := semver.NewVersion(info.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable version %q", constants.ErrIncompatibleServer, info.Version)
	}
	if !s.cfg.Constraint().Check(v) {
		return v, fmt.Errorf("%w: %s does not satisfy %q", constants.ErrIncompatibleServer, v, s.cfg.ServerVersion)
	}
	return v, nil
}

// Login checks the server version, logs in, connects the autoupdate channel
// and loads every collection into a fresh store.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return errors.New("session is already logged in")
	}

	v, err := s.CheckVersion(ctx)
	if err != nil {
		return err
	}

	who, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	st := store.New(append([]store.Option{store.WithLogger(s.logger)}, s.storeOptions...)...)

	ch := autoupdate.New(s.transport(), st, s.cfg.WireCodec(), s.cfg.Retryer(), s.logger)
	ch.OnReconnect(func(ctx context.Context) error {
		return s.load(ctx, st)
	})
	ch.OnStateChange(func(from, to autoupdate.State) {
		s.logger.Debug("autoupdate state changed", "from", from, "to", to)
	})

	abort := func(err error) error {
		_ = ch.Close(context.Background())
		st.Close()
		if logoutErr := s.client.Logout(context.Background()); logoutErr != nil {
			s.logger.Warn("failed to log out after failed login", "error", logoutErr)
		}
		return err
	}

	// The channel connects first so that no push between the initial load
	// and the connect is lost.
	if err := ch.Connect(ctx); err != nil {
		return abort(err)
	}
	if err := s.load(ctx, st); err != nil {
		return abort(err)
	}

	s.store = st
	s.channel = ch
	s.whoAmI = who
	s.buildRepositories(st)

	s.logger.Info("session started", "server_version", v.String(), "user_id", who.UserID,
		"records", countAll(st))
	return nil
}

// Logout closes the autoupdate channel, drops the mirror and ends the
// server session.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return constants.ErrNotLoggedIn
	}

	var errs []error
	if err := s.channel.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	s.store.Close()
	if err := s.client.Logout(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to log out: %w", err))
	}

	s.store = nil
	s.channel = nil
	s.whoAmI = nil
	s.buildRepositories(nil)

	s.logger.Info("session ended")
	return errors.Join(errs...)
}

// Close logs out if the session is logged in and releases the logger the
// session built from the configuration. A logger given with WithLogger is
// left to the caller.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if err := s.Logout(ctx); err != nil && !errors.Is(err, constants.ErrNotLoggedIn) {
		errs = append(errs, err)
	}
	if c, ok := s.logger.(io.Closer); ok && s.ownsLogger {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}

// load replaces the content of st with every record the server lists.
// Collections the user may not see are skipped.
func (s *Session) load(ctx context.Context, st *store.Store) error {
	var all []models.Model
	for _, c := range models.Kinds() {
		ms, err := s.client.List(ctx, c)
		if err != nil {
			if apiErr, ok := httpclient.AsError(err); ok &&
				(apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusNotFound) {
				s.logger.Debug("skipping collection", "collection", c, "status", apiErr.StatusCode)
				continue
			}
			return fmt.Errorf("failed to load %s: %w", c, err)
		}
		all = append(all, ms...)
	}

	if err := st.Apply(ctx, store.Mutation{Clear: true, Upserts: all}); err != nil {
		return fmt.Errorf("failed to fill store: %w", err)
	}
	s.logger.Debug("loaded records", "count", len(all))
	return nil
}

func (s *Session) transport() connection.NewFunc {
	cfg := connection.NewConfig(connection.WebSocketURL(&s.client.BaseURL, s.cfg.AutoupdatePath))
	cfg.Codec = s.cfg.WireCodec()
	cfg.Header = s.client.Header()
	cfg.Logger = s.logger

	if s.cfg.Transport == config.TransportGWS {
		return gws.NewFunc(cfg)
	}
	return gorillaws.NewFunc(cfg)
}

func (s *Session) buildRepositories(st *store.Store) {
	if st == nil {
		s.users, s.groups, s.motions, s.polls = nil, nil, nil, nil
		s.agenda, s.listsOfSpeakers, s.projectors, s.chatMessages = nil, nil, nil, nil
		return
	}

	opts := []repository.Option{repository.WithLogger(s.logger)}
	if s.direct {
		opts = append(opts, repository.WithDirectInjection())
	}
	s.users = repository.New[*models.User](st, s.client, opts...)
	s.groups = repository.New[*models.Group](st, s.client, opts...)
	s.motions = repository.New[*models.Motion](st, s.client, opts...)
	s.polls = repository.New[*models.MotionPoll](st, s.client, opts...)
	s.agenda = repository.New[*models.AgendaItem](st, s.client, opts...)
	s.listsOfSpeakers = repository.New[*models.ListOfSpeakers](st, s.client, opts...)
	s.projectors = repository.New[*models.Projector](st, s.client, opts...)
	s.chatMessages = repository.New[*models.ChatMessage](st, s.client, opts...)
}

func countAll(st *store.Store) int {
	n := 0
	for _, c := range st.Collections() {
		n += st.Count(c)
	}
	return n
}

// Client returns the REST client of the session.
func (s *Session) Client() *httpclient.Client {
	return s.client
}

func (s *Session) Store() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// State reports the autoupdate state, Disconnected when not logged in.
func (s *Session) State() autoupdate.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.channel == nil {
		return autoupdate.StateDisconnected
	}
	return s.channel.State()
}

// WaitState blocks until the autoupdate channel reaches state.
func (s *Session) WaitState(ctx context.Context, state autoupdate.State) error {
	s.mu.RLock()
	ch := s.channel
	s.mu.RUnlock()
	if ch == nil {
		return constants.ErrNotLoggedIn
	}
	return ch.WaitState(ctx, state)
}

// User returns the logged in user, resolved against the mirror.
func (s *Session) User() (*viewmodels.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil || s.whoAmI == nil {
		return nil, false
	}
	u, ok := store.GetAs[*models.User](s.store, models.CollectionUser, s.whoAmI.UserID)
	if !ok {
		return nil, false
	}
	return viewmodels.NewUser(s.store, u), true
}

func (s *Session) Users() *repository.Repository[*models.User] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users
}

func (s *Session) Groups() *repository.Repository[*models.Group] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups
}

func (s *Session) Motions() *repository.Repository[*models.Motion] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.motions
}

func (s *Session) Polls() *repository.Repository[*models.MotionPoll] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polls
}

func (s *Session) Agenda() *repository.Repository[*models.AgendaItem] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agenda
}

func (s *Session) ListsOfSpeakers() *repository.Repository[*models.ListOfSpeakers] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listsOfSpeakers
}

func (s *Session) Projectors() *repository.Repository[*models.Projector] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectors
}

func (s *Session) ChatMessages() *repository.Repository[*models.ChatMessage] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatMessages
}
