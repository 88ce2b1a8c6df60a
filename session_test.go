package openslides

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/openslides/openslides.go/internal/fakeserver"
	"github.com/openslides/openslides.go/internal/testenv"
	"github.com/openslides/openslides.go/pkg/autoupdate"
	"github.com/openslides/openslides.go/pkg/config"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

type SessionTestSuite struct {
	suite.Suite

	vars    map[string]string
	server  *fakeserver.Server
	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, &SessionTestSuite{})
}

func TestSessionTestSuite_GWSWithCBOR(t *testing.T) {
	suite.Run(t, &SessionTestSuite{vars: map[string]string{
		"OPENSLIDES_TRANSPORT": config.TransportGWS,
		"OPENSLIDES_CODEC":     "cbor",
	}})
}

func (s *SessionTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)

	log, _ := testenv.NewLogger(testenv.WithIgnoreDebug())
	s.server = fakeserver.New(fakeserver.WithLogger(log))
	s.server.Seed(
		&models.Motion{ID: models.IntID(1), Identifier: "A1", Title: "Budget"},
		&models.Motion{ID: models.IntID(2), Identifier: "A2", Title: "Statutes"},
	)

	s.session = s.newSession(s.server.URL().String())
}

func (s *SessionTestSuite) TearDownTest() {
	if s.session.Store() != nil {
		s.NoError(s.session.Logout(s.ctx))
	}
	s.server.Close()
	s.cancel()
}

func (s *SessionTestSuite) newSession(url string, opts ...Option) *Session {
	vars := map[string]string{
		"OPENSLIDES_URL":             url,
		"OPENSLIDES_RECONNECT_DELAY": "20ms",
	}
	for k, v := range s.vars {
		vars[k] = v
	}
	cfg, err := config.FromMap(vars)
	s.Require().NoError(err)

	log, _ := testenv.NewLogger(testenv.WithIgnoreDebug())
	session, err := New(cfg, append([]Option{WithLogger(log)}, opts...)...)
	s.Require().NoError(err)
	return session
}

func (s *SessionTestSuite) login() {
	s.Require().NoError(s.session.Login(s.ctx, "admin", "admin"))
}

func (s *SessionTestSuite) TestLogin() {
	s.Equal(autoupdate.StateDisconnected, s.session.State())
	s.Nil(s.session.Motions())

	s.login()

	s.Equal(autoupdate.StateConnected, s.session.State())
	s.Len(s.session.Motions().GetAll(), 2)
	s.Len(s.session.Groups().GetAll(), 1)

	u, ok := s.session.User()
	s.Require().True(ok)
	s.Equal("Administrator", u.ShortName())
	s.NotNil(s.session.Client().Token())
}

func (s *SessionTestSuite) TestLogin_Twice() {
	s.login()
	s.Error(s.session.Login(s.ctx, "admin", "admin"))
}

func (s *SessionTestSuite) TestLogin_WrongCredentials() {
	err := s.session.Login(s.ctx, "admin", "wrong")

	s.ErrorIs(err, constants.ErrLoginFailed)
	s.Equal("Error: "+fakeserver.LoginFailedDetail, Notice(err))
	s.Nil(s.session.Store())
	s.Equal(0, s.server.Connections())
}

func (s *SessionTestSuite) TestLogin_IncompatibleServer() {
	old := fakeserver.New(fakeserver.WithVersion("2.3.0"))
	defer old.Close()

	session := s.newSession(old.URL().String())
	err := session.Login(s.ctx, "admin", "admin")

	s.ErrorIs(err, constants.ErrIncompatibleServer)
	s.Nil(session.Client().Token())
}

func (s *SessionTestSuite) TestLogin_SkipsForbiddenCollections() {
	s.server.Inject(fakeserver.Failure{
		Method:     http.MethodGet,
		PathPrefix: "/rest/core/chat-message/",
		StatusCode: http.StatusForbidden,
		Detail:     "You do not have permission to perform this action.",
	})

	s.login()
	s.Len(s.session.Motions().GetAll(), 2)
	s.Empty(s.session.ChatMessages().GetAll())
}

func (s *SessionTestSuite) TestLogin_FailingLoadLogsOut() {
	s.server.Inject(fakeserver.Failure{
		Method:     http.MethodGet,
		PathPrefix: "/rest/motions/motion/",
		StatusCode: http.StatusInternalServerError,
	})

	err := s.session.Login(s.ctx, "admin", "admin")
	s.Require().Error(err)
	s.Nil(s.session.Store())
	s.Nil(s.session.Client().Token())
	s.Eventually(func() bool { return s.server.Connections() == 0 }, waitFor, tick)
}

func (s *SessionTestSuite) TestPushReachesRepository() {
	s.login()
	sub := s.session.Store().Subscribe(models.CollectionMotion)
	defer sub.Unsubscribe()

	s.server.Push(&models.Motion{ID: models.IntID(3), Identifier: "A3", Title: "Travel costs"})

	s.waitEvent(sub)
	m, ok := s.session.Motions().Get(models.IntID(3))
	s.Require().True(ok)
	s.Equal("Travel costs", m.Title)
}

func (s *SessionTestSuite) TestPushDelete() {
	s.login()
	sub := s.session.Store().Subscribe(models.CollectionMotion)
	defer sub.Unsubscribe()

	s.server.PushDelete(models.NewKey(models.CollectionMotion, models.IntID(1)))

	ev := s.waitEvent(sub)
	s.Equal([]models.Key{models.NewKey(models.CollectionMotion, models.IntID(1))}, ev.Deleted)
	s.Len(s.session.Motions().GetAll(), 1)
}

func (s *SessionTestSuite) TestCreateArrivesThroughAutoupdate() {
	s.login()

	id, err := s.session.Motions().Create(s.ctx, &models.Motion{Title: "Minutes"})
	s.Require().NoError(err)
	s.False(id.IsZero())

	s.Eventually(func() bool {
		m, ok := s.session.Motions().Get(id)
		return ok && m.Title == "Minutes"
	}, waitFor, tick)
}

func (s *SessionTestSuite) TestFailingCreateLeavesStoreUnchanged() {
	s.login()
	s.server.Inject(fakeserver.Failure{
		Method:     http.MethodPost,
		PathPrefix: "/rest/motions/motion/",
		StatusCode: http.StatusBadRequest,
		Detail:     "The title is required.",
	})

	_, err := s.session.Motions().Create(s.ctx, &models.Motion{Title: "Minutes"})
	s.Require().Error(err)
	s.Equal("Error: The title is required.", Notice(err))
	s.Len(s.session.Motions().GetAll(), 2)
}

func (s *SessionTestSuite) TestDirectInjection() {
	session := s.newSession(s.server.URL().String(), WithDirectInjection())
	s.Require().NoError(session.Login(s.ctx, "admin", "admin"))
	defer func() { s.NoError(session.Logout(s.ctx)) }()

	id, err := session.Motions().Create(s.ctx, &models.Motion{Title: "Minutes"})
	s.Require().NoError(err)

	m, ok := session.Motions().Get(id)
	s.Require().True(ok)
	s.Equal("Minutes", m.Title)
}

func (s *SessionTestSuite) TestReconnectResyncs() {
	s.login()

	// Seed does not push, so only the reload after reconnecting can pick
	// the record up.
	s.server.Seed(&models.Motion{ID: models.IntID(9), Title: "Missed"})
	_, ok := s.session.Motions().Get(models.IntID(9))
	s.Require().False(ok)

	s.server.DropConnections()

	s.Eventually(func() bool {
		_, ok := s.session.Motions().Get(models.IntID(9))
		return ok
	}, waitFor, tick)
	s.Require().NoError(s.session.WaitState(s.ctx, autoupdate.StateConnected))
}

func (s *SessionTestSuite) TestLogout() {
	s.login()
	st := s.session.Store()
	sub := st.Subscribe()

	s.Require().NoError(s.session.Logout(s.ctx))

	s.Nil(s.session.Store())
	s.Nil(s.session.Users())
	s.Equal(autoupdate.StateDisconnected, s.session.State())
	s.Nil(s.session.Client().Token())
	_, ok := s.session.User()
	s.False(ok)

	_, open := <-sub.C
	s.False(open)
	s.ErrorIs(s.session.Logout(s.ctx), constants.ErrNotLoggedIn)
	s.ErrorIs(s.session.WaitState(s.ctx, autoupdate.StateConnected), constants.ErrNotLoggedIn)
}

func (s *SessionTestSuite) waitEvent(sub *store.Subscription) store.ChangeEvent {
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(waitFor):
		s.FailNow("no change event")
		return store.ChangeEvent{}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"url":   func(c *config.Config) { c.URL = "ftp://example.com" },
		"codec": func(c *config.Config) { c.Codec = "xml" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.FromMap(map[string]string{})
			require.NoError(t, err)
			mutate(cfg)

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestSession_CloseReleasesLogFile(t *testing.T) {
	server := fakeserver.New()
	defer server.Close()

	path := filepath.Join(t.TempDir(), "session.log")
	cfg, err := config.FromMap(map[string]string{
		"OPENSLIDES_URL": server.URL().String(),
		"LOG_BACKEND":    config.BackendZerolog,
		"LOG_FILE":       path,
	})
	require.NoError(t, err)

	session, err := New(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, session.Login(ctx, "admin", "admin"))

	require.NoError(t, session.Close(ctx))
	assert.Nil(t, session.Store())

	zl, ok := session.logger.(*logger.ZerologLogger)
	require.True(t, ok)
	_, err = zl.LogFile.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session ended")
}

func TestSession_CloseKeepsGivenLogger(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "given.log")
	l, err := logger.NewZerolog().FromPath(path).Make()
	require.NoError(t, err)
	defer l.Close()

	session, err := New(cfg, WithLogger(l))
	require.NoError(t, err)
	require.NoError(t, session.Close(context.Background()))

	_, err = l.LogFile.Write([]byte("still open\n"))
	assert.NoError(t, err)
}

func TestNotice(t *testing.T) {
	assert.Equal(t, "", Notice(nil))
	assert.Equal(t, "Error: boom", Notice(errors.New("boom")))
}
