package constants

import "errors"

// Configuration errors. These are returned synchronously and indicate a
// programming error on the caller side rather than a runtime failure.
var (
	ErrNoID              = errors.New("model has no id")
	ErrInvalidCollection = errors.New("invalid collection")
)

var (
	ErrStoreClosed        = errors.New("store is closed")
	ErrNotConnected       = errors.New("autoupdate channel is not connected")
	ErrClosed             = errors.New("autoupdate channel is closed")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrNoURL              = errors.New("url not set")
	ErrNoCodec            = errors.New("codec is not set")
	ErrInvalidEnvelope    = errors.New("invalid autoupdate envelope")
	ErrLoginFailed        = errors.New("login failed")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrIncompatibleServer = errors.New("incompatible server version")
	ErrInvalidQuery       = errors.New("invalid query expression")
	// ErrSessionRejected means the server refused the autoupdate handshake
	// for the session cookie. Reconnecting with the same cookie is futile.
	ErrSessionRejected = errors.New("autoupdate handshake rejected")
)
