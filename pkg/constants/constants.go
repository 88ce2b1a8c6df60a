package constants

import "time"

var (
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
)

const (
	// StatusOK marks an autoupdate envelope carrying the current state of a record.
	StatusOK = 200
	// StatusNotFound marks an autoupdate envelope announcing the deletion of a record.
	StatusNotFound = 404

	DefaultAutoupdatePath   = "/ws/"
	DefaultRequestTimeout   = 30 * time.Second
	DefaultReconnectDelay   = 5 * time.Second
	DefaultSubscriptionSize = 100

	// CloseMessageCode is sent in the close frame when the client hangs up.
	CloseMessageCode = 1000
	// CloseGoingAwayCode is sent by a server that shuts down or restarts.
	CloseGoingAwayCode = 1001

	// MaxReconnectDelay bounds every reconnect delay, whatever the strategy.
	MaxReconnectDelay = 10 * time.Minute

	// DefaultServerConstraint is the range of server versions this client speaks to.
	DefaultServerConstraint = ">= 3.0, < 4.0"
)
