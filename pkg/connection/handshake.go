package connection

import (
	"fmt"
	"net/http"

	"github.com/openslides/openslides.go/pkg/constants"
)

// HandshakeError annotates a failed upgrade with the HTTP status the server
// answered. A 401 or 403 also matches constants.ErrSessionRejected.
func HandshakeError(err error, status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w (status %d)", constants.ErrSessionRejected, err, status)
	default:
		return fmt.Errorf("%w (status %d)", err, status)
	}
}
