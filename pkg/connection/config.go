package connection

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
)

// DefaultMessageBuffer is the capacity of Transport.Messages.
const DefaultMessageBuffer = 64

type Config struct {
	// URL is the WebSocket endpoint, e.g. "wss://openslides.example.org/ws/".
	URL url.URL
	// Codec decodes frames. Its name is offered as WebSocket subprotocol.
	Codec codec.Codec
	// Header is sent with the handshake. The session cookie goes here.
	Header        http.Header
	Logger        logger.Logger
	MessageBuffer int
}

// NewConfig creates a Config for the WebSocket endpoint u speaking JSON.
func NewConfig(u *url.URL) *Config {
	return &Config{
		URL:    *u,
		Codec:  codec.JSON(),
		Header: http.Header{},
		Logger: logger.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func (c *Config) Validate() error {
	if c.URL.Host == "" {
		return constants.ErrNoURL
	}
	switch c.URL.Scheme {
	case constants.WebsocketScheme, constants.WebsocketSecureScheme:
	default:
		return fmt.Errorf("%w: unsupported scheme %q", constants.ErrNoURL, c.URL.Scheme)
	}
	if c.Codec == nil {
		return constants.ErrNoCodec
	}
	return nil
}

// Subprotocols returns the subprotocols to offer during the handshake.
func (c *Config) Subprotocols() []string {
	return []string{c.Codec.Name()}
}

// WebSocketURL derives the WebSocket endpoint from the server's base URL:
// http becomes ws, https becomes wss and the path is replaced.
func WebSocketURL(base *url.URL, path string) *url.URL {
	u := *base
	switch u.Scheme {
	case constants.HTTPScheme:
		u.Scheme = constants.WebsocketScheme
	case constants.HTTPSecureScheme:
		u.Scheme = constants.WebsocketSecureScheme
	}
	if path == "" {
		path = constants.DefaultAutoupdatePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimSuffix(base.Path, "/") + path
	u.RawQuery = ""
	u.Fragment = ""
	return &u
}
