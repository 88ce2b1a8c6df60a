// Package httpclient is a client for the REST interface of an OpenSlides
// server: the session endpoints under /apps/ and the per collection CRUD
// endpoints under /rest/.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/openslides/openslides.go/pkg/auth"
	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
)

const (
	loginPath   = "/apps/users/login/"
	logoutPath  = "/apps/users/logout/"
	whoAmIPath  = "/apps/users/whoami/"
	versionPath = "/apps/core/version/"
	restPrefix  = "/rest/"
)

// Client keeps the session cookie between calls, so one Client holds at most
// one login.
type Client struct {
	// BaseURL is the server root, e.g. https://openslides.example.com.
	BaseURL url.URL

	HTTPClient *http.Client

	codec  codec.Codec
	logger logger.Logger

	tokenMu sync.RWMutex
	token   *auth.Token
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A cookie jar is attached if
// hc has none, since the session lives in a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base url %q: %w", constants.ErrNoURL, baseURL, err)
	}
	if u.Host == "" || (u.Scheme != constants.HTTPScheme && u.Scheme != constants.HTTPSecureScheme) {
		return nil, fmt.Errorf("%w: %q is not an http(s) url", constants.ErrNoURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		BaseURL: *u,
		codec:   codec.JSON(),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout: constants.DefaultRequestTimeout,
		}
	}
	if c.HTTPClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.HTTPClient.Jar = jar
	}

	return c, nil
}

// WhoAmI describes the user a session is logged in as. UserID is zero for
// anonymous sessions.
type WhoAmI struct {
	UserID       models.ID    `json:"user_id"`
	User         *models.User `json:"user"`
	GuestEnabled bool         `json:"guest_enabled"`
	AuthType     string       `json:"auth_type"`
	Permissions  []string     `json:"permissions"`
}

type VersionInfo struct {
	Version string           `json:"openslides_version"`
	License string           `json:"openslides_license"`
	URL     string           `json:"openslides_url"`
	Plugins []map[string]any `json:"plugins"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login opens a session. Rejected credentials yield an error matching both
// constants.ErrLoginFailed and *Error.
func (c *Client) Login(ctx context.Context, username, password string) (*WhoAmI, error) {
	var who WhoAmI
	header, err := c.do(ctx, http.MethodPost, loginPath, credentials{Username: username, Password: password}, &who)
	if err != nil {
		if apiErr, ok := AsError(err); ok && apiErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %w", constants.ErrLoginFailed, err)
		}
		return nil, err
	}

	if raw := header.Get(auth.HeaderName); raw != "" {
		token, err := auth.ParseToken(raw)
		if err != nil {
			c.logger.Warn("ignoring unreadable access token", "error", err)
		} else {
			c.setToken(token)
		}
	}

	c.logger.Info("logged in", "user_id", who.UserID)
	return &who, nil
}

func (c *Client) Logout(ctx context.Context) error {
	defer c.setToken(nil)
	_, err := c.do(ctx, http.MethodPost, logoutPath, nil, nil)
	return err
}

func (c *Client) WhoAmI(ctx context.Context) (*WhoAmI, error) {
	var who WhoAmI
	if _, err := c.do(ctx, http.MethodGet, whoAmIPath, nil, &who); err != nil {
		return nil, err
	}
	return &who, nil
}

func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var v VersionInfo
	if _, err := c.do(ctx, http.MethodGet, versionPath, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Token returns the access token handed out on the last login, or nil.
func (c *Client) Token() *auth.Token {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

func (c *Client) setToken(t *auth.Token) {
	c.tokenMu.Lock()
	c.token = t
	c.tokenMu.Unlock()
}

// Header returns the headers that authenticate another connection, such as
// the autoupdate WebSocket, as part of this session.
func (c *Client) Header() http.Header {
	h := http.Header{}
	cookies := c.HTTPClient.Jar.Cookies(&c.BaseURL)
	if len(cookies) > 0 {
		parts := make([]string, len(cookies))
		for i, ck := range cookies {
			parts[i] = ck.Name + "=" + ck.Value
		}
		h.Set("Cookie", strings.Join(parts, "; "))
	}
	return h
}

// Get decodes the record (col, id) into dst.
func (c *Client) Get(ctx context.Context, col models.Collection, id models.ID, dst any) error {
	p, err := recordPath(col, id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodGet, p, nil, dst)
	return err
}

// Retrieve fetches the record (col, id) as its registered model type.
func (c *Client) Retrieve(ctx context.Context, col models.Collection, id models.ID) (models.Model, error) {
	p, err := recordPath(col, id)
	if err != nil {
		return nil, err
	}
	return c.model(ctx, http.MethodGet, p, col, nil)
}

// List fetches every record of col the session may see.
func (c *Client) List(ctx context.Context, col models.Collection) ([]models.Model, error) {
	p, err := collectionPath(col)
	if err != nil {
		return nil, err
	}

	var raws []codec.RawData
	if _, err := c.do(ctx, http.MethodGet, p, nil, &raws); err != nil {
		return nil, err
	}

	out := make([]models.Model, 0, len(raws))
	for _, raw := range raws {
		m, err := models.Decode(c.codec, col, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Create posts m and returns the record as stored by the server, which
// carries the assigned id.
func (c *Client) Create(ctx context.Context, m models.Model) (models.Model, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", constants.ErrInvalidCollection)
	}
	p, err := collectionPath(m.Collection())
	if err != nil {
		return nil, err
	}
	return c.model(ctx, http.MethodPost, p, m.Collection(), m)
}

// Update replaces the stored record with m.
func (c *Client) Update(ctx context.Context, m models.Model) (models.Model, error) {
	if err := models.Validate(m); err != nil {
		return nil, err
	}
	p, err := recordPath(m.Collection(), m.ModelID())
	if err != nil {
		return nil, err
	}
	return c.model(ctx, http.MethodPut, p, m.Collection(), m)
}

// Patch changes only the given fields of (col, id).
func (c *Client) Patch(ctx context.Context, col models.Collection, id models.ID, fields map[string]any) (models.Model, error) {
	p, err := recordPath(col, id)
	if err != nil {
		return nil, err
	}
	return c.model(ctx, http.MethodPatch, p, col, fields)
}

func (c *Client) Delete(ctx context.Context, col models.Collection, id models.ID) error {
	p, err := recordPath(col, id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, p, nil, nil)
	return err
}

func (c *Client) model(ctx context.Context, method, path string, col models.Collection, body any) (models.Model, error) {
	var raw codec.RawData
	if _, err := c.do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	return models.Decode(c.codec, col, raw)
}

func collectionPath(col models.Collection) (string, error) {
	if !col.Valid() || !models.IsRegistered(col) {
		return "", fmt.Errorf("%w: %q", constants.ErrInvalidCollection, col)
	}
	return restPrefix + string(col) + "/", nil
}

func recordPath(col models.Collection, id models.ID) (string, error) {
	p, err := collectionPath(col)
	if err != nil {
		return "", err
	}
	if id.IsZero() {
		return "", fmt.Errorf("%w: %s", constants.ErrNoID, col)
	}
	return p + url.PathEscape(id.String()) + "/", nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		data, err := c.codec.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.BaseURL
	u.Path += path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	c.logger.Debug("rest request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, newError(resp.StatusCode, data)
	}

	if dst != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := c.codec.Unmarshal(data, dst); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
		}
	}
	return resp.Header, nil
}
