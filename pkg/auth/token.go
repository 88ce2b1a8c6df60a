// Package auth inspects the access token the server hands out on login.
//
// The token is not verified: the client has no key to verify it with and
// only uses it to learn who it is logged in as and when to expect the
// session to end. The server remains the authority.
package auth

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/openslides/openslides.go/pkg/models"
)

// HeaderName is the response header carrying the access token.
const HeaderName = "Authentication"

type Token struct {
	Raw       string
	UserID    models.ID
	SessionID string
	// ExpiresAt is zero when the token carries no expiry.
	ExpiresAt time.Time
}

// ParseToken decodes raw without verifying its signature. A leading
// "bearer " prefix is accepted.
func ParseToken(raw string) (*Token, error) {
	str := raw
	if len(str) > 7 && (str[:7] == "bearer " || str[:7] == "Bearer ") {
		str = str[7:]
	}

	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(str, gojwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	claims := token.Claims.(gojwt.MapClaims)

	t := &Token{Raw: raw}
	if v, ok := claims["user_id"]; ok {
		id, err := models.ParseID(v)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id claim: %w", err)
		}
		t.UserID = id
	}
	if v, ok := claims["session_id"].(string); ok {
		t.SessionID = v
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil {
		t.ExpiresAt = exp.Time
	}

	return t, nil
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Sign issues an HS256 token for the given user and session. The server
// signs its own tokens; this is used by test servers.
func Sign(secret []byte, userID models.ID, sessionID string, ttl time.Duration) (string, error) {
	claims := gojwt.MapClaims{
		"user_id":    userID,
		"session_id": sessionID,
	}
	if ttl > 0 {
		claims["exp"] = gojwt.NewNumericDate(time.Now().Add(ttl))
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
}
