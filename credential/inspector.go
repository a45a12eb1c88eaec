package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Inspector decodes tokens locally. It never verifies signatures; the server
// remains the only authority on whether a token is genuine.
type Inspector struct {
	now func() time.Time
}

// NewInspector returns an Inspector using the wall clock.
func NewInspector() *Inspector {
	return &Inspector{now: time.Now}
}

// NewInspectorWithClock returns an Inspector that reads the time from now.
func NewInspectorWithClock(now func() time.Time) *Inspector {
	return &Inspector{now: now}
}

// ExpiresAt decodes token and returns its exp claim. A token without exp
// yields the zero time and a nil error.
func (i *Inspector) ExpiresAt(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, errors.New("credential: empty token")
	}
	// jwt.Parse also accepts bare JSON claims; only compact JWS is a credential.
	if strings.Count(token, ".") != 2 {
		return time.Time{}, errors.New("credential: token is not a compact JWS")
	}
	parsed, err := jwt.Parse([]byte(token), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("decoding token: %w", err)
	}
	return parsed.Expiration(), nil
}

// IsExpired reports whether token can no longer be trusted. Malformed tokens
// count as expired; a token without an exp claim never expires.
func (i *Inspector) IsExpired(token string) (expired bool) {
	defer func() {
		if recover() != nil {
			expired = true
		}
	}()
	exp, err := i.ExpiresAt(token)
	if err != nil {
		return true
	}
	if exp.IsZero() {
		return false
	}
	return exp.Before(i.now())
}

var defaultInspector = NewInspector()

// IsExpired reports whether token is malformed or past its exp claim.
func IsExpired(token string) bool {
	return defaultInspector.IsExpired(token)
}
