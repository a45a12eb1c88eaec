// Package credential persists and inspects the bearer token and user profile
// that make up a dashboard session.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shelfdesk/shelfadmin/storage"
)

// Storage keys. They match the layout the browser dashboard kept in localStorage.
const (
	TokenKey = "token"
	UserKey  = "user"
)

var (
	// ErrEmptyToken is returned by Save when no token is supplied.
	ErrEmptyToken = errors.New("credential: empty token")
	// ErrCorruptProfile is returned by Load when the stored profile cannot be decoded.
	ErrCorruptProfile = errors.New("credential: stored profile is corrupt")
)

// Store keeps the token and profile in a storage.Repository. Both keys are
// always written and removed in one batch, so observers see either both or
// neither.
type Store struct {
	repo storage.Repository
}

// NewStore creates a Store on top of repo.
func NewStore(repo storage.Repository) *Store {
	return &Store{repo: repo}
}

// Save replaces the stored token and profile. A nil profile is stored as an
// empty object so a token never exists without a profile.
func (s *Store) Save(token string, profile Profile) error {
	if token == "" {
		return ErrEmptyToken
	}
	if profile == nil {
		profile = Profile{}
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return s.repo.Batch(func(tx storage.BatchTx) error {
		if err := tx.Put(TokenKey, []byte(token)); err != nil {
			return err
		}
		return tx.Put(UserKey, data)
	})
}

// Token returns the stored token, or "" when none is stored.
func (s *Store) Token() (string, error) {
	v, err := s.repo.Get(TokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return string(v), nil
}

// Load returns the stored token and profile. Absence of either is reported as
// "" / nil with a nil error. A profile stored without its token is treated as
// absent, and so is a profile stored as JSON null. When the profile bytes do
// not decode, the token is returned together with ErrCorruptProfile.
func (s *Store) Load() (string, Profile, error) {
	token, err := s.Token()
	if err != nil {
		return "", nil, err
	}
	if token == "" {
		return "", nil, nil
	}
	raw, err := s.repo.Get(UserKey)
	if errors.Is(err, storage.ErrNotFound) {
		return token, nil, nil
	}
	if err != nil {
		return token, nil, fmt.Errorf("reading profile: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return token, nil, nil
	}
	profile, err := ParseProfile(raw)
	if err != nil {
		return token, nil, fmt.Errorf("%w: %v", ErrCorruptProfile, err)
	}
	return token, profile, nil
}

// Clear removes both entries. Clearing an empty or half-written store succeeds.
func (s *Store) Clear() error {
	return s.repo.Batch(func(tx storage.BatchTx) error {
		if err := tx.Delete(TokenKey); err != nil {
			return err
		}
		return tx.Delete(UserKey)
	})
}
