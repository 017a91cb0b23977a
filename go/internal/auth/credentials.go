package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/persist"
)

var (
	// ErrIncompleteCredentials is returned when a pair is missing a token.
	ErrIncompleteCredentials = errors.New("credentials must carry both access and refresh tokens")
	// ErrNoRefreshToken is returned when a refresh is requested while logged out.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrCredentialsChanged is returned by Rotate when the pair was replaced
	// or cleared while a refresh was in flight.
	ErrCredentialsChanged = errors.New("credentials changed during refresh")
)

// Credentials is the access/refresh pair plus the identity it belongs to.
// An empty AccessToken means logged out.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	SubjectID    string
	DisplayName  string
}

// Empty reports whether c carries no access token.
func (c Credentials) Empty() bool {
	return c.AccessToken == ""
}

// ExpiresAt returns the access token expiry, if the token declares one.
func (c Credentials) ExpiresAt() (time.Time, bool) {
	claims, err := ParseClaims(c.AccessToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// Expired reports whether the access token has a known expiry before now.
func (c Credentials) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && !now.Before(exp)
}

// Store holds the current credentials in memory, backed by persisted state.
// It is safe for concurrent use.
type Store struct {
	backing persist.Store

	mu    sync.RWMutex
	creds Credentials
}

// NewStore creates an empty Store persisting into backing.
func NewStore(backing persist.Store) *Store {
	return &Store{backing: backing}
}

// Load reads persisted credentials into memory.
func (s *Store) Load(ctx context.Context) error {
	var c Credentials
	var err error
	read := func(key string, dst *string) {
		if err != nil {
			return
		}
		*dst, err = persist.GetString(ctx, s.backing, key)
	}
	read(persist.KeyAccessToken, &c.AccessToken)
	read(persist.KeyRefreshToken, &c.RefreshToken)
	read(persist.KeyUserID, &c.SubjectID)
	read(persist.KeyUsername, &c.DisplayName)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	// A half-written pair is treated as logged out.
	if c.AccessToken == "" || c.RefreshToken == "" {
		c = Credentials{}
	}

	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()

	log.Debug().
		Bool("authenticated", !c.Empty()).
		Str("subject_id", c.SubjectID).
		Msg("credentials loaded")
	return nil
}

// Current returns a copy of the current credentials.
func (s *Store) Current() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// IsAuthenticated reports whether an access token is present.
func (s *Store) IsAuthenticated() bool {
	return !s.Current().Empty()
}

// Replace swaps in a new pair. Both tokens are always replaced together.
func (s *Store) Replace(ctx context.Context, c Credentials) error {
	if c.AccessToken == "" || c.RefreshToken == "" {
		return ErrIncompleteCredentials
	}
	if c.SubjectID == "" {
		if claims, err := ParseClaims(c.AccessToken); err == nil {
			c.SubjectID = claims.Subject
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(ctx, c)
}

// Rotate replaces the pair only if the current refresh token is still
// previous, so a logout racing a refresh is not undone.
func (s *Store) Rotate(ctx context.Context, previous string, c Credentials) error {
	if c.AccessToken == "" || c.RefreshToken == "" {
		return ErrIncompleteCredentials
	}
	if c.SubjectID == "" {
		if claims, err := ParseClaims(c.AccessToken); err == nil {
			c.SubjectID = claims.Subject
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds.RefreshToken != previous {
		return ErrCredentialsChanged
	}
	return s.replaceLocked(ctx, c)
}

func (s *Store) replaceLocked(ctx context.Context, c Credentials) error {
	err := s.backing.SetMany(ctx, map[string]string{
		persist.KeyAccessToken:  c.AccessToken,
		persist.KeyRefreshToken: c.RefreshToken,
		persist.KeyUserID:       c.SubjectID,
		persist.KeyUsername:     c.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	s.creds = c
	return nil
}

// Clear drops the credentials and every persisted key, including the last
// room. Memory is cleared even if the backing store fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = Credentials{}
	if err := s.backing.Clear(ctx); err != nil {
		return fmt.Errorf("clear persisted state: %w", err)
	}
	return nil
}
