package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// TokenAPI exchanges a refresh token for a new credential pair.
type TokenAPI interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// DefaultRefreshTimeout bounds a single refresh request.
const DefaultRefreshTimeout = 10 * time.Second

// Refresher renews the credential pair held by a Store.
// At most one refresh request is in flight; concurrent callers share its result.
type Refresher struct {
	store   *Store
	api     TokenAPI
	timeout time.Duration
	group   singleflight.Group
}

// NewRefresher creates a Refresher. A non-positive timeout uses DefaultRefreshTimeout.
func NewRefresher(store *Store, api TokenAPI, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &Refresher{store: store, api: api, timeout: timeout}
}

// Refresh exchanges the current refresh token. On success the store holds the
// new pair; on failure the store is left untouched.
func (r *Refresher) Refresh(ctx context.Context) (Credentials, error) {
	v, err, shared := r.group.Do("refresh", func() (interface{}, error) {
		return r.refresh(ctx)
	})
	if shared {
		log.Debug().Msg("joined in-flight token refresh")
	}
	if err != nil {
		return Credentials{}, err
	}
	return v.(Credentials), nil
}

func (r *Refresher) refresh(ctx context.Context) (Credentials, error) {
	current := r.store.Current()
	if current.RefreshToken == "" {
		return Credentials{}, ErrNoRefreshToken
	}

	// The request outlives any single caller; it is bounded by its own timeout.
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	next, err := r.api.Refresh(reqCtx, current.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("subject_id", current.SubjectID).Msg("token refresh failed")
		return Credentials{}, fmt.Errorf("refresh tokens: %w", err)
	}

	if next.DisplayName == "" {
		next.DisplayName = current.DisplayName
	}
	if err := r.store.Rotate(reqCtx, current.RefreshToken, next); err != nil {
		return Credentials{}, fmt.Errorf("store refreshed tokens: %w", err)
	}

	log.Info().Str("subject_id", next.SubjectID).Msg("tokens refreshed")
	return r.store.Current(), nil
}
