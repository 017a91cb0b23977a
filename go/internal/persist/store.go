// Package persist keeps the client state that survives restarts: the
// credential pair, the player's identity and the last joined room.
package persist

import "context"

// Keys of the persisted client state.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserID       = "userId"
	KeyUsername     = "username"
	KeyCurrentRoom  = "currentRoomId"
)

// Store is a small key/value store. SetMany applies all values atomically;
// an empty value deletes the key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// Set stores a single value.
func Set(ctx context.Context, s Store, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// GetString returns the stored value, or "" when it is missing.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	v, _, err := s.Get(ctx, key)
	return v, err
}
