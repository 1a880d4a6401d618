package session

import "context"

// Store is the persistent key/value store the session is kept in.
//
// Get reports ok=false for a missing key; that is not an error.
// Replace writes every key in set and removes every key in remove as one unit:
// either all of it is applied or none of it is.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Replace(ctx context.Context, set map[string]string, remove ...string) error
	Delete(ctx context.Context, keys ...string) error
}

// Keys of the three session slots.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

var sessionKeys = []string{KeyToken, KeyRefreshToken, KeyUser}
