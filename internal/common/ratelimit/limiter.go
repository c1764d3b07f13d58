package ratelimit

import "context"

// Limiter decides whether another event for key is allowed right now.
// Implementations backed by external stores return allowed=true together with
// the error when the store fails, so callers can log and continue.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
