package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether an action identified by key may be counted now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Rule is a fixed window: at most Limit hits per Window for a key.
type Rule struct {
	Limit  int
	Window time.Duration
}

func Key(clientID, resource string) string {
	return clientID + ":" + resource
}
