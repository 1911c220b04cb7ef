package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps the counter and starts the window on the first hit.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis is a fixed window limiter shared by every instance that points at the
// same server.
type Redis struct {
	client redis.Scripter
	rule   Rule
	prefix string
}

func NewRedis(client redis.Scripter, rule Rule, prefix string) *Redis {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &Redis{client: client, rule: rule, prefix: prefix}
}

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, l.client, []string{l.prefix + key}, l.rule.Window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis window %s: %w", key, err)
	}
	return n <= int64(l.rule.Limit), nil
}
