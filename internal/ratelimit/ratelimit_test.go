package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryOncePerWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemory(Rule{Limit: 1, Window: time.Hour}, WithClock(clock.Now))

	key := Key("1.2.3.4", "abc")
	allowed := 0
	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if ok {
			allowed++
		}
	}
	if allowed != 1 {
		t.Fatalf("expected exactly one allowed hit, got %d", allowed)
	}

	if ok, _ := l.Allow(ctx, Key("5.6.7.8", "abc")); !ok {
		t.Fatalf("other client must have its own window")
	}
	if ok, _ := l.Allow(ctx, Key("1.2.3.4", "xyz")); !ok {
		t.Fatalf("other slug must have its own window")
	}

	clock.Advance(time.Hour)
	if ok, _ := l.Allow(ctx, key); !ok {
		t.Fatalf("expected a new window after expiry")
	}
	if ok, _ := l.Allow(ctx, key); ok {
		t.Fatalf("expected second hit in new window to be limited")
	}
}

func TestMemoryLimitAboveOne(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(Rule{Limit: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "k"); !ok {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("fourth hit should be limited")
	}
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := NewMemory(Rule{Limit: 1, Window: time.Minute}, WithClock(clock.Now))

	_, _ = l.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	_, _ = l.Allow(ctx, "b")
	clock.Advance(30 * time.Second)

	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("expected one expired key removed, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one live key, got %d", l.Len())
	}
}

func TestMemoryRunStopsOnCancel(t *testing.T) {
	l := NewMemory(Rule{Limit: 1, Window: time.Millisecond})
	_, _ = l.Allow(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, time.Millisecond) }()

	deadline := time.Now().Add(time.Second)
	for l.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if l.Len() != 0 {
		t.Fatalf("janitor did not evict expired key")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestRedisSharedWindow(t *testing.T) {
	ctx := context.Background()
	s, client := newRedis(t)

	rule := Rule{Limit: 1, Window: time.Hour}
	a := NewRedis(client, rule, "views:")
	b := NewRedis(client, rule, "views:")

	key := Key("1.2.3.4", "abc")
	if ok, err := a.Allow(ctx, key); err != nil || !ok {
		t.Fatalf("first hit: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Allow(ctx, key); err != nil || ok {
		t.Fatalf("second instance must see the same window: ok=%v err=%v", ok, err)
	}
	if ttl := s.TTL("views:" + key); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	s.FastForward(time.Hour + time.Second)
	if ok, err := b.Allow(ctx, key); err != nil || !ok {
		t.Fatalf("expected new window after ttl: ok=%v err=%v", ok, err)
	}
}

func TestRedisError(t *testing.T) {
	s, client := newRedis(t)
	l := NewRedis(client, Rule{Limit: 1, Window: time.Minute}, "")
	s.Close()

	if _, err := l.Allow(context.Background(), "k"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
