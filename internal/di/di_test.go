package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MyNameIsWhaaat/blog/internal/config"
)

func memoryConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:             "development",
		HTTPAddr:        "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		ViewWindow:      time.Hour,
		ViewLimit:       1,
		UploadDir:       t.TempDir(),
		MaxImageBytes:   1 << 20,
		AuthUserHeader:  "X-User-ID",
		AuthRoleHeader:  "X-User-Role",
		FeedTimeout:     time.Second,
		LogLevel:        "error",
	}
}

func TestInitializeAppInMemory(t *testing.T) {
	a, cleanup, err := InitializeApp(memoryConfig(t))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer cleanup()

	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/posts")
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
}

func TestInitializeIngesterWithoutFeeds(t *testing.T) {
	ing, cleanup, err := InitializeIngester(memoryConfig(t))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer cleanup()

	n, err := ing.Run(testContext(t))
	if err != nil || n != 0 {
		t.Fatalf("expected no-op run, got %d, %v", n, err)
	}
}

func TestInitializeAppBadRedis(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"
	if _, _, err := InitializeApp(cfg); err == nil {
		t.Fatalf("expected redis ping error")
	}
}

// testContext mirrors testing.T.Context (Go 1.24+) for older toolchains.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
