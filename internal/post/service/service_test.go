package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/MyNameIsWhaaat/blog/internal/auth"
	"github.com/MyNameIsWhaaat/blog/internal/metrics"
	"github.com/MyNameIsWhaaat/blog/internal/post/model"
	inm "github.com/MyNameIsWhaaat/blog/internal/post/storage/inmemory"
	"github.com/MyNameIsWhaaat/blog/internal/ratelimit"
)

var editor = auth.Identity{UserID: "ed", Role: auth.RoleEditor}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingRepo wraps inmemory.Repo and fails view increments.
type failingRepo struct {
	*inm.Repo
}

func (f *failingRepo) IncrementViews(ctx context.Context, slug string) (int64, error) {
	return 0, errors.New("connection reset")
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, errors.New("redis down")
}

func newService(t *testing.T) (PostService, *inm.Repo, *clock) {
	t.Helper()
	repo := inm.New()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := ratelimit.NewMemory(ratelimit.Rule{Limit: 1, Window: time.Hour}, ratelimit.WithClock(c.Now))
	return New(repo, limiter, zaptest.NewLogger(t), metrics.Nop()), repo, c
}

func TestRecordViewOncePerWindow(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t)

	if _, err := svc.Create(ctx, editor, model.NewPost{Slug: "abc", Title: "ABC"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.SetViews("abc", 10)

	res, err := svc.RecordView(ctx, "1.2.3.4", "abc")
	if err != nil {
		t.Fatalf("first view: %v", err)
	}
	if !res.Accepted || res.Views == nil || *res.Views != 11 {
		t.Fatalf("expected accepted with 11 views, got %+v", res)
	}

	for i := 0; i < 4; i++ {
		res, err = svc.RecordView(ctx, "1.2.3.4", "abc")
		if err != nil {
			t.Fatalf("repeat view: %v", err)
		}
		if res.Accepted || res.Views != nil {
			t.Fatalf("expected rate limited result, got %+v", res)
		}
	}

	p, _ := svc.Get(ctx, "abc")
	if p.Views != 11 {
		t.Fatalf("store must be incremented once, got %d", p.Views)
	}
}

func TestRecordViewNewWindow(t *testing.T) {
	ctx := context.Background()
	svc, _, c := newService(t)

	if _, err := svc.Create(ctx, editor, model.NewPost{Title: "Hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if res, _ := svc.RecordView(ctx, "", "hello"); !res.Accepted {
		t.Fatalf("first view must be accepted")
	}

	c.Advance(time.Hour)
	res, err := svc.RecordView(ctx, LoopbackClient, "hello")
	if err != nil {
		t.Fatalf("view after window: %v", err)
	}
	if !res.Accepted || *res.Views != 2 {
		t.Fatalf("expected second counted view, got %+v", res)
	}
}

func TestRecordViewFailures(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	if _, err := svc.RecordView(ctx, "1.2.3.4", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	repo := &failingRepo{inm.New()}
	limiter := ratelimit.NewMemory(ratelimit.Rule{Limit: 1, Window: time.Hour})
	broken := New(repo, limiter, zaptest.NewLogger(t), nil)
	if _, err := broken.Import(ctx, model.NewPost{Title: "x", SourceURL: "https://e.example/x"}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := broken.RecordView(ctx, "1.2.3.4", "x"); err == nil {
		t.Fatalf("expected storage error")
	}

	down := New(inm.New(), brokenLimiter{}, zaptest.NewLogger(t), nil)
	if _, err := down.RecordView(ctx, "1.2.3.4", "x"); err == nil {
		t.Fatalf("expected limiter error")
	}
}

func TestCreatePermissionsAndSlug(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	if _, err := svc.Create(ctx, auth.Identity{}, model.NewPost{Title: "t"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	reader := auth.Identity{UserID: "r", Role: auth.RoleReader}
	if _, err := svc.Create(ctx, reader, model.NewPost{Title: "t"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	p, err := svc.Create(ctx, editor, model.NewPost{Title: "  Crème Brûlée, Done Right!  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Slug != "creme-brulee-done-right" {
		t.Fatalf("unexpected slug %q", p.Slug)
	}
	if p.AuthorID != "ed" {
		t.Fatalf("expected author ed, got %q", p.AuthorID)
	}

	if _, err := svc.Create(ctx, editor, model.NewPost{Title: "Crème brûlée done right"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Create(ctx, editor, model.NewPost{Title: "!!!"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty slug, got %v", err)
	}
}

func TestUpdateOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	if _, err := svc.Create(ctx, editor, model.NewPost{Title: "Draft"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Final"
	other := auth.Identity{UserID: "other", Role: auth.RoleEditor}
	if _, err := svc.Update(ctx, other, "draft", model.PostChanges{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	admin := auth.Identity{UserID: "root", Role: auth.RoleAdmin}
	p, err := svc.Update(ctx, admin, "draft", model.PostChanges{Title: &title})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if p.Title != "Final" || p.Slug != "draft" {
		t.Fatalf("unexpected post after update: %+v", p)
	}

	if _, err := svc.Update(ctx, editor, "nope", model.PostChanges{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportSkipsKnownSource(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	in := model.NewPost{Title: "Feed item", SourceURL: "https://feed.example/1"}
	if _, err := svc.Import(ctx, in); err != nil {
		t.Fatalf("import: %v", err)
	}
	in.Title = "Feed item renamed"
	if _, err := svc.Import(ctx, in); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	for _, title := range []string{"one", "two", "three"} {
		if _, err := svc.Create(ctx, editor, model.NewPost{Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	page, err := svc.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: total=%d items=%d", page.Total, len(page.Items))
	}
	if _, err := svc.List(ctx, 0, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
