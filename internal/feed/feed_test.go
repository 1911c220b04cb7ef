package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/MyNameIsWhaaat/blog/internal/feed"
	"github.com/MyNameIsWhaaat/blog/internal/post/service"
	"github.com/MyNameIsWhaaat/blog/internal/post/storage/inmemory"
	"github.com/MyNameIsWhaaat/blog/internal/ratelimit"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <item>
    <title>First entry</title>
    <link>https://example.com/first</link>
    <guid>https://example.com/first</guid>
    <description><![CDATA[<p>Hello <b>world</b></p><script>alert(1)</script>]]></description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
  </item>
  <item>
    <title>Second entry</title>
    <link>https://example.com/second</link>
    <description>plain</description>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
  </item>
</channel>
</rss>`

func TestParse(t *testing.T) {
	items, err := feed.Parse(strings.NewReader(sampleFeed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Link != "https://example.com/first" {
		t.Fatalf("unexpected link %q", items[0].Link)
	}
	want := time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)
	if !items[0].Published.Equal(want) {
		t.Fatalf("published = %v, want %v", items[0].Published, want)
	}
	if !items[1].Published.IsZero() {
		t.Fatalf("missing pubDate should give zero time")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := feed.Parse(strings.NewReader("<rss><channel>")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPlainText(t *testing.T) {
	got := feed.PlainText(`<p>Hello <b>world</b></p><script>alert(1)</script><p>again</p>`)
	if got != "Hello world again" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := feed.Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	got := feed.Truncate("привет мир", 7)
	if got != "привет…" {
		t.Fatalf("got %q", got)
	}
}

func TestFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := feed.NewFetcher(time.Second).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for non-200 feed")
	}
}

func TestIngesterRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	repo := inmemory.New()
	posts := service.New(repo, ratelimit.NewMemory(ratelimit.Rule{Limit: 1, Window: time.Hour}), nil, nil)
	ing := feed.NewIngester(feed.NewFetcher(time.Second), posts, []string{srv.URL + "/rss", srv.URL + "/broken"}, zaptest.NewLogger(t), nil)

	created, err := ing.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error from broken feed")
	}
	if created != 2 {
		t.Fatalf("expected 2 posts created, got %d", created)
	}

	p, err := posts.Get(context.Background(), "first-entry")
	if err != nil {
		t.Fatalf("get imported post: %v", err)
	}
	if p.Content != "Hello world" || p.SourceURL != "https://example.com/first" {
		t.Fatalf("unexpected post %+v", p)
	}

	// second run sees the same links and creates nothing
	created, _ = ing.Run(context.Background())
	if created != 0 {
		t.Fatalf("expected re-run to create nothing, got %d", created)
	}
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, string) ([]feed.Item, error) {
	return nil, errors.New("dns failure")
}

func TestIngesterReportsEveryFeed(t *testing.T) {
	posts := service.New(inmemory.New(), ratelimit.NewMemory(ratelimit.Rule{Limit: 1, Window: time.Hour}), nil, nil)
	ing := feed.NewIngester(failingSource{}, posts, []string{"a", "b"}, nil, nil)

	_, err := ing.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "a:") || !strings.Contains(err.Error(), "b:") {
		t.Fatalf("expected both feeds in error, got %v", err)
	}
}
