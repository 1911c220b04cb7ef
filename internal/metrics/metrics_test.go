package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProviderExposesCounters(t *testing.T) {
	p, err := NewProvider()
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	m, err := New(p.Meter())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ViewsRecorded.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "views") || !strings.Contains(string(body), "recorded") {
		t.Fatalf("expected the views counter in output:\n%s", body)
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	m := Nop()
	m.ImageCleanupFailures.Add(context.Background(), 1)
}
