package feed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MyNameIsWhaaat/blog/internal/metrics"
	"github.com/MyNameIsWhaaat/blog/internal/post/model"
	"github.com/MyNameIsWhaaat/blog/internal/post/service"
)

const excerptRunes = 280

type Source interface {
	Fetch(ctx context.Context, url string) ([]Item, error)
}

type Importer interface {
	Import(ctx context.Context, in model.NewPost) (model.Post, error)
}

// Ingester turns RSS items into posts.
type Ingester struct {
	source  Source
	posts   Importer
	urls    []string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewIngester(source Source, posts Importer, urls []string, logger *zap.Logger, m *metrics.Metrics) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Ingester{source: source, posts: posts, urls: urls, logger: logger, metrics: m}
}

// Run ingests every configured feed and returns how many posts were created.
// A failing feed is logged and reported in the joined error; the others
// still run.
func (i *Ingester) Run(ctx context.Context) (int, error) {
	var (
		created int
		errs    []error
	)
	for _, url := range i.urls {
		n, err := i.ingest(ctx, url)
		created += n
		if err != nil {
			i.logger.Error("feed ingest failed", zap.String("feed", url), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		i.logger.Info("feed ingested", zap.String("feed", url), zap.Int("created", n))
	}
	return created, errors.Join(errs...)
}

func (i *Ingester) ingest(ctx context.Context, url string) (int, error) {
	items, err := i.source.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		text := PlainText(it.Description)
		_, err := i.posts.Import(ctx, model.NewPost{
			Title:     it.Title,
			Excerpt:   Truncate(text, excerptRunes),
			Content:   text,
			SourceURL: it.Link,
			CreatedAt: it.Published,
		})
		switch {
		case err == nil:
			created++
			i.metrics.FeedItemsIngested.Add(ctx, 1)
		case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidInput):
			i.logger.Debug("feed item skipped", zap.String("link", it.Link), zap.Error(err))
		default:
			return created, fmt.Errorf("import %s: %w", it.Link, err)
		}
	}
	return created, nil
}
