package di

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MyNameIsWhaaat/blog/internal/app"
	commenthttp "github.com/MyNameIsWhaaat/blog/internal/comment/handler/http"
	commentservice "github.com/MyNameIsWhaaat/blog/internal/comment/service"
	commentstorage "github.com/MyNameIsWhaaat/blog/internal/comment/storage"
	commentinm "github.com/MyNameIsWhaaat/blog/internal/comment/storage/inmemory"
	commentpg "github.com/MyNameIsWhaaat/blog/internal/comment/storage/postgres"
	"github.com/MyNameIsWhaaat/blog/internal/config"
	"github.com/MyNameIsWhaaat/blog/internal/database"
	"github.com/MyNameIsWhaaat/blog/internal/feed"
	"github.com/MyNameIsWhaaat/blog/internal/image"
	"github.com/MyNameIsWhaaat/blog/internal/logging"
	"github.com/MyNameIsWhaaat/blog/internal/metrics"
	postservice "github.com/MyNameIsWhaaat/blog/internal/post/service"
	poststorage "github.com/MyNameIsWhaaat/blog/internal/post/storage"
	postinm "github.com/MyNameIsWhaaat/blog/internal/post/storage/inmemory"
	postpg "github.com/MyNameIsWhaaat/blog/internal/post/storage/postgres"
	"github.com/MyNameIsWhaaat/blog/internal/ratelimit"
)

const viewKeyPrefix = "blog:views:"

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile, cfg.Production())
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideMetricsProvider(logger *zap.Logger) (*metrics.Provider, func(), error) {
	p, err := metrics.NewProvider()
	if err != nil {
		return nil, nil, err
	}
	return p, func() {
		if err := p.Shutdown(context.Background()); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}, nil
}

func provideMetrics(p *metrics.Provider) (*metrics.Metrics, error) {
	return metrics.New(p.Meter())
}

func provideDB(cfg *config.Config, logger *zap.Logger) (*sql.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("no database url, using in-memory storage")
		return nil, func() {}, nil
	}
	db, err := database.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

func providePostRepo(db *sql.DB) poststorage.Repository {
	if db == nil {
		return postinm.New()
	}
	return postpg.New(db)
}

func provideCommentRepo(db *sql.DB) commentstorage.Repository {
	if db == nil {
		return commentinm.New()
	}
	return commentpg.New(db)
}

func provideRedis(cfg *config.Config) (*redis.Client, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideLimiter(cfg *config.Config, client *redis.Client) ratelimit.Limiter {
	rule := ratelimit.Rule{Limit: cfg.ViewLimit, Window: cfg.ViewWindow}
	if client == nil {
		return ratelimit.NewMemory(rule)
	}
	return ratelimit.NewRedis(client, rule, viewKeyPrefix)
}

// provideJanitor returns nil unless the limiter keeps its windows in process.
func provideJanitor(l ratelimit.Limiter) app.Janitor {
	if m, ok := l.(*ratelimit.Memory); ok {
		return m
	}
	return nil
}

func provideImages(cfg *config.Config) (*image.Local, error) {
	return image.NewLocal(cfg.UploadDir, cfg.MaxImageBytes)
}

func provideCommentService(
	repo commentstorage.Repository,
	posts poststorage.Repository,
	images *image.Local,
	logger *zap.Logger,
	m *metrics.Metrics,
) commentservice.CommentService {
	return commentservice.New(repo, posts, images, logger, m)
}

func provideCommentHandler(cfg *config.Config, svc commentservice.CommentService) *commenthttp.Handler {
	return commenthttp.New(svc, !cfg.Production(), cfg.MaxImageBytes)
}

func provideFeedIngester(cfg *config.Config, posts postservice.PostService, logger *zap.Logger, m *metrics.Metrics) *feed.Ingester {
	return feed.NewIngester(feed.NewFetcher(cfg.FeedTimeout), posts, cfg.FeedURLs, logger, m)
}

// provideAppIngester leaves the scheduler idle when no feeds are configured.
func provideAppIngester(cfg *config.Config, ing *feed.Ingester) app.Ingester {
	if len(cfg.FeedURLs) == 0 {
		return nil
	}
	return ing
}

func provideDiagHandler(p *metrics.Provider) http.Handler {
	return p.Handler()
}
