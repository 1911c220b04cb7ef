//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/MyNameIsWhaaat/blog/internal/app"
	"github.com/MyNameIsWhaaat/blog/internal/config"
	"github.com/MyNameIsWhaaat/blog/internal/feed"
	posthttp "github.com/MyNameIsWhaaat/blog/internal/post/handler/http"
	postservice "github.com/MyNameIsWhaaat/blog/internal/post/service"
)

var storageSet = wire.NewSet(
	provideDB,
	providePostRepo,
	provideCommentRepo,
	provideRedis,
	provideLimiter,
)

var coreSet = wire.NewSet(
	provideLogger,
	provideMetricsProvider,
	provideMetrics,
	storageSet,
	postservice.New,
	provideFeedIngester,
)

// InitializeApp wires the API servers and background jobs.
func InitializeApp(cfg *config.Config) (*app.App, func(), error) {
	wire.Build(
		coreSet,
		provideJanitor,
		provideImages,
		provideCommentService,
		posthttp.New,
		provideCommentHandler,
		provideAppIngester,
		provideDiagHandler,
		app.New,
	)
	return nil, nil, nil
}

// InitializeIngester wires a one-shot feed import.
func InitializeIngester(cfg *config.Config) (*feed.Ingester, func(), error) {
	wire.Build(coreSet)
	return nil, nil, nil
}
