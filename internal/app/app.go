package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MyNameIsWhaaat/blog/internal/auth"
	commenthttp "github.com/MyNameIsWhaaat/blog/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/blog/internal/config"
	"github.com/MyNameIsWhaaat/blog/internal/image"
	"github.com/MyNameIsWhaaat/blog/internal/logging"
	posthttp "github.com/MyNameIsWhaaat/blog/internal/post/handler/http"
)

const ingestTimeout = 5 * time.Minute

// Janitor runs background cleanup until ctx is done.
type Janitor interface {
	Run(ctx context.Context, interval time.Duration) error
}

// Ingester imports posts from external feeds.
type Ingester interface {
	Run(ctx context.Context) (int, error)
}

// App owns the HTTP servers and background jobs.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	router   chi.Router
	diag     http.Handler
	cron     *cron.Cron
	ingester Ingester
	janitor  Janitor
}

// New builds the API router. janitor and ingester may be nil.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	diag http.Handler,
	posts *posthttp.Handler,
	comments *commenthttp.Handler,
	images *image.Local,
	ingester Ingester,
	janitor Janitor,
) *App {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(auth.Middleware(cfg.AuthUserHeader, cfg.AuthRoleHeader))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	fileServer(r, image.URLPrefix, http.Dir(images.Dir()))

	posts.Register(r)
	comments.Register(r)

	return &App{
		cfg:      cfg,
		logger:   logger,
		router:   r,
		diag:     diag,
		cron:     cron.New(),
		ingester: ingester,
		janitor:  janitor,
	}
}

// Router exposes the API routes, mostly for documentation and tests.
func (a *App) Router() chi.Router {
	return a.router
}

// fileServer serves files under prefix without directory listings.
func fileServer(r chi.Router, prefix string, root http.FileSystem) {
	fs := http.StripPrefix(prefix, http.FileServer(root))
	r.Get(prefix+"*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		fs.ServeHTTP(w, req)
	})
}

// Run serves until ctx is done, then shuts everything down within the
// configured timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduleIngest(); err != nil {
		return err
	}

	api := &http.Server{Addr: a.cfg.HTTPAddr, Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
	var diag *http.Server
	if a.diag != nil && a.cfg.DiagAddr != "" {
		dr := chi.NewRouter()
		dr.Handle("/metrics", a.diag)
		diag = &http.Server{Addr: a.cfg.DiagAddr, Handler: dr, ReadHeaderTimeout: 10 * time.Second}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("api server listening", zap.String("addr", api.Addr))
		return serve(api)
	})
	if diag != nil {
		g.Go(func() error {
			a.logger.Info("diag server listening", zap.String("addr", diag.Addr))
			return serve(diag)
		})
	}
	if a.janitor != nil {
		g.Go(func() error {
			return a.janitor.Run(gctx, 0)
		})
	}
	a.cron.Start()

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		cronDone := a.cron.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		errs := []error{api.Shutdown(shutdownCtx)}
		if diag != nil {
			errs = append(errs, diag.Shutdown(shutdownCtx))
		}
		select {
		case <-cronDone.Done():
		case <-shutdownCtx.Done():
			a.logger.Warn("scheduled ingest still running at shutdown")
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return nil
}

func (a *App) scheduleIngest() error {
	if a.ingester == nil || len(a.cfg.FeedURLs) == 0 || a.cfg.FeedSchedule == "" {
		return nil
	}
	_, err := a.cron.AddFunc(a.cfg.FeedSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		n, err := a.ingester.Run(ctx)
		if err != nil {
			a.logger.Error("scheduled ingest failed", zap.Int("created", n), zap.Error(err))
			return
		}
		a.logger.Info("scheduled ingest finished", zap.Int("created", n))
	})
	if err != nil {
		return fmt.Errorf("schedule ingest %q: %w", a.cfg.FeedSchedule, err)
	}
	a.logger.Info("feed ingest scheduled", zap.String("schedule", a.cfg.FeedSchedule), zap.Int("feeds", len(a.cfg.FeedURLs)))
	return nil
}
