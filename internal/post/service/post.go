package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MyNameIsWhaaat/blog/internal/auth"
	"github.com/MyNameIsWhaaat/blog/internal/metrics"
	"github.com/MyNameIsWhaaat/blog/internal/post/model"
	"github.com/MyNameIsWhaaat/blog/internal/post/storage"
	"github.com/MyNameIsWhaaat/blog/internal/ratelimit"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// LoopbackClient identifies callers that sent no forwarding headers.
const LoopbackClient = "127.0.0.1"

const (
	maxTitleLen   = 300
	maxExcerptLen = 1000
)

type postService struct {
	repo    storage.Repository
	limiter ratelimit.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(repo storage.Repository, limiter ratelimit.Limiter, logger *zap.Logger, m *metrics.Metrics) PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &postService{repo: repo, limiter: limiter, logger: logger, metrics: m}
}

func (s *postService) Create(ctx context.Context, author auth.Identity, in model.NewPost) (model.Post, error) {
	if !author.Authenticated() {
		return model.Post{}, ErrUnauthorized
	}
	if !author.CanEdit() {
		return model.Post{}, ErrForbidden
	}
	in.AuthorID = author.UserID
	in.SourceURL = ""
	return s.create(ctx, in)
}

func (s *postService) Import(ctx context.Context, in model.NewPost) (model.Post, error) {
	if strings.TrimSpace(in.SourceURL) == "" {
		return model.Post{}, ErrInvalidInput
	}
	ok, err := s.repo.ExistsBySource(ctx, in.SourceURL)
	if err != nil {
		return model.Post{}, err
	}
	if ok {
		return model.Post{}, ErrConflict
	}
	return s.create(ctx, in)
}

func (s *postService) create(ctx context.Context, in model.NewPost) (model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || len(in.Title) > maxTitleLen || len(in.Excerpt) > maxExcerptLen {
		return model.Post{}, ErrInvalidInput
	}

	if in.Slug == "" {
		in.Slug = Slugify(in.Title)
	} else {
		in.Slug = Slugify(in.Slug)
	}
	if in.Slug == "" {
		return model.Post{}, ErrInvalidInput
	}

	p, err := s.repo.Create(ctx, in)
	if errors.Is(err, storage.ErrConflict) {
		return model.Post{}, ErrConflict
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("create post %s: %w", in.Slug, err)
	}
	return p, nil
}

func (s *postService) Get(ctx context.Context, slug string) (model.Post, error) {
	if slug == "" {
		return model.Post{}, ErrInvalidInput
	}
	p, err := s.repo.Get(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, ErrNotFound
	}
	if err != nil {
		return model.Post{}, err
	}
	return p, nil
}

func (s *postService) List(ctx context.Context, page, limit int) (model.PostPage, error) {
	if page <= 0 || limit <= 0 || limit > 100 {
		return model.PostPage{}, ErrInvalidInput
	}
	return s.repo.List(ctx, page, limit)
}

func (s *postService) Update(ctx context.Context, requester auth.Identity, slug string, ch model.PostChanges) (model.Post, error) {
	if !requester.Authenticated() {
		return model.Post{}, ErrUnauthorized
	}
	if ch.Title != nil {
		t := strings.TrimSpace(*ch.Title)
		if t == "" || len(t) > maxTitleLen {
			return model.Post{}, ErrInvalidInput
		}
		ch.Title = &t
	}
	if ch.Excerpt != nil && len(*ch.Excerpt) > maxExcerptLen {
		return model.Post{}, ErrInvalidInput
	}

	current, err := s.Get(ctx, slug)
	if err != nil {
		return model.Post{}, err
	}
	if !requester.IsAdmin() && !(requester.CanEdit() && current.AuthorID == requester.UserID) {
		return model.Post{}, ErrForbidden
	}

	p, err := s.repo.Update(ctx, slug, ch)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, ErrNotFound
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("update post %s: %w", slug, err)
	}
	return p, nil
}

// RecordView counts one view per client and slug per limiter window. A limited
// request is not an error: the view was counted earlier in the window.
func (s *postService) RecordView(ctx context.Context, clientID, slug string) (model.ViewResult, error) {
	if slug == "" {
		return model.ViewResult{}, ErrInvalidInput
	}
	if clientID == "" {
		clientID = LoopbackClient
	}

	allowed, err := s.limiter.Allow(ctx, ratelimit.Key(clientID, slug))
	if err != nil {
		s.metrics.ViewsFailed.Add(ctx, 1)
		s.logger.Warn("view window check failed", zap.String("slug", slug), zap.String("client", clientID), zap.Error(err))
		return model.ViewResult{}, fmt.Errorf("check view window: %w", err)
	}
	if !allowed {
		s.metrics.ViewsRateLimited.Add(ctx, 1)
		return model.ViewResult{}, nil
	}

	views, err := s.repo.IncrementViews(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.ViewsFailed.Add(ctx, 1)
		s.logger.Warn("view for unknown post", zap.String("slug", slug))
		return model.ViewResult{}, ErrNotFound
	}
	if err != nil {
		s.metrics.ViewsFailed.Add(ctx, 1)
		s.logger.Error("increment views failed", zap.String("slug", slug), zap.Error(err))
		return model.ViewResult{}, fmt.Errorf("increment views: %w", err)
	}

	s.metrics.ViewsRecorded.Add(ctx, 1)
	return model.ViewResult{Accepted: true, Views: &views}, nil
}
