package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MyNameIsWhaaat/blog/internal/comment/model"
	"github.com/MyNameIsWhaaat/blog/internal/comment/storage"
	"github.com/MyNameIsWhaaat/blog/internal/image"
	"github.com/MyNameIsWhaaat/blog/internal/metrics"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTooLarge     = errors.New("image too large")
)

const cleanupParallelism = 4

type commentService struct {
	repo    storage.Repository
	posts   Posts
	images  Images
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(repo storage.Repository, posts Posts, images Images, logger *zap.Logger, m *metrics.Metrics) CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &commentService{repo: repo, posts: posts, images: images, logger: logger, metrics: m}
}

func (s *commentService) Create(ctx context.Context, in CreateInput) (model.Comment, error) {
	if in.AuthorID == "" {
		return model.Comment{}, ErrUnauthorized
	}
	text := strings.TrimSpace(in.Text)
	if err := validateText(text); err != nil {
		return model.Comment{}, err
	}
	if in.ParentID < 0 || in.PostSlug == "" {
		return model.Comment{}, ErrInvalidInput
	}

	ok, err := s.posts.Exists(ctx, in.PostSlug)
	if err != nil {
		return model.Comment{}, err
	}
	if !ok {
		return model.Comment{}, ErrNotFound
	}

	parentID := in.ParentID
	if parentID != 0 {
		parent, err := s.repo.Get(ctx, parentID)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, ErrNotFound
		}
		if err != nil {
			return model.Comment{}, err
		}
		if parent.PostSlug != in.PostSlug {
			return model.Comment{}, ErrInvalidInput
		}
		// replies stay one level deep
		if parent.ParentID != 0 {
			parentID = parent.ParentID
		}
	}

	var imageURL string
	if in.Image != nil {
		imageURL, err = s.images.Save(ctx, in.Image)
		switch {
		case errors.Is(err, image.ErrTooLarge):
			return model.Comment{}, ErrTooLarge
		case errors.Is(err, image.ErrUnsupportedType), errors.Is(err, image.ErrEmpty):
			return model.Comment{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		case err != nil:
			return model.Comment{}, fmt.Errorf("save image: %w", err)
		}
	}

	c, err := s.repo.Create(ctx, model.NewComment{
		PostSlug: in.PostSlug,
		ParentID: parentID,
		AuthorID: in.AuthorID,
		Text:     text,
		ImageURL: imageURL,
	})
	if err != nil {
		if imageURL != "" {
			s.deleteImage(ctx, 0, imageURL)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

func (s *commentService) ListThreads(ctx context.Context, postSlug string, page, limit int, sortMode model.Sort) (model.ThreadPage, error) {
	if page <= 0 || limit <= 0 || limit > 100 {
		return model.ThreadPage{}, ErrInvalidInput
	}
	if sortMode == "" {
		sortMode = model.SortCreatedAtDesc
	}
	if sortMode != model.SortCreatedAtAsc && sortMode != model.SortCreatedAtDesc {
		return model.ThreadPage{}, ErrInvalidInput
	}

	ok, err := s.posts.Exists(ctx, postSlug)
	if err != nil {
		return model.ThreadPage{}, err
	}
	if !ok {
		return model.ThreadPage{}, ErrNotFound
	}

	return s.repo.ListThreads(ctx, postSlug, page, limit, sortMode)
}

// Delete removes a comment owned by requesterID together with its replies.
// Attached images are removed first on a best-effort basis; a failed file
// removal is logged and never blocks the record delete.
func (s *commentService) Delete(ctx context.Context, id int64, requesterID string) error {
	if requesterID == "" {
		return ErrUnauthorized
	}
	if id <= 0 {
		return ErrInvalidInput
	}

	ref, err := s.repo.GetRef(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load comment %d: %w", id, err)
	}
	if ref.AuthorID != requesterID {
		return ErrForbidden
	}

	s.cleanupImages(ctx, ref)

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	s.metrics.CommentsDeleted.Add(ctx, int64(deleted))
	s.logger.Info("comment deleted", zap.Int64("comment_id", id), zap.Int("rows", deleted))
	return nil
}

func (s *commentService) cleanupImages(ctx context.Context, ref model.CommentRef) {
	var g errgroup.Group
	g.SetLimit(cleanupParallelism)

	targets := append([]model.CommentRef{ref}, ref.Replies...)
	for _, t := range targets {
		if t.ImageURL == "" {
			continue
		}
		t := t
		g.Go(func() error {
			s.deleteImage(ctx, t.ID, t.ImageURL)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *commentService) deleteImage(ctx context.Context, commentID int64, imageURL string) {
	if err := s.images.Delete(ctx, imageURL); err != nil {
		s.metrics.ImageCleanupFailures.Add(ctx, 1)
		s.logger.Warn("comment image cleanup failed",
			zap.Int64("comment_id", commentID),
			zap.String("image_url", imageURL),
			zap.Error(err),
		)
	}
}

func validateText(t string) error {
	if t == "" || len(t) > 2000 {
		return ErrInvalidInput
	}
	return nil
}
