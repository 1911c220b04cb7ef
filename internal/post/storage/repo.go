package storage

import (
	"context"
	"errors"

	"github.com/MyNameIsWhaaat/blog/internal/post/model"
)

// ErrConflict is returned by Create when the slug or source url is taken.
var ErrConflict = errors.New("post already exists")

// Repository misses are reported as sql.ErrNoRows.
type Repository interface {
	Create(ctx context.Context, p model.NewPost) (model.Post, error)
	Get(ctx context.Context, slug string) (model.Post, error)
	List(ctx context.Context, page, limit int) (model.PostPage, error)
	Update(ctx context.Context, slug string, ch model.PostChanges) (model.Post, error)
	Exists(ctx context.Context, slug string) (bool, error)
	ExistsBySource(ctx context.Context, sourceURL string) (bool, error)
	IncrementViews(ctx context.Context, slug string) (int64, error)
}
