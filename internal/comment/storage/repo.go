package storage

import (
	"context"

	"github.com/MyNameIsWhaaat/blog/internal/comment/model"
)

// Repository misses are reported as sql.ErrNoRows.
type Repository interface {
	Create(ctx context.Context, c model.NewComment) (model.Comment, error)
	Get(ctx context.Context, id int64) (model.Comment, error)
	ListThreads(ctx context.Context, postSlug string, page, limit int, sort model.Sort) (model.ThreadPage, error)
	// GetRef loads the comment and its direct replies.
	GetRef(ctx context.Context, id int64) (model.CommentRef, error)
	// Delete removes the comment and its replies in one atomic operation and
	// reports how many rows went away.
	Delete(ctx context.Context, id int64) (int, error)
}
