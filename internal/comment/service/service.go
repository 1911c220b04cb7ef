package service

import (
	"context"
	"io"

	"github.com/MyNameIsWhaaat/blog/internal/comment/model"
)

type CommentService interface {
	Create(ctx context.Context, in CreateInput) (model.Comment, error)
	ListThreads(ctx context.Context, postSlug string, page, limit int, sort model.Sort) (model.ThreadPage, error)
	Delete(ctx context.Context, id int64, requesterID string) error
}

type CreateInput struct {
	PostSlug string
	ParentID int64
	AuthorID string
	Text     string
	// Image is optional.
	Image io.Reader
}

// Posts answers whether a post exists.
type Posts interface {
	Exists(ctx context.Context, slug string) (bool, error)
}

// Images stores comment attachments.
type Images interface {
	Save(ctx context.Context, body io.Reader) (string, error)
	Delete(ctx context.Context, imageURL string) error
}
