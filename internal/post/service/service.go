package service

import (
	"context"

	"github.com/MyNameIsWhaaat/blog/internal/auth"
	"github.com/MyNameIsWhaaat/blog/internal/post/model"
)

type PostService interface {
	Create(ctx context.Context, author auth.Identity, in model.NewPost) (model.Post, error)
	// Import stores a post that came from an RSS feed. It skips editor checks.
	Import(ctx context.Context, in model.NewPost) (model.Post, error)
	Get(ctx context.Context, slug string) (model.Post, error)
	List(ctx context.Context, page, limit int) (model.PostPage, error)
	Update(ctx context.Context, requester auth.Identity, slug string, ch model.PostChanges) (model.Post, error)
	RecordView(ctx context.Context, clientID, slug string) (model.ViewResult, error)
}
