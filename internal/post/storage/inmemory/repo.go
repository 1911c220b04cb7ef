package inmemory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/MyNameIsWhaaat/blog/internal/post/model"
	"github.com/MyNameIsWhaaat/blog/internal/post/storage"
)

type Repo struct {
	mu sync.RWMutex

	nextID   int64
	bySlug   map[string]*model.Post
	bySource map[string]string
}

func New() *Repo {
	return &Repo{
		nextID:   1,
		bySlug:   make(map[string]*model.Post),
		bySource: make(map[string]string),
	}
}

func (r *Repo) Create(ctx context.Context, p model.NewPost) (model.Post, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySlug[p.Slug]; ok {
		return model.Post{}, storage.ErrConflict
	}
	if p.SourceURL != "" {
		if _, ok := r.bySource[p.SourceURL]; ok {
			return model.Post{}, storage.ErrConflict
		}
	}

	now := time.Now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	post := &model.Post{
		ID:        r.nextID,
		Slug:      p.Slug,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		AuthorID:  p.AuthorID,
		SourceURL: p.SourceURL,
		CreatedAt: created,
		UpdatedAt: now,
	}
	r.nextID++

	r.bySlug[post.Slug] = post
	if post.SourceURL != "" {
		r.bySource[post.SourceURL] = post.Slug
	}
	return *post, nil
}

func (r *Repo) Get(ctx context.Context, slug string) (model.Post, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.bySlug[slug]
	if !ok {
		return model.Post{}, sql.ErrNoRows
	}
	return *p, nil
}

func (r *Repo) List(ctx context.Context, page, limit int) (model.PostPage, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]model.Post, 0, len(r.bySlug))
	for _, p := range r.bySlug {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return model.PostPage{
		Items: all[start:end],
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

func (r *Repo) Update(ctx context.Context, slug string, ch model.PostChanges) (model.Post, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.bySlug[slug]
	if !ok {
		return model.Post{}, sql.ErrNoRows
	}
	if ch.Title != nil {
		p.Title = *ch.Title
	}
	if ch.Excerpt != nil {
		p.Excerpt = *ch.Excerpt
	}
	if ch.Content != nil {
		p.Content = *ch.Content
	}
	p.UpdatedAt = time.Now().UTC()
	return *p, nil
}

func (r *Repo) Exists(ctx context.Context, slug string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySlug[slug]
	return ok, nil
}

func (r *Repo) ExistsBySource(ctx context.Context, sourceURL string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySource[sourceURL]
	return ok, nil
}

func (r *Repo) IncrementViews(ctx context.Context, slug string) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.bySlug[slug]
	if !ok {
		return 0, sql.ErrNoRows
	}
	p.Views++
	return p.Views, nil
}

// SetViews seeds a view count.
func (r *Repo) SetViews(slug string, views int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.bySlug[slug]; ok {
		p.Views = views
	}
}
