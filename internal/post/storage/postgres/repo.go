package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MyNameIsWhaaat/blog/internal/database"
	"github.com/MyNameIsWhaaat/blog/internal/post/model"
	"github.com/MyNameIsWhaaat/blog/internal/post/storage"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var postColumns = []string{
	"id", "slug", "title", "excerpt", "content", "author_id", "source_url", "views", "created_at", "updated_at",
}

var returningPost = "RETURNING " + strings.Join(postColumns, ", ")

type Repo struct {
	db *sql.DB
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (model.Post, error) {
	var p model.Post
	err := s.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.Content, &p.AuthorID, &p.SourceURL, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) Create(ctx context.Context, p model.NewPost) (model.Post, error) {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	query, args, err := psql.Insert("posts").
		Columns("slug", "title", "excerpt", "content", "author_id", "source_url", "created_at").
		Values(p.Slug, p.Title, p.Excerpt, p.Content, p.AuthorID, p.SourceURL, created).
		Suffix(returningPost).
		ToSql()
	if err != nil {
		return model.Post{}, err
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if database.IsUniqueViolation(err) {
		return model.Post{}, storage.ErrConflict
	}
	if err != nil {
		return model.Post{}, err
	}
	return post, nil
}

func (r *Repo) Get(ctx context.Context, slug string) (model.Post, error) {
	query, args, err := psql.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"slug": slug}).
		ToSql()
	if err != nil {
		return model.Post{}, err
	}
	return scanPost(r.db.QueryRowContext(ctx, query, args...))
}

func (r *Repo) List(ctx context.Context, page, limit int) (model.PostPage, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&total); err != nil {
		return model.PostPage{}, err
	}

	query, args, err := psql.Select(postColumns...).
		From("posts").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return model.PostPage{}, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.PostPage{}, err
	}
	defer rows.Close()

	items := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return model.PostPage{}, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return model.PostPage{}, err
	}

	return model.PostPage{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

func (r *Repo) Update(ctx context.Context, slug string, ch model.PostChanges) (model.Post, error) {
	b := psql.Update("posts").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"slug": slug}).
		Suffix(returningPost)
	if ch.Title != nil {
		b = b.Set("title", *ch.Title)
	}
	if ch.Excerpt != nil {
		b = b.Set("excerpt", *ch.Excerpt)
	}
	if ch.Content != nil {
		b = b.Set("content", *ch.Content)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return model.Post{}, err
	}
	return scanPost(r.db.QueryRowContext(ctx, query, args...))
}

func (r *Repo) Exists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE slug=$1`, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) ExistsBySource(ctx context.Context, sourceURL string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE source_url=$1 AND source_url <> ''`, sourceURL).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// IncrementViews relies on the row lock taken by UPDATE, so concurrent
// increments never lose counts.
func (r *Repo) IncrementViews(ctx context.Context, slug string) (int64, error) {
	query, args, err := psql.Update("posts").
		Set("views", sq.Expr("views + 1")).
		Where(sq.Eq{"slug": slug}).
		Suffix("RETURNING views").
		ToSql()
	if err != nil {
		return 0, err
	}

	var views int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&views); err != nil {
		return 0, err
	}
	return views, nil
}
