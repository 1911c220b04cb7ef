package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/MyNameIsWhaaat/blog/internal/comment/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var commentColumns = []string{"id", "post_slug", "COALESCE(parent_id, 0)", "author_id", "text", "image_url", "created_at"}

type Repo struct {
	db *sql.DB
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(s scanner) (model.Comment, error) {
	var c model.Comment
	err := s.Scan(&c.ID, &c.PostSlug, &c.ParentID, &c.AuthorID, &c.Text, &c.ImageURL, &c.CreatedAt)
	return c, err
}

func (r *Repo) Create(ctx context.Context, in model.NewComment) (model.Comment, error) {
	var parent any
	if in.ParentID != 0 {
		parent = in.ParentID
	}

	var c model.Comment
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO comments(post_slug, parent_id, author_id, text, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, post_slug, COALESCE(parent_id, 0), author_id, text, image_url, created_at
	`, in.PostSlug, parent, in.AuthorID, in.Text, in.ImageURL).
		Scan(&c.ID, &c.PostSlug, &c.ParentID, &c.AuthorID, &c.Text, &c.ImageURL, &c.CreatedAt)
	if err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (model.Comment, error) {
	query, args, err := psql.Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Comment{}, err
	}
	return scanComment(r.db.QueryRowContext(ctx, query, args...))
}

func (r *Repo) ListThreads(ctx context.Context, postSlug string, page, limit int, sortMode model.Sort) (model.ThreadPage, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM comments WHERE post_slug=$1 AND parent_id IS NULL`, postSlug,
	).Scan(&total); err != nil {
		return model.ThreadPage{}, err
	}

	order := "created_at DESC, id DESC"
	if sortMode == model.SortCreatedAtAsc {
		order = "created_at ASC, id ASC"
	}

	query, args, err := psql.Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"post_slug": postSlug, "parent_id": nil}).
		OrderBy(order).
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return model.ThreadPage{}, err
	}

	roots, err := r.queryComments(ctx, query, args...)
	if err != nil {
		return model.ThreadPage{}, err
	}

	items := make([]model.Thread, 0, len(roots))
	if len(roots) == 0 {
		return model.ThreadPage{Items: items, Page: page, Limit: limit, Total: total}, nil
	}

	ids := make([]int64, 0, len(roots))
	for _, c := range roots {
		ids = append(ids, c.ID)
	}

	query, args, err = psql.Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"parent_id": ids}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return model.ThreadPage{}, err
	}
	replies, err := r.queryComments(ctx, query, args...)
	if err != nil {
		return model.ThreadPage{}, err
	}

	byParent := make(map[int64][]model.Comment, len(roots))
	for _, c := range replies {
		byParent[c.ParentID] = append(byParent[c.ParentID], c)
	}
	for _, c := range roots {
		rs := byParent[c.ID]
		if rs == nil {
			rs = []model.Comment{}
		}
		items = append(items, model.Thread{Comment: c, Replies: rs})
	}

	return model.ThreadPage{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

func (r *Repo) queryComments(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetRef(ctx context.Context, id int64) (model.CommentRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(parent_id, 0), author_id, image_url
		FROM comments
		WHERE id = $1 OR parent_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return model.CommentRef{}, err
	}
	defer rows.Close()

	var (
		ref     model.CommentRef
		found   bool
		replies []model.CommentRef
	)
	for rows.Next() {
		var (
			it       model.CommentRef
			parentID int64
		)
		if err := rows.Scan(&it.ID, &parentID, &it.AuthorID, &it.ImageURL); err != nil {
			return model.CommentRef{}, err
		}
		if it.ID == id {
			ref = it
			found = true
			continue
		}
		replies = append(replies, it)
	}
	if err := rows.Err(); err != nil {
		return model.CommentRef{}, err
	}
	if !found {
		return model.CommentRef{}, sql.ErrNoRows
	}

	ref.Replies = replies
	return ref, nil
}

// Delete issues a single DELETE; the parent_id foreign key cascades to every
// reply inside the same statement. The CTE counts the subtree from the
// snapshot taken before the delete.
func (r *Repo) Delete(ctx context.Context, id int64) (int, error) {
	var deleted int
	err := r.db.QueryRowContext(ctx, `
		WITH RECURSIVE t AS (
			SELECT id FROM comments WHERE id = $1
			UNION ALL
			SELECT c.id FROM comments c JOIN t ON c.parent_id = t.id
		),
		d AS (
			DELETE FROM comments WHERE id = $1 RETURNING id
		)
		SELECT (SELECT count(*) FROM t) FROM d
	`, id).Scan(&deleted)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
