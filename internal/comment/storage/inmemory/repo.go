package inmemory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/MyNameIsWhaaat/blog/internal/comment/model"
)

type Repo struct {
	mu sync.RWMutex

	nextID   int64
	byID     map[int64]model.Comment
	children map[int64][]int64
	roots    map[string][]int64
}

func New() *Repo {
	return &Repo{
		nextID:   1,
		byID:     make(map[int64]model.Comment),
		children: make(map[int64][]int64),
		roots:    make(map[string][]int64),
	}
}

func (r *Repo) Create(ctx context.Context, in model.NewComment) (model.Comment, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if in.ParentID != 0 {
		if _, ok := r.byID[in.ParentID]; !ok {
			return model.Comment{}, sql.ErrNoRows
		}
	}

	c := model.Comment{
		ID:        r.nextID,
		PostSlug:  in.PostSlug,
		ParentID:  in.ParentID,
		AuthorID:  in.AuthorID,
		Text:      in.Text,
		ImageURL:  in.ImageURL,
		CreatedAt: time.Now().UTC(),
	}
	r.nextID++

	r.byID[c.ID] = c
	if c.ParentID == 0 {
		r.roots[c.PostSlug] = append(r.roots[c.PostSlug], c.ID)
	} else {
		r.children[c.ParentID] = append(r.children[c.ParentID], c.ID)
	}
	return c, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (model.Comment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return model.Comment{}, sql.ErrNoRows
	}
	return c, nil
}

func (r *Repo) ListThreads(ctx context.Context, postSlug string, page, limit int, sortMode model.Sort) (model.ThreadPage, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	rootIDs := append([]int64(nil), r.roots[postSlug]...)
	total := len(rootIDs)

	sort.Slice(rootIDs, func(i, j int) bool {
		if sortMode == model.SortCreatedAtAsc {
			return rootIDs[i] < rootIDs[j]
		}
		return rootIDs[i] > rootIDs[j]
	})

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	items := make([]model.Thread, 0, end-start)
	for _, id := range rootIDs[start:end] {
		items = append(items, r.threadLocked(id))
	}

	return model.ThreadPage{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

// threadLocked orders by id, which follows insertion order.
func (r *Repo) threadLocked(id int64) model.Thread {
	childIDs := append([]int64(nil), r.children[id]...)
	sort.Slice(childIDs, func(i, j int) bool { return childIDs[i] < childIDs[j] })

	replies := make([]model.Comment, 0, len(childIDs))
	for _, cid := range childIDs {
		replies = append(replies, r.byID[cid])
	}
	return model.Thread{Comment: r.byID[id], Replies: replies}
}

func (r *Repo) GetRef(ctx context.Context, id int64) (model.CommentRef, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return model.CommentRef{}, sql.ErrNoRows
	}

	ref := model.CommentRef{ID: c.ID, AuthorID: c.AuthorID, ImageURL: c.ImageURL}
	for _, cid := range r.children[id] {
		ch := r.byID[cid]
		ref.Replies = append(ref.Replies, model.CommentRef{ID: ch.ID, AuthorID: ch.AuthorID, ImageURL: ch.ImageURL})
	}
	return ref, nil
}

// Delete removes the comment and everything below it under one lock.
func (r *Repo) Delete(ctx context.Context, id int64) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.byID[id]
	if !ok {
		return 0, nil
	}

	toDelete := make([]int64, 0, 16)
	stack := []int64{id}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		toDelete = append(toDelete, n)
		stack = append(stack, r.children[n]...)
	}

	if root.ParentID == 0 {
		r.roots[root.PostSlug] = removeID(r.roots[root.PostSlug], id)
	} else {
		r.children[root.ParentID] = removeID(r.children[root.ParentID], id)
	}
	for _, cid := range toDelete {
		delete(r.byID, cid)
		delete(r.children, cid)
	}

	return len(toDelete), nil
}

// Len reports how many comments are stored.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func removeID(ids []int64, target int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
