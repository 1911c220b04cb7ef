package http

import (
	"github.com/go-chi/chi/v5"
)

// Register adds the post routes. Comment routes share the /posts/{slug}
// prefix, so nothing here is mounted as a sub-router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/{slug}", h.GetPost)
	r.Put("/posts/{slug}", h.UpdatePost)
	r.Post("/posts/{slug}/views", h.RecordView)
}
