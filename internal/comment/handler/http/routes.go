package http

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) Register(r chi.Router) {
	r.Get("/posts/{slug}/comments", h.ListComments)
	r.Post("/posts/{slug}/comments", h.CreateComment)
	r.Delete("/comments/{id}", h.DeleteComment)
}
