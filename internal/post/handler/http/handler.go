package http

import (
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/MyNameIsWhaaat/blog/internal/auth"
	"github.com/MyNameIsWhaaat/blog/internal/post/model"
	"github.com/MyNameIsWhaaat/blog/internal/post/service"
)

type Handler struct {
	svc service.PostService
}

func New(svc service.PostService) *Handler {
	return &Handler{svc: svc}
}

type createPostRequest struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

type updatePostRequest struct {
	Title   *string `json:"title"`
	Excerpt *string `json:"excerpt"`
	Content *string `json:"content"`
}

type viewResponse struct {
	Success bool   `json:"success"`
	Views   *int64 `json:"views"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) ListPosts(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid page"})
			return
		}
		page = parsed
	}

	limit := 20
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	res, err := h.svc.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, res)
}

func (h *Handler) CreatePost(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "bad json"})
		return
	}

	p, err := h.svc.Create(r.Context(), auth.FromContext(r.Context()), model.NewPost{
		Slug:    req.Slug,
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusCreated, p)
}

func (h *Handler) GetPost(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, p)
}

func (h *Handler) UpdatePost(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "bad json"})
		return
	}

	p, err := h.svc.Update(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "slug"), model.PostChanges{
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, p)
}

// RecordView always answers 200 so page rendering never waits on counting.
func (h *Handler) RecordView(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	res, err := h.svc.RecordView(r.Context(), ClientID(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeJSON(w, r, stdhttp.StatusOK, viewResponse{Success: false, Error: "failed to record view"})
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, viewResponse{Success: true, Views: res.Views})
}

// ClientID is the first X-Forwarded-For hop, then X-Real-IP, then loopback.
func ClientID(r *stdhttp.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return service.LoopbackClient
}

func writeError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid input"})
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, r, stdhttp.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, r, stdhttp.StatusForbidden, map[string]any{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, r, stdhttp.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, r, stdhttp.StatusConflict, map[string]any{"error": "slug already taken"})
	default:
		writeJSON(w, r, stdhttp.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
