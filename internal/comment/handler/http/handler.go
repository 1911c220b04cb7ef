package http

import (
	"encoding/json"
	"errors"
	"mime"
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/MyNameIsWhaaat/blog/internal/auth"
	"github.com/MyNameIsWhaaat/blog/internal/comment/model"
	"github.com/MyNameIsWhaaat/blog/internal/comment/service"
)

// multipart overhead allowed on top of the image limit
const formSlack = 1 << 20

type Handler struct {
	svc      service.CommentService
	verbose  bool
	maxImage int64
}

// New builds the comment handler. verbose adds error details to 500 bodies
// and must be off in production.
func New(svc service.CommentService, verbose bool, maxImage int64) *Handler {
	return &Handler{svc: svc, verbose: verbose, maxImage: maxImage}
}

type createCommentRequest struct {
	ParentID int64  `json:"parent_id"`
	Text     string `json:"text"`
}

func (h *Handler) CreateComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	in := service.CreateInput{
		PostSlug: chi.URLParam(r, "slug"),
		AuthorID: auth.FromContext(r.Context()).UserID,
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = stdhttp.MaxBytesReader(w, r.Body, h.maxImage+formSlack)
		if err := r.ParseMultipartForm(h.maxImage); err != nil {
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "bad form"})
			return
		}
		if v := r.FormValue("parent_id"); v != "" {
			parsed, err := parseInt64(v)
			if err != nil {
				writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid parent_id"})
				return
			}
			in.ParentID = parsed
		}
		in.Text = r.FormValue("text")

		file, _, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			in.Image = file
		case !errors.Is(err, stdhttp.ErrMissingFile):
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "bad image"})
			return
		}
	} else {
		var req createCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "bad json"})
			return
		}
		in.ParentID = req.ParentID
		in.Text = req.Text
	}

	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusCreated, c)
}

func (h *Handler) ListComments(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		parsed, err := parseInt(v)
		if err != nil {
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid page"})
			return
		}
		page = parsed
	}

	limit := 20
	if v := q.Get("limit"); v != "" {
		parsed, err := parseInt(v)
		if err != nil {
			writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	res, err := h.svc.ListThreads(r.Context(), chi.URLParam(r, "slug"), page, limit, model.Sort(q.Get("sort")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, res)
}

func (h *Handler) DeleteComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, err := parseInt64(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid id"})
		return
	}

	if err := h.svc.Delete(r.Context(), id, auth.FromContext(r.Context()).UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, map[string]any{"success": true})
}

func (h *Handler) writeError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, r, stdhttp.StatusBadRequest, map[string]any{"error": "invalid input"})
	case errors.Is(err, service.ErrTooLarge):
		writeJSON(w, r, stdhttp.StatusRequestEntityTooLarge, map[string]any{"error": "image too large"})
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, r, stdhttp.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, r, stdhttp.StatusForbidden, map[string]any{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, r, stdhttp.StatusNotFound, map[string]any{"error": "not found"})
	default:
		body := map[string]any{"error": "internal error"}
		if h.verbose {
			body["detail"] = err.Error()
		}
		writeJSON(w, r, stdhttp.StatusInternalServerError, body)
	}
}

func writeJSON(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func parseInt64(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}
