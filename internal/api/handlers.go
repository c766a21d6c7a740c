package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the URL (everything after the
// route prefix). Supports encoded slashes from OpenAPI clients
// (e.g. guides%2Fdoc.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocs handles GET /api/docs.
//
//	@Summary		List documents with pagination and catalog filters
//	@Tags			docs
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			status		query		string	false	"Filter by status"
//	@Param			sort		query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200			{object}	DocListResponse
//	@Security		BearerAuth
//	@Router			/docs [get]
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	sort := q.Get("sort")
	if err := validation.Validate(sort, validation.In("", "updated", "title", "path")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid sort: must be one of updated, title, path"))
		return
	}

	items, total, err := h.svc.ListDocs(r.Context(), index.ListQuery{
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Sort:     sort,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		slog.Error("list docs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"docs":  items,
		"total": total,
	})
}

// GetDoc handles GET /api/docs/*.
//
//	@Summary		Get a single document by path
//	@Tags			docs
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/docs/{path} [get]
func (h *Handler) GetDoc(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDoc(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get doc failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateDoc handles POST /api/docs.
//
//	@Summary		Create a new document
//	@Tags			docs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocRequest	true	"Document to create"
//	@Success		201		{object}	DocDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	ValidationResponse
//	@Security		BearerAuth
//	@Router			/docs [post]
func (h *Handler) CreateDoc(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	doc, err := h.svc.CreateDoc(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		var verr *docservice.ValidationError
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("document already exists"))
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, validationBody(verr))
		default:
			slog.Error("create doc failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDoc handles PUT /api/docs/*.
//
//	@Summary		Update a document with optimistic concurrency
//	@Tags			docs
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Document path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocRequest	true	"Updated content"
//	@Success		200			{object}	DocDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	ValidationResponse
//	@Security		BearerAuth
//	@Router			/docs/{path} [put]
func (h *Handler) UpdateDoc(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	doc, err := h.svc.UpdateDoc(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		var verr *docservice.ValidationError
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, validationBody(verr))
		default:
			slog.Error("update doc failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDoc handles DELETE /api/docs/*.
//
//	@Summary		Delete a document
//	@Tags			docs
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/docs/{path} [delete]
func (h *Handler) DeleteDoc(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDoc(r.Context(), path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("delete doc failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the document link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, edges, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"edges": edges,
	})
}

// Tags handles GET /api/tags.
//
//	@Summary		Tag facet counts
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	FacetResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		slog.Error("tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// Categories handles GET /api/categories.
//
//	@Summary		Category facet counts
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	FacetResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		slog.Error("categories failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// Stats handles GET /api/stats.
//
//	@Summary		Library statistics
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	index.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Lint handles GET /api/lint.
//
//	@Summary		Run the corpus linter and return the report
//	@Tags			lint
//	@Produce		json
//	@Success		200	{object}	lint.Report
//	@Security		BearerAuth
//	@Router			/lint [get]
func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Lint(r.Context())
	if err != nil {
		slog.Error("lint failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Render handles GET /api/render/*.
//
//	@Summary		Render a document body to HTML
//	@Tags			docs
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	RenderResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/{path} [get]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	html, err := h.svc.RenderHTML(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("render failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path": path,
		"html": html,
	})
}
