package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// libraryRoot is used to resolve the attachments directory.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, libraryRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(libraryRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/docs", h.ListDocs)
	r.Post("/docs", h.CreateDoc)
	r.Get("/docs/*", h.GetDoc)
	r.Put("/docs/*", h.UpdateDoc)
	r.Delete("/docs/*", h.DeleteDoc)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)

	// Catalog facets and stats.
	r.Get("/tags", h.Tags)
	r.Get("/categories", h.Categories)
	r.Get("/stats", h.Stats)

	// Corpus linter.
	r.Get("/lint", h.Lint)

	// HTML rendering.
	r.Get("/render/*", h.Render)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
