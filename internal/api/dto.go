package api

import (
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
)

// CreateDocRequest is the request body for creating a document.
type CreateDocRequest struct {
	Path    string `json:"path" example:"guides/ruff.md" validate:"required"`
	Content string `json:"content" example:"---\ntitle: Ruff\n---\n# Ruff" validate:"required"`
}

// UpdateDocRequest is the request body for updating a document.
type UpdateDocRequest struct {
	Content string `json:"content" example:"---\ntitle: Ruff\n---\n# Updated" validate:"required"`
}

// DocDetail is the full document response type (aliased from the domain layer).
type DocDetail = docservice.DocDetail

// DocListItem is a lightweight item in a list response (aliased from the domain layer).
type DocListItem = docservice.DocListItem

// DocListResponse wraps paginated document listings.
type DocListResponse struct {
	Docs  []DocListItem `json:"docs" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"guides/ruff.md" validate:"required"`
	Title   string `json:"title" example:"Ruff" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the document link graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Edges []index.GraphEdge `json:"edges" validate:"required"`
}

// FacetResponse wraps tag or category facet counts.
type FacetResponse struct {
	Tags       []index.FacetCount `json:"tags,omitempty"`
	Categories []index.FacetCount `json:"categories,omitempty"`
}

// RenderResponse wraps a rendered document body.
type RenderResponse struct {
	Path string `json:"path" example:"guides/ruff.md" validate:"required"`
	HTML string `json:"html" example:"<h1>Ruff</h1>" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/diagram.png" validate:"required"`
}
