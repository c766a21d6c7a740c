// Package docservice coordinates storage, index, schema, and render
// operations behind the one service type the API and MCP layers share.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/lint"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/schema"
	"github.com/starford/ansuz/internal/storage"
)

// DocDetail is the full representation of a document.
type DocDetail struct {
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	Category    string           `json:"category,omitempty"`
	Status      string           `json:"status,omitempty"`
	Content     string           `json:"content"`
	Checksum    string           `json:"checksum"`
	Tags        []string         `json:"tags"`
	Sources     []string         `json:"sources,omitempty"`
	Frontmatter map[string]any   `json:"frontmatter,omitempty"`
	Headings    []parser.Heading `json:"headings"`
	Backlinks   []string         `json:"backlinks"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DocListItem is a lightweight item in a list response.
type DocListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Status    string    `json:"status,omitempty"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidationError reports the schema issues that rejected a write.
type ValidationError struct {
	Issues []schema.Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "frontmatter rejected: " + e.Issues[0].String()
	}
	return fmt.Sprintf("frontmatter rejected: %d issues", len(e.Issues))
}

// Unwrap lets errors.Is match apperr.ErrInvalid at the API boundary.
func (e *ValidationError) Unwrap() error { return apperr.ErrInvalid }

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.DocIndex
	reg      *schema.Registry
	renderer *render.Renderer
	strict   bool
}

// NewService creates a document service. strict controls whether create and
// update reject content whose frontmatter fails schema validation.
func NewService(store storage.Provider, db index.DocIndex, reg *schema.Registry, renderer *render.Renderer, strict bool) *Service {
	return &Service{store: store, db: db, reg: reg, renderer: renderer, strict: strict}
}

// GetDoc reads a document from storage, parses it, and enriches it with
// backlinks and index metadata.
func (s *Service) GetDoc(_ context.Context, path string) (*DocDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDocDetail(path, data)
}

// CreateDoc validates, writes, and indexes a new document.
func (s *Service) CreateDoc(_ context.Context, path string, content []byte) (*DocDetail, error) {
	exists, err := s.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.validate(content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDocDetail(path, content)
}

// UpdateDoc writes updated content with optimistic concurrency.
func (s *Service) UpdateDoc(_ context.Context, path string, content []byte, ifMatch string) (*DocDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && !checksum.Matches(existing, ifMatch) {
		return nil, apperr.ErrConflict
	}
	if err := s.validate(content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDocDetail(path, content)
}

// DeleteDoc removes a document from storage and index.
func (s *Service) DeleteDoc(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteDoc(path)
}

// ListDocs returns one catalog page plus the total match count.
func (s *Service) ListDocs(_ context.Context, q index.ListQuery) ([]DocListItem, int, error) {
	rows, total, err := s.db.ListDocs(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocListItem, len(rows))
	for i, r := range rows {
		items[i] = DocListItem{
			Path:      r.Path,
			Title:     r.Title,
			Category:  r.Category,
			Status:    r.Status,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns all nodes and edges for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphEdge, error) {
	return s.db.Graph()
}

// Backlinks returns all document paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// Tags returns tag facet counts.
func (s *Service) Tags(_ context.Context) ([]index.FacetCount, error) {
	return s.db.TagCounts()
}

// Categories returns category facet counts.
func (s *Service) Categories(_ context.Context) ([]index.FacetCount, error) {
	return s.db.CategoryCounts()
}

// Stats returns library-wide totals.
func (s *Service) Stats(_ context.Context) (*index.Stats, error) {
	return s.db.Stats()
}

// RenderHTML renders a document body to HTML.
func (s *Service) RenderHTML(_ context.Context, path string) (string, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	res := parser.Parse(data)
	return s.renderer.HTML([]byte(res.Body))
}

// Lint runs the corpus linter over the whole library.
func (s *Service) Lint(_ context.Context) (*lint.Report, error) {
	return lint.New(s.store, s.reg).Run()
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexDoc(s.db, path, data, time.Now())
}

// validate applies the frontmatter contract to incoming content. It is a
// no-op unless strict writes are enabled; the batch linter covers relaxed
// libraries.
func (s *Service) validate(content []byte) error {
	if !s.strict {
		return nil
	}
	res := parser.Parse(content)
	if !res.HasFrontmatter {
		return &ValidationError{Issues: []schema.Issue{{Message: "no frontmatter block"}}}
	}
	if res.FrontmatterErr != nil {
		return &ValidationError{Issues: []schema.Issue{{
			Message: fmt.Sprintf("frontmatter does not parse: %v", res.FrontmatterErr),
		}}}
	}
	if issues := s.reg.Validate(res.Meta.Category, res.Frontmatter); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// buildDocDetail constructs a DocDetail from raw data without re-reading
// the file. The indexed row supplies updated_at when present.
func (s *Service) buildDocDetail(path string, data []byte) (*DocDetail, error) {
	res := parser.Parse(data)
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	updated := time.Now().UTC()
	if row, err := s.db.GetDoc(path); err == nil && row != nil {
		updated = row.UpdatedAt
	}
	return &DocDetail{
		Path:        path,
		Title:       res.Title,
		Category:    res.Meta.Category,
		Status:      res.Meta.Status,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Sources:     res.Meta.Sources,
		Frontmatter: res.Frontmatter,
		Headings:    nonNilSlice(res.Headings),
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   updated,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
