// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the document library to LLM agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with library tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *docservice.Service
	store storage.Provider
}

// New creates a new MCP server with all library tools registered.
func New(svc *docservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_docs",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocs)

	s.mcp.AddTool(mcp.NewTool("read_doc",
		mcp.WithDescription("Read the full content of a Markdown reference document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. guides/ruff.md)")),
	), s.readDoc)

	s.mcp.AddTool(mcp.NewTool("list_docs",
		mcp.WithDescription("List all documents or documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocs)

	s.mcp.AddTool(mcp.NewTool("create_doc",
		mcp.WithDescription("Create a new Markdown reference document at the specified path. "+
			"Content MUST follow the canonical document format (YAML frontmatter with title, "+
			"optional tags/category/status/sources, Markdown body). The frontmatter is "+
			"validated against the library schema before the write is accepted. Read the "+
			"contract first via the get_doc_contract tool or the ansuz://doc-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the document format contract")),
	), s.createDoc)

	s.mcp.AddTool(mcp.NewTool("update_doc",
		mcp.WithDescription("Overwrite an existing document. Pass the checksum returned by an "+
			"earlier read to detect concurrent edits; the write is rejected on mismatch. "+
			"Frontmatter is schema-validated like create_doc."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the document to update")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Replacement Markdown content")),
		mcp.WithString("checksum", mcp.Description("Optional SHA-256 checksum for optimistic concurrency")),
	), s.updateDoc)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("lint_library",
		mcp.WithDescription("Run the corpus linter over the whole library: frontmatter "+
			"presence/syntax/schema, internal link resolution, tag format, duplicate "+
			"titles. Returns the JSON report. Use this to verify the corpus after editing."),
	), s.lintLibrary)

	s.mcp.AddTool(mcp.NewTool("get_doc_contract",
		mcp.WithDescription("Returns the canonical document format contract. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getDocContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image or diagram (HTTP/HTTPS URL or base64 data URI), "+
			"validate its content, and store it under attachments/. Returns the Markdown "+
			"image syntax to embed in a document body."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename; the extension decides the asset type")),
	), s.uploadAsset)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://doc-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical Markdown reference-document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) createDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.svc.CreateDoc(ctx, path, []byte(content))
	if err != nil {
		return toolWriteError(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (checksum %s)", path, doc.Checksum)), nil
}

func (s *Server) updateDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cs := ""
	if v, csErr := req.RequireString("checksum"); csErr == nil {
		cs = v
	}

	doc, err := s.svc.UpdateDoc(ctx, path, []byte(content), cs)
	if err != nil {
		return toolWriteError(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", path, doc.Checksum)), nil
}

// toolWriteError maps write-path failures to agent-readable tool errors.
func toolWriteError(path string, err error) *mcp.CallToolResult {
	var verr *docservice.ValidationError
	switch {
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", path))
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("checksum mismatch: %s changed since it was read", path))
	case errors.As(err, &verr):
		out, _ := json.MarshalIndent(verr.Issues, "", "  ")
		return mcp.NewToolResultError("frontmatter validation failed:\n" + string(out))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) lintLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Lint(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocFormatContract), nil
}

func (s *Server) readDocFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://doc-format",
			MIMEType: "text/markdown",
			Text:     DocFormatContract,
		},
	}, nil
}
