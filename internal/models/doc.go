// Package models defines the domain types for Ansuz.
package models

import "time"

// Statuses a reference document moves through. Stored in frontmatter and
// mirrored into the catalog index for filtering.
const (
	StatusDraft      = "draft"
	StatusCurrent    = "current"
	StatusSuperseded = "superseded"
	StatusArchived   = "archived"
)

// AssetExtensions lists the attachment file types the library accepts,
// keyed by lowercase extension including the dot. Enforced on both the
// HTTP upload endpoint and the MCP upload_asset tool.
var AssetExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".svg": true, ".pdf": true,
}

// DocMetadata is a lightweight representation returned by list operations.
type DocMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a directed reference from one document to another,
// normalised to a library-relative target path.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"` // "markdown" or "wikilink"
}
