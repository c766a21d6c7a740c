package index

import "github.com/starford/ansuz/internal/models"

// DocIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocIndex interface {
	UpsertDoc(d DocRow, body string, links []models.Link) error
	DeleteDoc(path string) error
	GetChecksum(path string) (string, error)
	GetDoc(path string) (*DocRow, error)
	ListDocs(q ListQuery) ([]DocRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphEdge, error)
	Backlinks(target string) ([]string, error)
	TagCounts() ([]FacetCount, error)
	CategoryCounts() ([]FacetCount, error)
	Stats() (*Stats, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocIndex at compile time.
var _ DocIndex = (*DB)(nil)
