package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// DocRow represents a row in the docs table.
type DocRow struct {
	Path      string
	Title     string
	Category  string
	Status    string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// ListQuery narrows and orders a ListDocs call. The zero value lists the
// 50 most recently updated documents.
type ListQuery struct {
	Tag      string
	Category string
	Status   string
	Sort     string // "updated" (default), "title", "path"
	Limit    int
	Offset   int
}

// GraphNode is one document in the link graph.
type GraphNode struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
}

// GraphEdge is one resolved link between two indexed documents.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// FacetCount pairs a facet value (tag or category) with its document count.
type FacetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes the indexed library.
type Stats struct {
	Docs     int            `json:"docs"`
	Links    int            `json:"links"`
	Tags     int            `json:"tags"`
	ByStatus map[string]int `json:"by_status"`
}

// UpsertDoc inserts or replaces a document, its FTS entry, and its outgoing
// links within a transaction.
func (db *DB) UpsertDoc(d DocRow, body string, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Store tags as a JSON array so json_each works on every row.
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	// Upsert docs table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO docs (path, title, category, status, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			category   = excluded.category,
			status     = excluded.status,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Category, d.Status, d.Checksum, string(tagsJSON), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert doc: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body, d.Tags); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, kind) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(d.Path, l.Target, l.Kind); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDoc removes a document, its FTS entry, and outgoing links.
func (db *DB) DeleteDoc(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM docs WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if
// not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM docs WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetDoc returns the indexed row for path, or nil if the document is not
// indexed.
func (db *DB) GetDoc(path string) (*DocRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, category, status, checksum, tags, updated_at
		FROM docs WHERE path = ?
	`, path)
	d, err := scanDoc(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get doc: %w", err)
	}
	return d, nil
}

// ListDocs returns one page of documents matching the query plus the total
// match count.
func (db *DB) ListDocs(q ListQuery) ([]DocRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := "1=1"
	var args []any
	if q.Tag != "" {
		// Exact element membership in the JSON tags array. A LIKE against
		// the serialized array would treat % and _ in the tag as wildcards.
		where += ` AND EXISTS (SELECT 1 FROM json_each(docs.tags) WHERE json_each.value = ?)`
		args = append(args, q.Tag)
	}
	if q.Category != "" {
		where += " AND category = ?"
		args = append(args, q.Category)
	}
	if q.Status != "" {
		where += " AND status = ?"
		args = append(args, q.Status)
	}

	order := "updated_at DESC, path"
	switch q.Sort {
	case "", "updated":
	case "title":
		order = "title COLLATE NOCASE, path"
	case "path":
		order = "path"
	default:
		return nil, 0, fmt.Errorf("index: unknown sort %q", q.Sort)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM docs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count docs: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, category, status, checksum, tags, updated_at
		FROM docs
		WHERE `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list docs: %w", err)
	}
	defer rows.Close()

	var out []DocRow
	for rows.Next() {
		d, err := scanDoc(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// Graph returns every indexed document as a node and every link whose
// target is itself indexed as an edge.
func (db *DB) Graph() ([]GraphNode, []GraphEdge, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title, category FROM docs ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.Path, &n.Title, &n.Category); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := db.conn.Query(`
		SELECT l.source, l.target, l.kind
		FROM links l
		JOIN docs d ON d.path = l.target
		ORDER BY l.source, l.target
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []GraphEdge
	for edgeRows.Next() {
		var e GraphEdge
		if err := edgeRows.Scan(&e.Source, &e.Target, &e.Kind); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return nodes, edges, edgeRows.Err()
}

// Backlinks returns all document paths that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TagCounts returns every tag with its document count, most used first.
func (db *DB) TagCounts() ([]FacetCount, error) {
	rows, err := db.conn.Query(`
		SELECT value, COUNT(*) AS n
		FROM docs, json_each(docs.tags)
		GROUP BY value
		ORDER BY n DESC, value
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tag counts: %w", err)
	}
	defer rows.Close()
	return scanFacets(rows)
}

// CategoryCounts returns every non-empty category with its document count.
func (db *DB) CategoryCounts() ([]FacetCount, error) {
	rows, err := db.conn.Query(`
		SELECT category, COUNT(*) AS n
		FROM docs
		WHERE category != ''
		GROUP BY category
		ORDER BY n DESC, category
	`)
	if err != nil {
		return nil, fmt.Errorf("index: category counts: %w", err)
	}
	defer rows.Close()
	return scanFacets(rows)
}

// Stats returns library-wide totals.
func (db *DB) Stats() (*Stats, error) {
	s := &Stats{ByStatus: make(map[string]int)}

	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM docs`).Scan(&s.Docs); err != nil {
		return nil, fmt.Errorf("index: stats docs: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM links`).Scan(&s.Links); err != nil {
		return nil, fmt.Errorf("index: stats links: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(DISTINCT value) FROM docs, json_each(docs.tags)`).Scan(&s.Tags); err != nil {
		return nil, fmt.Errorf("index: stats tags: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT CASE WHEN status = '' THEN 'unknown' ELSE status END, COUNT(*)
		FROM docs
		GROUP BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("index: stats status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		s.ByStatus[status] = n
	}
	return s, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM docs`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM docs`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func scanDoc(scan func(...any) error) (*DocRow, error) {
	var d DocRow
	var tagsJSON string
	if err := scan(&d.Path, &d.Title, &d.Category, &d.Status, &d.Checksum, &tagsJSON, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &d.Tags); err != nil {
		d.Tags = nil
	}
	return &d, nil
}

func scanFacets(rows *sql.Rows) ([]FacetCount, error) {
	var out []FacetCount
	for rows.Next() {
		var f FacetCount
		if err := rows.Scan(&f.Name, &f.Count); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
