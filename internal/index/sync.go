package index

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		// AllChecksums and IndexDoc key on slashed paths; match them so
		// the stale sweep below never deletes documents it just indexed.
		rel := filepath.ToSlash(m.Path)
		disk[rel] = struct{}{}

		if checksums[rel] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDoc(db, rel, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", rel))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDoc(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDoc parses data and upserts it into the index. Sync, the watcher,
// and the document service all index through this one path. modTime is the
// document's update instant, usually the file modtime.
func IndexDoc(db DocIndex, path string, data []byte, modTime time.Time) error {
	rel := filepath.ToSlash(path)
	res := parser.Parse(data)

	row := DocRow{
		Path:      rel,
		Title:     res.Title,
		Category:  res.Meta.Category,
		Status:    res.Meta.Status,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: modTime.UTC(),
	}
	return db.UpsertDoc(row, res.Body, docLinks(rel, res.Links))
}

// docLinks canonicalizes parsed links into library-relative document paths.
// Images and other asset targets are not part of the document graph.
func docLinks(docPath string, links []parser.Link) []models.Link {
	var out []models.Link
	for _, l := range links {
		if l.Kind == parser.KindImage {
			continue
		}
		canonical, ok := parser.Canonicalize(docPath, l)
		if !ok || !strings.HasSuffix(canonical, ".md") {
			continue
		}
		out = append(out, models.Link{Source: docPath, Target: canonical, Kind: l.Kind})
	}
	return out
}
