// Package lint checks a document library for integrity problems: missing
// or malformed frontmatter, schema violations, unresolved internal links,
// unknown categories, malformed tags, and duplicate titles. It works
// straight off the file system so it can run against a cold checkout
// without a search index.
package lint

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/schema"
	"github.com/starford/ansuz/internal/storage"
)

// Rule names, stable identifiers for filtering and CI annotations.
const (
	RuleFrontmatterMissing = "frontmatter-missing"
	RuleFrontmatterSyntax  = "frontmatter-syntax"
	RuleFrontmatterSchema  = "frontmatter-schema"
	RuleLinkUnresolved     = "link-unresolved"
	RuleCategoryUnknown    = "category-unknown"
	RuleTagFormat          = "tag-format"
	RuleTitleDuplicate     = "title-duplicate"
)

// Severity classifies a finding. Errors fail a lint run, warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single problem located in one document. Detail carries the
// machine-readable subject of the finding (a link target, a tag, a path)
// so CI tooling does not have to parse Message.
type Finding struct {
	Path     string   `json:"path"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Detail   string   `json:"detail,omitempty"`
}

// Report aggregates the findings of one lint run.
type Report struct {
	Docs     int       `json:"docs"`
	Findings []Finding `json:"findings"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
}

// HasErrors reports whether any error-severity finding was produced.
func (r *Report) HasErrors() bool { return r.Errors > 0 }

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
	switch f.Severity {
	case SeverityError:
		r.Errors++
	default:
		r.Warnings++
	}
}

var kebabTag = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Linter walks every document in the library and applies all rules.
type Linter struct {
	store storage.Provider
	reg   *schema.Registry
}

// New creates a linter over the given library and schema registry.
func New(store storage.Provider, reg *schema.Registry) *Linter {
	return &Linter{store: store, reg: reg}
}

type parsedDoc struct {
	path   string
	result *parser.Result
}

// Run lints the whole library and returns the report. Findings are ordered
// by document path; duplicate-title findings come last.
func (l *Linter) Run() (*Report, error) {
	metas, err := l.store.List("")
	if err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Path < metas[j].Path })

	docs := make([]parsedDoc, 0, len(metas))
	paths := make(map[string]struct{}, len(metas))
	stems := make(map[string][]string, len(metas))
	for _, m := range metas {
		data, err := l.store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("lint: %w", err)
		}
		rel := filepath.ToSlash(m.Path)
		docs = append(docs, parsedDoc{path: rel, result: parser.Parse(data)})
		paths[rel] = struct{}{}
		stem := strings.ToLower(strings.TrimSuffix(path.Base(rel), ".md"))
		stems[stem] = append(stems[stem], rel)
	}

	report := &Report{Docs: len(docs)}
	for _, doc := range docs {
		l.lintFrontmatter(report, doc)
		if err := l.lintLinks(report, doc, paths, stems); err != nil {
			return nil, err
		}
	}
	l.lintTitles(report, docs)
	return report, nil
}

func (l *Linter) lintFrontmatter(report *Report, doc parsedDoc) {
	res := doc.result
	if !res.HasFrontmatter {
		report.add(Finding{
			Path:     doc.path,
			Rule:     RuleFrontmatterMissing,
			Severity: SeverityError,
			Message:  "no frontmatter block",
		})
		return
	}
	if res.FrontmatterErr != nil {
		report.add(Finding{
			Path:     doc.path,
			Rule:     RuleFrontmatterSyntax,
			Severity: SeverityError,
			Message:  fmt.Sprintf("frontmatter does not parse: %v", res.FrontmatterErr),
		})
		return
	}

	for _, issue := range l.reg.Validate(res.Meta.Category, res.Frontmatter) {
		report.add(Finding{
			Path:     doc.path,
			Rule:     RuleFrontmatterSchema,
			Severity: SeverityError,
			Message:  issue.String(),
			Detail:   issue.Location,
		})
	}

	// Only meaningful once dedicated category schemas exist; otherwise
	// every document would warn.
	if cat := res.Meta.Category; cat != "" && len(l.reg.Categories()) > 0 && !l.reg.Has(cat) {
		report.add(Finding{
			Path:     doc.path,
			Rule:     RuleCategoryUnknown,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("category %q has no schema", cat),
			Detail:   cat,
		})
	}

	for _, tag := range res.Meta.Tags {
		if !kebabTag.MatchString(tag) {
			report.add(Finding{
				Path:     doc.path,
				Rule:     RuleTagFormat,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("tag %q is not kebab-case", tag),
				Detail:   tag,
			})
		}
	}
}

func (l *Linter) lintLinks(report *Report, doc parsedDoc, paths map[string]struct{}, stems map[string][]string) error {
	for _, link := range doc.result.Links {
		canonical, ok := parser.Canonicalize(doc.path, link)
		if !ok {
			report.add(Finding{
				Path:     doc.path,
				Rule:     RuleLinkUnresolved,
				Severity: SeverityError,
				Message:  fmt.Sprintf("link target %q escapes the library root", link.Target),
				Detail:   link.Target,
			})
			continue
		}

		resolved := false
		switch {
		case link.Kind == parser.KindWikilink:
			resolved = resolveWikilink(canonical, paths, stems)
		case strings.HasSuffix(canonical, ".md"):
			_, resolved = paths[canonical]
			if !resolved {
				if root, ok := parser.CanonicalizeRoot(link); ok && root != canonical {
					_, resolved = paths[root]
				}
			}
		default:
			// Asset targets (images, attachments) are checked on disk,
			// next to the document first, then at the library root.
			exists, err := l.store.Exists(canonical)
			if err != nil {
				return fmt.Errorf("lint: %w", err)
			}
			if !exists {
				if root, ok := parser.CanonicalizeRoot(link); ok && root != canonical {
					exists, err = l.store.Exists(root)
					if err != nil {
						return fmt.Errorf("lint: %w", err)
					}
				}
			}
			resolved = exists
		}
		if !resolved {
			report.add(Finding{
				Path:     doc.path,
				Rule:     RuleLinkUnresolved,
				Severity: SeverityError,
				Message:  fmt.Sprintf("link target %q does not resolve", link.Target),
				Detail:   link.Target,
			})
		}
	}
	return nil
}

// resolveWikilink accepts an exact path match first, then falls back to a
// basename match anywhere in the library for bare stems.
func resolveWikilink(canonical string, paths map[string]struct{}, stems map[string][]string) bool {
	if _, ok := paths[canonical]; ok {
		return true
	}
	stem := strings.TrimSuffix(canonical, ".md")
	if strings.Contains(stem, "/") {
		return false
	}
	return len(stems[strings.ToLower(stem)]) > 0
}

func (l *Linter) lintTitles(report *Report, docs []parsedDoc) {
	seen := make(map[string]string, len(docs))
	for _, doc := range docs {
		title := strings.TrimSpace(doc.result.Title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if first, ok := seen[key]; ok {
			report.add(Finding{
				Path:     doc.path,
				Rule:     RuleTitleDuplicate,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("title %q already used by %s", title, first),
				Detail:   first,
			})
			continue
		}
		seen[key] = doc.path
	}
}
