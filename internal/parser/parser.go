// Package parser extracts frontmatter, links, tags, and outline structure
// from Markdown reference documents.
package parser

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Link kinds produced by Parse.
const (
	KindMarkdown = "markdown"
	KindWikilink = "wikilink"
	KindImage    = "image"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

	// Frontmatter fences parsed with yaml.v3 so nested mappings decode to
	// map[string]any and survive JSON re-encoding.
	yamlFences = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

	// Shared goldmark parser; stateless, safe for concurrent use.
	bodyParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()
)

// Link is a reference extracted from a document body. Target is the raw
// destination as written; Canonicalize resolves it to a library path.
type Link struct {
	Target string
	Kind   string
}

// Heading is one entry in a document's outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Meta holds the typed catalog fields from frontmatter.
type Meta struct {
	Title    string
	Tags     []string
	Category string
	Status   string
	Sources  []string
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	// HasFrontmatter reports whether the file opens with --- fences,
	// even when the block failed to parse.
	HasFrontmatter bool
	// FrontmatterErr records a YAML syntax failure for the linter.
	// Parse itself never fails on it: the file degrades to body-only.
	FrontmatterErr error
	Meta           Meta
	Body           string
	Links          []Link
	Headings       []Heading
	Tags           []string
	Title          string
}

// Parse extracts frontmatter, body, links, tags, and headings from raw
// Markdown bytes. It never fails: malformed frontmatter degrades to a
// body-only result with FrontmatterErr set.
func Parse(data []byte) *Result {
	fm, hasFM, body, fmErr := splitFrontmatter(data)

	meta := extractMeta(fm)
	links, headings := scanBody([]byte(body))
	links = dedupLinks(append(links, extractWikilinks(body)...))

	return &Result{
		Frontmatter:    fm,
		HasFrontmatter: hasFM,
		FrontmatterErr: fmErr,
		Meta:           meta,
		Body:           body,
		Links:          links,
		Headings:       headings,
		Tags:           extractTags(body, meta.Tags),
		Title:          deriveTitle(meta.Title, headings),
	}
}

// splitFrontmatter separates the YAML block (between leading --- fences)
// from the Markdown body. Files without fences are all body. A malformed
// block also degrades to body-only, with the YAML error recorded so the
// linter can report it; hand-authored metadata must not make reads fail.
func splitFrontmatter(data []byte) (map[string]any, bool, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---")) {
		return nil, false, string(data), nil
	}

	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(trimmed), &fm, yamlFences)
	if err != nil {
		return nil, true, string(data), err
	}
	return fm, true, strings.TrimLeft(string(rest), "\n\r"), nil
}

// extractMeta pulls the typed catalog fields out of the frontmatter map.
func extractMeta(fm map[string]any) Meta {
	return Meta{
		Title:    stringField(fm, "title"),
		Tags:     stringList(fm, "tags"),
		Category: stringField(fm, "category"),
		Status:   stringField(fm, "status"),
		Sources:  stringList(fm, "sources"),
	}
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func stringList(fm map[string]any, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// scanBody walks the goldmark AST collecting link destinations, image
// destinations, and the heading outline.
func scanBody(source []byte) ([]Link, []Heading) {
	if len(source) == 0 {
		return nil, nil
	}
	root := bodyParser.Parse(text.NewReader(source))

	var links []Link
	var headings []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			if t := internalTarget(string(v.Destination)); t != "" {
				links = append(links, Link{Target: t, Kind: KindMarkdown})
			}
		case *ast.Image:
			if t := internalTarget(string(v.Destination)); t != "" {
				links = append(links, Link{Target: t, Kind: KindImage})
			}
		case *ast.Heading:
			headings = append(headings, Heading{
				Level: v.Level,
				Text:  string(v.Text(source)),
			})
		}
		return ast.WalkContinue, nil
	})
	return links, headings
}

// internalTarget normalises a link destination, returning empty for
// external URLs and same-document fragment links.
func internalTarget(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return ""
	}
	lower := strings.ToLower(dest)
	for _, prefix := range []string{"http://", "https://", "mailto:", "ftp://", "//"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}
	// Strip fragment and query; a bare fragment references this document.
	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	return dest
}

// extractWikilinks returns [[wikilink]] targets, normalising aliases.
func extractWikilinks(body string) []Link {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	var out []Link
	for _, m := range matches {
		target := m[1]
		// Handle aliases: [[Target|Alias]] → Target.
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		out = append(out, Link{Target: target, Kind: KindWikilink})
	}
	return out
}

func dedupLinks(links []Link) []Link {
	seen := make(map[Link]struct{}, len(links))
	var out []Link
	for _, l := range links {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// extractTags collects tags from the frontmatter list and inline #tags
// from the body, deduplicated in first-seen order.
func extractTags(body string, fmTags []string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, t := range fmTags {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	matches := tagRe.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(metaTitle string, headings []Heading) string {
	if metaTitle != "" {
		return metaTitle
	}
	for _, h := range headings {
		if h.Level == 1 {
			return strings.TrimSpace(h.Text)
		}
	}
	return ""
}

// Canonicalize resolves a raw link target against the document containing
// it, returning a library-relative path. ok is false when the target cannot
// reference a library file (it escapes the root, or resolves to nothing).
//
// Wikilink targets are root-relative path stems without extension
// ([[guides/ruff]] → guides/ruff.md). Markdown and image targets resolve
// like URLs: a leading slash is library-absolute, anything else is relative
// to the linking document's directory.
func Canonicalize(docPath string, l Link) (string, bool) {
	target := strings.TrimSpace(l.Target)
	if target == "" {
		return "", false
	}

	if l.Kind == KindWikilink {
		stem := path.Clean(strings.TrimSuffix(target, ".md"))
		if stem == "." || stem == ".." || strings.HasPrefix(stem, "../") {
			return "", false
		}
		return stem + ".md", true
	}

	var resolved string
	if strings.HasPrefix(target, "/") {
		resolved = path.Clean(strings.TrimPrefix(target, "/"))
	} else {
		resolved = path.Join(path.Dir(docPath), target)
	}
	if resolved == "." || resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", false
	}
	return resolved, true
}

// CanonicalizeRoot resolves a relative link target against the library root,
// the second attempt when the document-relative path from Canonicalize does
// not exist. Wikilinks and absolute targets are root-relative already, so ok
// is false for those.
func CanonicalizeRoot(l Link) (string, bool) {
	if l.Kind == KindWikilink || strings.HasPrefix(strings.TrimSpace(l.Target), "/") {
		return "", false
	}
	return Canonicalize(".", l)
}
