// Package schema validates document frontmatter against per-category
// schemas. The registry always carries a builtin default schema; a schema
// directory can add or override one schema per category.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/models"
)

// ErrInvalidSchema marks a schema definition that cannot be compiled.
var ErrInvalidSchema = errors.New("schema invalid")

// Issue captures a single frontmatter validation failure.
type Issue struct {
	Location string `json:"location,omitempty"` // instance location within the frontmatter
	Message  string `json:"message"`
}

func (i Issue) String() string {
	loc := strings.TrimSpace(i.Location)
	if loc == "" {
		loc = "#"
	} else if !strings.HasPrefix(loc, "#") {
		loc = "#" + loc
	}
	if i.Message == "" {
		return loc
	}
	return fmt.Sprintf("%s: %s", loc, i.Message)
}

// Registry maps category names to compiled frontmatter schemas.
type Registry struct {
	fallback   *jsonschema.Schema
	categories map[string]*jsonschema.Schema
}

// defaultDefinition is the builtin schema every document must satisfy when
// its category has no schema of its own: the catalog fields from the
// document format contract. Extra keys are allowed; corpora accumulate
// ad-hoc metadata.
func defaultDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"category": map[string]any{"type": "string"},
			"status": map[string]any{
				"enum": []any{
					models.StatusDraft,
					models.StatusCurrent,
					models.StatusSuperseded,
					models.StatusArchived,
				},
			},
			"sources": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"title"},
		"additionalProperties": true,
	}
}

// NewRegistry returns a registry holding only the builtin default schema.
func NewRegistry() (*Registry, error) {
	fallback, err := compile(defaultDefinition())
	if err != nil {
		return nil, fmt.Errorf("schema: compile default: %w", err)
	}
	return &Registry{
		fallback:   fallback,
		categories: make(map[string]*jsonschema.Schema),
	}, nil
}

// LoadDir loads one schema per category from dir: guide.yaml defines the
// schema for category "guide". Files may be raw JSON Schemas or the simple
// fields-list authoring form. Loading stops at the first broken file so a
// bad schema is a startup failure, not a silently skipped rule.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("schema: read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		category := strings.TrimSuffix(name, ext)

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", name, err)
		}
		compiled, err := Compile(data)
		if err != nil {
			return fmt.Errorf("schema: %s: %w", name, err)
		}
		r.categories[category] = compiled
	}
	return nil
}

// Compile parses a YAML schema definition and compiles it.
func Compile(data []byte) (*jsonschema.Schema, error) {
	var def map[string]any
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	normalized, err := normalizeDefinition(def)
	if err != nil {
		return nil, err
	}
	return compile(normalized)
}

// Has reports whether a dedicated schema exists for the category.
func (r *Registry) Has(category string) bool {
	_, ok := r.categories[category]
	return ok
}

// Categories returns the categories with dedicated schemas, sorted.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.categories))
	for c := range r.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate checks frontmatter against the category's schema, falling back
// to the builtin default when the category has none. A nil map validates
// as an empty object. The returned slice is empty for valid frontmatter.
func (r *Registry) Validate(category string, fm map[string]any) []Issue {
	target := r.fallback
	if s, ok := r.categories[category]; ok {
		target = s
	}

	if fm == nil {
		fm = map[string]any{}
	}
	payload, err := jsonValue(fm)
	if err != nil {
		return []Issue{{Message: fmt.Sprintf("frontmatter is not JSON-encodable: %v", err)}}
	}

	if err := target.Validate(payload); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return collectIssues(ve)
		}
		return []Issue{{Message: err.Error()}}
	}
	return nil
}

func compile(def map[string]any) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(encoded)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return compiled, nil
}

// jsonValue round-trips a value through JSON so YAML-specific types
// (timestamps and friends) become plain JSON values the validator accepts.
func jsonValue(v any) (any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// collectIssues flattens a validation error tree into leaf issues.
func collectIssues(err *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
