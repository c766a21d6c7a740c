package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRegistry_DefaultSchemaAcceptsContractFields(t *testing.T) {
	reg := mustRegistry(t)
	fm := map[string]any{
		"title":    "Ruff Guide",
		"tags":     []any{"python", "linting"},
		"category": "guides",
		"status":   "current",
		"sources":  []any{"https://docs.astral.sh/ruff/"},
		"custom":   map[string]any{"anything": true},
	}
	if issues := reg.Validate("guides", fm); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestRegistry_DefaultSchemaRequiresTitle(t *testing.T) {
	reg := mustRegistry(t)
	issues := reg.Validate("guides", map[string]any{"status": "draft"})
	if len(issues) == 0 {
		t.Fatal("expected a missing-title issue")
	}
	found := false
	for _, i := range issues {
		if strings.Contains(i.Message, "title") {
			found = true
		}
	}
	if !found {
		t.Errorf("no issue mentions title: %v", issues)
	}
}

func TestRegistry_DefaultSchemaStatusEnum(t *testing.T) {
	reg := mustRegistry(t)
	issues := reg.Validate("", map[string]any{"title": "X", "status": "bogus"})
	if len(issues) == 0 {
		t.Fatal("expected a status enum issue")
	}
	if issues[0].Location != "/status" {
		t.Errorf("location = %q, want /status", issues[0].Location)
	}
}

func TestRegistry_DefaultSchemaTagsMustBeList(t *testing.T) {
	reg := mustRegistry(t)
	issues := reg.Validate("", map[string]any{"title": "X", "tags": "not-a-list"})
	if len(issues) == 0 {
		t.Fatal("expected a tags type issue")
	}
	if issues[0].Location != "/tags" {
		t.Errorf("location = %q, want /tags", issues[0].Location)
	}
}

func TestRegistry_NilFrontmatterValidatesAsEmpty(t *testing.T) {
	reg := mustRegistry(t)
	issues := reg.Validate("", nil)
	if len(issues) == 0 {
		t.Fatal("empty frontmatter should fail the title requirement")
	}
}

func writeSchema(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_LoadDirFieldsForm(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "guide.yaml", `
fields:
  - name: title
    type: string
    required: true
  - name: difficulty
    type: string
    enum: [beginner, advanced]
    required: true
additional: false
`)
	writeSchema(t, dir, "readme.txt", "ignored")

	reg := mustRegistry(t)
	if err := reg.LoadDir(dir); err != nil {
		t.Fatal(err)
	}
	if !reg.Has("guide") {
		t.Fatal("guide schema should be registered")
	}
	if cats := reg.Categories(); len(cats) != 1 || cats[0] != "guide" {
		t.Errorf("categories = %v, want [guide]", cats)
	}

	if issues := reg.Validate("guide", map[string]any{"title": "X", "difficulty": "beginner"}); len(issues) != 0 {
		t.Errorf("valid doc rejected: %v", issues)
	}

	issues := reg.Validate("guide", map[string]any{"title": "X", "difficulty": "expert"})
	if len(issues) == 0 {
		t.Error("expected a difficulty enum issue")
	}

	issues = reg.Validate("guide", map[string]any{"title": "X", "difficulty": "beginner", "extra": 1})
	if len(issues) == 0 {
		t.Error("additional: false should reject unknown keys")
	}
}

func TestRegistry_LoadDirRawJSONSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "runbook.yaml", `
type: object
properties:
  severity:
    type: integer
required: [severity]
`)

	reg := mustRegistry(t)
	if err := reg.LoadDir(dir); err != nil {
		t.Fatal(err)
	}
	if issues := reg.Validate("runbook", map[string]any{"severity": 3}); len(issues) != 0 {
		t.Errorf("valid doc rejected: %v", issues)
	}
	if issues := reg.Validate("runbook", map[string]any{}); len(issues) == 0 {
		t.Error("missing severity should fail")
	}
}

func TestRegistry_UnknownCategoryFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "guide.yaml", "fields:\n  - name: title\n    type: string\n    required: true\n")

	reg := mustRegistry(t)
	if err := reg.LoadDir(dir); err != nil {
		t.Fatal(err)
	}
	// No dedicated schema for "misc": the builtin default applies.
	if issues := reg.Validate("misc", map[string]any{"title": "X"}); len(issues) != 0 {
		t.Errorf("fallback should accept contract fields: %v", issues)
	}
	if issues := reg.Validate("misc", map[string]any{}); len(issues) == 0 {
		t.Error("fallback should still require title")
	}
}

func TestRegistry_LoadDirBrokenSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "broken.yaml", "fields: 12\n")

	reg := mustRegistry(t)
	err := reg.LoadDir(dir)
	if err == nil {
		t.Fatal("expected LoadDir to fail")
	}
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("error should wrap ErrInvalidSchema: %v", err)
	}
	if !strings.Contains(err.Error(), "broken.yaml") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestCompile_ArrayPatternAppliesToItems(t *testing.T) {
	compiled, err := Compile([]byte(`
fields:
  - name: tags
    type: array
    pattern: "^[a-z0-9]+(?:-[a-z0-9]+)*$"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := compiled.Validate(map[string]any{"tags": []any{"good-tag"}}); err != nil {
		t.Errorf("kebab tag rejected: %v", err)
	}
	if err := compiled.Validate(map[string]any{"tags": []any{"Bad Tag"}}); err == nil {
		t.Error("non-kebab tag should fail the items pattern")
	}
}

func TestIssue_String(t *testing.T) {
	i := Issue{Location: "/tags/0", Message: "does not match pattern"}
	if got := i.String(); got != "#/tags/0: does not match pattern" {
		t.Errorf("String() = %q", got)
	}
	root := Issue{Message: "missing properties: 'title'"}
	if got := root.String(); got != "#: missing properties: 'title'" {
		t.Errorf("String() = %q", got)
	}
}
