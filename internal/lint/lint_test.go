package lint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/schema"
	"github.com/starford/ansuz/internal/testutil"
)

func runLinter(t *testing.T, reg *schema.Registry, files map[string]string) *Report {
	t.Helper()
	dir, store := testutil.TestLibrary(t)
	for p, c := range files {
		testutil.WriteDoc(t, dir, p, c)
	}
	if reg == nil {
		var err error
		reg, err = schema.NewRegistry()
		if err != nil {
			t.Fatal(err)
		}
	}
	report, err := New(store, reg).Run()
	if err != nil {
		t.Fatal(err)
	}
	return report
}

func byRule(r *Report, rule string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestRun_CleanLibrary(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"guides/ruff.md": `---
title: Ruff Guide
tags:
  - python
status: current
---
See [[uv]] and [style](./style.md).

![arch](../assets/arch.png)
`,
		"guides/style.md": "---\ntitle: Style Guide\n---\nText.\n",
		"tools/uv.md":     "---\ntitle: UV\n---\nText.\n",
		"assets/arch.png": "not-really-a-png",
	})
	if report.Docs != 3 {
		t.Errorf("docs = %d, want 3", report.Docs)
	}
	if len(report.Findings) != 0 {
		t.Errorf("expected clean report, got %v", report.Findings)
	}
	if report.HasErrors() {
		t.Error("clean report should not have errors")
	}
}

func TestRun_FrontmatterMissing(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"plain.md": "# Plain\ntext\n",
	})
	found := byRule(report, RuleFrontmatterMissing)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Severity != SeverityError || found[0].Path != "plain.md" {
		t.Errorf("finding = %+v", found[0])
	}
	// A doc without frontmatter is not also schema-checked.
	if len(report.Findings) != 1 {
		t.Errorf("expected exactly one finding, got %v", report.Findings)
	}
	if !report.HasErrors() {
		t.Error("missing frontmatter is an error")
	}
}

func TestRun_FrontmatterSyntax(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"broken.md": "---\n: bad: yaml: {{{\n---\nBody\n",
	})
	found := byRule(report, RuleFrontmatterSyntax)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if len(report.Findings) != 1 {
		t.Errorf("syntax failure should suppress further frontmatter rules: %v", report.Findings)
	}
}

func TestRun_SchemaViolation(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"doc.md": "---\ntitle: X\nstatus: bogus\n---\nText.\n",
	})
	found := byRule(report, RuleFrontmatterSchema)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Detail != "/status" {
		t.Errorf("detail = %q, want /status", found[0].Detail)
	}
	if !report.HasErrors() {
		t.Error("schema violations are errors")
	}
}

func TestRun_TagFormat(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"doc.md": "---\ntitle: X\ntags:\n  - good-tag\n  - Bad Tag\n---\nText.\n",
	})
	found := byRule(report, RuleTagFormat)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Detail != "Bad Tag" || found[0].Severity != SeverityWarning {
		t.Errorf("finding = %+v", found[0])
	}
	if report.HasErrors() {
		t.Error("tag format is a warning, not an error")
	}
}

func TestRun_LinkUnresolved(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"doc.md": "---\ntitle: X\n---\n[missing](./nope.md)\n",
	})
	found := byRule(report, RuleLinkUnresolved)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Detail != "./nope.md" {
		t.Errorf("detail = %q", found[0].Detail)
	}
}

func TestRun_LinkResolvesAgainstRoot(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"sub/a.md":       "---\ntitle: A\n---\nSee [ruff](guides/ruff.md).\n",
		"guides/ruff.md": "---\ntitle: Ruff Guide\n---\nText.\n",
	})
	if found := byRule(report, RuleLinkUnresolved); len(found) != 0 {
		t.Errorf("target should resolve against the library root after the document-relative miss: %v", found)
	}
}

func TestRun_AssetResolvesAgainstRoot(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"sub/a.md":        "---\ntitle: A\n---\n![arch](assets/arch.png)\n",
		"assets/arch.png": "not-really-a-png",
	})
	if found := byRule(report, RuleLinkUnresolved); len(found) != 0 {
		t.Errorf("asset should resolve against the library root after the document-relative miss: %v", found)
	}
}

func TestRun_LinkMissingEverywhere(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"sub/a.md": "---\ntitle: A\n---\n[gone](guides/gone.md)\n",
	})
	found := byRule(report, RuleLinkUnresolved)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Detail != "guides/gone.md" {
		t.Errorf("detail = %q", found[0].Detail)
	}
}

func TestRun_LinkEscapesRoot(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"doc.md": "---\ntitle: X\n---\n[out](../../outside.md)\n",
	})
	found := byRule(report, RuleLinkUnresolved)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if !strings.Contains(found[0].Message, "escapes") {
		t.Errorf("message = %q", found[0].Message)
	}
}

func TestRun_WikilinkBasenameFallback(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"index.md":       "---\ntitle: Index\n---\nSee [[Ruff]].\n",
		"guides/ruff.md": "---\ntitle: Ruff Guide\n---\nText.\n",
	})
	if found := byRule(report, RuleLinkUnresolved); len(found) != 0 {
		t.Errorf("bare stem should match by basename: %v", found)
	}
}

func TestRun_WikilinkPathStemIsExact(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"index.md":         "---\ntitle: Index\n---\nSee [[tools/missing]].\n",
		"other/missing.md": "---\ntitle: Missing\n---\nText.\n",
	})
	found := byRule(report, RuleLinkUnresolved)
	if len(found) != 1 {
		t.Errorf("a stem with a slash must match exactly: %v", report.Findings)
	}
}

func TestRun_MissingAsset(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"doc.md": "---\ntitle: X\n---\n![gone](./missing.png)\n",
	})
	found := byRule(report, RuleLinkUnresolved)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Detail != "./missing.png" {
		t.Errorf("detail = %q", found[0].Detail)
	}
}

func TestRun_TitleDuplicate(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"a.md": "---\ntitle: Same Title\n---\nText.\n",
		"b.md": "---\ntitle: same title\n---\nText.\n",
	})
	found := byRule(report, RuleTitleDuplicate)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	// Docs are linted in path order, so b.md gets the finding.
	if found[0].Path != "b.md" || found[0].Detail != "a.md" {
		t.Errorf("finding = %+v", found[0])
	}
	if !strings.Contains(found[0].Message, "a.md") {
		t.Errorf("message should cite the first use: %q", found[0].Message)
	}
}

func TestRun_CategoryUnknown(t *testing.T) {
	schemaDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(schemaDir, "guide.yaml"),
		[]byte("fields:\n  - name: title\n    type: string\n    required: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := schema.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.LoadDir(schemaDir); err != nil {
		t.Fatal(err)
	}

	report := runLinter(t, reg, map[string]string{
		"a.md": "---\ntitle: A\ncategory: guide\n---\nText.\n",
		"b.md": "---\ntitle: B\ncategory: misc\n---\nText.\n",
	})
	found := byRule(report, RuleCategoryUnknown)
	if len(found) != 1 {
		t.Fatalf("findings = %v", report.Findings)
	}
	if found[0].Path != "b.md" || found[0].Detail != "misc" {
		t.Errorf("finding = %+v", found[0])
	}
}

func TestRun_CategoryUnknownQuietWithoutSchemas(t *testing.T) {
	report := runLinter(t, nil, map[string]string{
		"a.md": "---\ntitle: A\ncategory: anything\n---\nText.\n",
	})
	if found := byRule(report, RuleCategoryUnknown); len(found) != 0 {
		t.Errorf("no dedicated schemas, so no category warnings: %v", found)
	}
}
