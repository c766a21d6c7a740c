package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte(`---
title: Ruff Guide
category: guides
status: current
tags:
  - python
  - linting
sources:
  - https://docs.astral.sh/ruff/
---

# Ruff Guide

Body text.
`)
	r := Parse(input)
	if !r.HasFrontmatter {
		t.Fatal("expected frontmatter block")
	}
	if r.FrontmatterErr != nil {
		t.Fatalf("unexpected frontmatter error: %v", r.FrontmatterErr)
	}
	if r.Meta.Title != "Ruff Guide" {
		t.Errorf("title = %q, want %q", r.Meta.Title, "Ruff Guide")
	}
	if r.Meta.Category != "guides" || r.Meta.Status != "current" {
		t.Errorf("category/status = %q/%q", r.Meta.Category, r.Meta.Status)
	}
	if len(r.Meta.Tags) != 2 || r.Meta.Tags[0] != "python" || r.Meta.Tags[1] != "linting" {
		t.Errorf("tags = %v, want [python linting]", r.Meta.Tags)
	}
	if len(r.Meta.Sources) != 1 || r.Meta.Sources[0] != "https://docs.astral.sh/ruff/" {
		t.Errorf("sources = %v", r.Meta.Sources)
	}
	if !strings.HasPrefix(r.Body, "# Ruff Guide") {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("# Just a heading\nSome text.\n"))
	if r.HasFrontmatter {
		t.Error("expected no frontmatter")
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLDegradesToBody(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r := Parse(input)
	if !r.HasFrontmatter {
		t.Error("fences are present, HasFrontmatter should be true")
	}
	if r.FrontmatterErr == nil {
		t.Error("expected a recorded YAML error")
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML, got %v", r.Frontmatter)
	}
	if r.Body != string(input) {
		t.Errorf("body should be the whole file, got %q", r.Body)
	}
}

func TestParse_Links(t *testing.T) {
	body := `See [[python/pep8]] and [[Style Guide|the guide]].
Relative [uv](./uv.md), anchored [s](#section), sub [d](other.md#sec).
External [astral](https://astral.sh) is skipped.
![diagram](../assets/arch.png)
Repeat [[python/pep8]] once only.
`
	r := Parse([]byte(body))

	want := []Link{
		{Target: "./uv.md", Kind: KindMarkdown},
		{Target: "other.md", Kind: KindMarkdown},
		{Target: "../assets/arch.png", Kind: KindImage},
		{Target: "python/pep8", Kind: KindWikilink},
		{Target: "Style Guide", Kind: KindWikilink},
	}
	if len(r.Links) != len(want) {
		t.Fatalf("links = %v, want %v", r.Links, want)
	}
	for i, l := range want {
		if r.Links[i] != l {
			t.Errorf("links[%d] = %v, want %v", i, r.Links[i], l)
		}
	}
}

func TestParse_EmptyWikilinkTargets(t *testing.T) {
	r := Parse([]byte("see [[ ]] and [[|alias]]"))
	if len(r.Links) != 0 {
		t.Errorf("expected no links, got %v", r.Links)
	}
}

func TestParse_Headings(t *testing.T) {
	r := Parse([]byte("# Top\n\ntext\n\n## Section\n\n### Detail\n"))
	if len(r.Headings) != 3 {
		t.Fatalf("headings = %v", r.Headings)
	}
	if r.Headings[0] != (Heading{Level: 1, Text: "Top"}) {
		t.Errorf("headings[0] = %v", r.Headings[0])
	}
	if r.Headings[1].Level != 2 || r.Headings[1].Text != "Section" {
		t.Errorf("headings[1] = %v", r.Headings[1])
	}
}

func TestParse_TagsInlineAndFrontmatter(t *testing.T) {
	input := []byte("---\ntags:\n  - alpha\n---\nSome text #beta and #alpha again.\n")
	r := Parse(input)
	// alpha from frontmatter, beta from body; alpha not duplicated.
	if len(r.Tags) != 2 || r.Tags[0] != "alpha" || r.Tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", r.Tags)
	}
}

func TestParse_TitleFrontmatterOverH1(t *testing.T) {
	r := Parse([]byte("---\ntitle: FM Title\n---\n# H1 Title\ntext"))
	if r.Title != "FM Title" {
		t.Errorf("title = %q, want %q", r.Title, "FM Title")
	}
}

func TestParse_TitleH1Fallback(t *testing.T) {
	r := Parse([]byte("some text\n\n# My Heading\n\nmore"))
	if r.Title != "My Heading" {
		t.Errorf("title = %q, want %q", r.Title, "My Heading")
	}
}

func TestCanonicalize_Wikilink(t *testing.T) {
	got, ok := Canonicalize("guides/ruff.md", Link{Target: "python/pep8", Kind: KindWikilink})
	if !ok || got != "python/pep8.md" {
		t.Errorf("got %q ok=%v, want python/pep8.md", got, ok)
	}

	// A stem that already carries .md is not doubled.
	got, ok = Canonicalize("guides/ruff.md", Link{Target: "python/pep8.md", Kind: KindWikilink})
	if !ok || got != "python/pep8.md" {
		t.Errorf("got %q ok=%v, want python/pep8.md", got, ok)
	}

	if _, ok := Canonicalize("guides/ruff.md", Link{Target: "../escape", Kind: KindWikilink}); ok {
		t.Error("wikilink escaping the root should not resolve")
	}
}

func TestCanonicalize_Relative(t *testing.T) {
	got, ok := Canonicalize("guides/ruff.md", Link{Target: "./style.md", Kind: KindMarkdown})
	if !ok || got != "guides/style.md" {
		t.Errorf("got %q ok=%v, want guides/style.md", got, ok)
	}

	got, ok = Canonicalize("guides/ruff.md", Link{Target: "../intro.md", Kind: KindMarkdown})
	if !ok || got != "intro.md" {
		t.Errorf("got %q ok=%v, want intro.md", got, ok)
	}

	if _, ok := Canonicalize("guides/ruff.md", Link{Target: "../../outside.md", Kind: KindMarkdown}); ok {
		t.Error("target escaping the root should not resolve")
	}
}

func TestCanonicalize_Absolute(t *testing.T) {
	got, ok := Canonicalize("deep/nested/doc.md", Link{Target: "/intro.md", Kind: KindMarkdown})
	if !ok || got != "intro.md" {
		t.Errorf("got %q ok=%v, want intro.md", got, ok)
	}
}

func TestCanonicalize_Empty(t *testing.T) {
	if _, ok := Canonicalize("a.md", Link{Target: "  ", Kind: KindMarkdown}); ok {
		t.Error("blank target should not resolve")
	}
}

func TestCanonicalizeRoot(t *testing.T) {
	got, ok := CanonicalizeRoot(Link{Target: "guides/ruff.md", Kind: KindMarkdown})
	if !ok || got != "guides/ruff.md" {
		t.Errorf("got %q ok=%v, want guides/ruff.md", got, ok)
	}

	// Wikilinks and absolute targets are root-relative already.
	if _, ok := CanonicalizeRoot(Link{Target: "guides/ruff", Kind: KindWikilink}); ok {
		t.Error("wikilink has no root fallback")
	}
	if _, ok := CanonicalizeRoot(Link{Target: "/intro.md", Kind: KindMarkdown}); ok {
		t.Error("absolute target has no root fallback")
	}

	if _, ok := CanonicalizeRoot(Link{Target: "../outside.md", Kind: KindMarkdown}); ok {
		t.Error("target escaping the root should not resolve")
	}
}
