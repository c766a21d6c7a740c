package docservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/schema"
	"github.com/starford/ansuz/internal/testutil"
)

func newTestService(t *testing.T, strict bool) (*Service, *index.DB) {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	reg, err := schema.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, db, reg, render.New(), strict), db
}

const sampleDoc = `---
title: UV Guide
tags: [python, packaging]
category: guides
status: current
---
# UV Guide

Fast installs with uv.

## Lockfiles
`

func TestCreateAndGetDoc(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	created, err := svc.CreateDoc(ctx, "guides/uv.md", []byte(sampleDoc))
	if err != nil {
		t.Fatalf("CreateDoc: %v", err)
	}
	if created.Title != "UV Guide" {
		t.Errorf("Title = %q", created.Title)
	}
	if created.Category != "guides" || created.Status != "current" {
		t.Errorf("Category/Status = %q/%q", created.Category, created.Status)
	}
	if want := checksum.Sum([]byte(sampleDoc)); created.Checksum != want {
		t.Errorf("Checksum = %q, want %q", created.Checksum, want)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "python" {
		t.Errorf("Tags = %v", created.Tags)
	}
	if len(created.Headings) != 2 {
		t.Errorf("Headings = %v", created.Headings)
	}
	if created.Backlinks == nil || len(created.Backlinks) != 0 {
		t.Errorf("Backlinks = %v, want empty non-nil", created.Backlinks)
	}
	if created.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero")
	}

	got, err := svc.GetDoc(ctx, "guides/uv.md")
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if got.Content != sampleDoc {
		t.Error("content round-trip mismatch")
	}
	if got.Title != created.Title || got.Checksum != created.Checksum {
		t.Error("detail mismatch between create and get")
	}
}

func TestGetDoc_NotFound(t *testing.T) {
	svc, _ := newTestService(t, false)
	if _, err := svc.GetDoc(context.Background(), "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateDoc_AlreadyExists(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()
	if _, err := svc.CreateDoc(ctx, "dup.md", []byte(sampleDoc)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateDoc(ctx, "dup.md", []byte(sampleDoc))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateDoc_StrictRejectsMissingFrontmatter(t *testing.T) {
	svc, _ := newTestService(t, true)
	_, err := svc.CreateDoc(context.Background(), "bare.md", []byte("# No frontmatter\n"))
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %T, want *ValidationError", err)
	}
	if len(ve.Issues) != 1 || !strings.Contains(ve.Issues[0].Message, "no frontmatter") {
		t.Errorf("Issues = %v", ve.Issues)
	}
}

func TestCreateDoc_StrictRejectsSchemaViolation(t *testing.T) {
	svc, _ := newTestService(t, true)
	content := "---\ntitle: Bad Status\nstatus: bogus\n---\nbody\n"
	_, err := svc.CreateDoc(context.Background(), "bad.md", []byte(content))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	found := false
	for _, issue := range ve.Issues {
		if issue.Location == "/status" {
			found = true
		}
	}
	if !found {
		t.Errorf("no /status issue in %v", ve.Issues)
	}
}

func TestCreateDoc_RelaxedAcceptsAnything(t *testing.T) {
	svc, _ := newTestService(t, false)
	got, err := svc.CreateDoc(context.Background(), "scratch.md", []byte("# Scratch\n"))
	if err != nil {
		t.Fatalf("CreateDoc: %v", err)
	}
	if got.Title != "Scratch" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestUpdateDoc_NotFound(t *testing.T) {
	svc, _ := newTestService(t, false)
	_, err := svc.UpdateDoc(context.Background(), "ghost.md", []byte("x"), "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDoc_IfMatch(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	if _, err := svc.CreateDoc(ctx, "doc.md", []byte("# One\n")); err != nil {
		t.Fatal(err)
	}

	// Stale checksum is rejected.
	_, err := svc.UpdateDoc(ctx, "doc.md", []byte("# Two\n"), "not-the-checksum")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}

	// Matching checksum succeeds.
	got, err := svc.UpdateDoc(ctx, "doc.md", []byte("# Two\n"), checksum.Sum([]byte("# One\n")))
	if err != nil {
		t.Fatalf("UpdateDoc: %v", err)
	}
	if got.Title != "Two" {
		t.Errorf("Title = %q", got.Title)
	}

	// No precondition means last writer wins.
	if _, err := svc.UpdateDoc(ctx, "doc.md", []byte("# Three\n"), ""); err != nil {
		t.Fatalf("UpdateDoc without If-Match: %v", err)
	}
}

func TestDeleteDoc(t *testing.T) {
	svc, db := newTestService(t, false)
	ctx := context.Background()
	if _, err := svc.CreateDoc(ctx, "del.md", []byte("# Del\n")); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteDoc(ctx, "del.md"); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}
	if _, err := svc.GetDoc(ctx, "del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetDoc after delete: %v", err)
	}
	row, err := db.GetDoc("del.md")
	if err != nil {
		t.Fatal(err)
	}
	if row != nil {
		t.Error("index row survived delete")
	}
	if err := svc.DeleteDoc(ctx, "del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestGetDoc_Backlinks(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	if _, err := svc.CreateDoc(ctx, "a.md", []byte("# A\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDoc(ctx, "b.md", []byte("# B\n\nSee [a](./a.md).\n")); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetDoc(ctx, "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Backlinks) != 1 || got.Backlinks[0] != "b.md" {
		t.Errorf("Backlinks = %v", got.Backlinks)
	}
}

func TestListDocs(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	docs := map[string]string{
		"one.md": "---\ntitle: One\ntags: [alpha]\n---\nbody\n",
		"two.md": "---\ntitle: Two\ntags: [alpha, beta]\n---\nbody\n",
	}
	for path, content := range docs {
		if _, err := svc.CreateDoc(ctx, path, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.ListDocs(ctx, index.ListQuery{})
	if err != nil {
		t.Fatalf("ListDocs: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(items))
	}
	for _, item := range items {
		if item.Checksum == "" || item.Title == "" {
			t.Errorf("incomplete item: %+v", item)
		}
		if item.Tags == nil {
			t.Errorf("nil tags for %s", item.Path)
		}
	}

	items, total, err = svc.ListDocs(ctx, index.ListQuery{Tag: "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].Path != "two.md" {
		t.Errorf("tag filter: total = %d, items = %v", total, items)
	}
}

func TestRenderHTML(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	content := "---\ntitle: Render Me\n---\n# Render Me\n\nA **bold** claim.\n"
	if _, err := svc.CreateDoc(ctx, "render.md", []byte(content)); err != nil {
		t.Fatal(err)
	}
	html, err := svc.RenderHTML(ctx, "render.md")
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("html = %q", html)
	}
	if strings.Contains(html, "title: Render Me") {
		t.Error("frontmatter leaked into rendered html")
	}

	if _, err := svc.RenderHTML(ctx, "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLint(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	if _, err := svc.CreateDoc(ctx, "nofm.md", []byte("# Untitled body\n")); err != nil {
		t.Fatal(err)
	}
	report, err := svc.Lint(ctx)
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if report.Docs != 1 {
		t.Errorf("Docs = %d", report.Docs)
	}
	found := false
	for _, f := range report.Findings {
		if f.Rule == "frontmatter-missing" && f.Path == "nofm.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("no frontmatter-missing finding in %v", report.Findings)
	}
}

func TestStatsAndFacets(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	content := "---\ntitle: Tagged\ntags: [infra]\ncategory: runbooks\nstatus: current\n---\nbody with kubernetes words\n"
	if _, err := svc.CreateDoc(ctx, "tagged.md", []byte(content)); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Docs != 1 || stats.Tags != 1 {
		t.Errorf("stats = %+v", stats)
	}

	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Name != "infra" {
		t.Errorf("tags = %v", tags)
	}

	cats, err := svc.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].Name != "runbooks" {
		t.Errorf("categories = %v", cats)
	}
}
