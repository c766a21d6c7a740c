package mcpserver

// DocFormatContract describes the canonical Markdown reference-document
// format that LLM consumers should follow when creating or updating
// documents.
const DocFormatContract = `# Ansuz Document Format Contract

Every Markdown reference document stored in the library MUST follow this
structure. Frontmatter is validated against the library schema on every
create_doc / update_doc call; invalid documents are rejected.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # REQUIRED – the catalog display name
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
category: guide                     # OPTIONAL – selects the validation schema
status: current                     # OPTIONAL – draft | current | superseded | archived
sources:                            # OPTIONAL – provenance URLs or citations
  - https://example.org/upstream-doc
---

Body text in standard Markdown (GFM: tables, task lists, strikethrough).

Use [[wikilinks]] to reference other documents (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Standard links work too: [Ruff guide](guides/ruff.md), relative to this file.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `title` + "`" + ` field is required.** It is the catalog record's primary key for
   humans; keep titles unique across the library.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `static-analysis` + "`" + `, ` + "`" + `build-tooling` + "`" + `).
4. **` + "`" + `category` + "`" + `** groups documents and picks their frontmatter schema when the
   library defines one (e.g. ` + "`" + `guide` + "`" + `, ` + "`" + `standard` + "`" + `, ` + "`" + `concept` + "`" + `).
5. **` + "`" + `status` + "`" + `** is one of ` + "`" + `draft` + "`" + `, ` + "`" + `current` + "`" + `, ` + "`" + `superseded` + "`" + `, ` + "`" + `archived` + "`" + `. Mark the
   old document ` + "`" + `superseded` + "`" + ` instead of deleting it when replacing content.
6. **` + "`" + `sources` + "`" + `** records where the content came from so readers can verify it.
7. **Wikilinks** use double brackets: ` + "`" + `[[other-doc]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension, path separators OK: ` + "`" + `[[guides/ruff]]` + "`" + `).
8. **Internal links must resolve.** Every link target must exist in the
   library; run lint_library after editing to verify.
9. **File paths** end with ` + "`" + `.md` + "`" + `, use forward slashes, and are English
   kebab-case (e.g. ` + "`" + `standards/cyclonedx.md` + "`" + `).
10. **Encoding** is UTF-8 with a trailing newline. No raw HTML; prefer
    Markdown equivalents (raw HTML is escaped when rendered).

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the document body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference in documents using the absolute path: ` + "`" + `![description](/attachments/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
- Do **not** use relative paths like ` + "`" + `./attachments/...` + "`" + ` — always use ` + "`" + `/attachments/filename` + "`" + `.

## Example

` + "```" + `markdown
---
title: Ruff configuration guide
tags:
  - python
  - static-analysis
category: guide
status: current
sources:
  - https://docs.astral.sh/ruff/configuration/
---

# Ruff configuration guide

Ruff reads its configuration from ` + "`" + `pyproject.toml` + "`" + ` or ` + "`" + `ruff.toml` + "`" + `.

![Rule resolution order](/attachments/ruff-config-order.png)

## Related

- [[guides/python-linting|Python linting overview]]
- See the [error suppression standard](../standards/lint-suppression.md).
` + "```" + `
`
