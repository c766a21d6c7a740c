// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid marks a document whose frontmatter failed schema validation.
	ErrInvalid = errors.New("invalid document")
)
