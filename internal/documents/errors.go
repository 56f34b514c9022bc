package documents

import "errors"

var (
	// ErrNotFound indicates the document record does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput indicates the caller supplied unusable input.
	ErrInvalidInput = errors.New("invalid input")
)
