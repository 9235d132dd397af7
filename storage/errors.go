package storage

import "errors"

var (
	// ErrNotFound indicates no world has been saved yet.
	ErrNotFound = errors.New("storage: world not initialized")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("storage: required parameter is nil")

	// ErrCorrupt indicates a stored record could not be decoded.
	ErrCorrupt = errors.New("storage: corrupt record")
)
