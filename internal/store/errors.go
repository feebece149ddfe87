package store

import "errors"

// Sentinel errors for store operations. Callers distinguish these with
// errors.Is to map them to user-facing responses.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOwnerNotFound indicates the referenced owner does not exist.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrCategoryExists indicates a category with the same name already
	// exists for the owner. Callers racing on creation should reread.
	ErrCategoryExists = errors.New("category already exists")
)
