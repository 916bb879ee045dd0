package suppliers

import "errors"

var (
	// ErrNotFound indicates the supplier does not exist in the organization.
	ErrNotFound = errors.New("suppliers: supplier not found")
	// ErrReferenced blocks deletion of suppliers with bills on file.
	ErrReferenced = errors.New("suppliers: supplier is referenced by bills")
)
