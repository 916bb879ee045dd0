package customers

import "errors"

var (
	// ErrNotFound indicates the customer does not exist in the organization.
	ErrNotFound = errors.New("customers: customer not found")
	// ErrReferenced blocks deletion of customers with invoices on file.
	ErrReferenced = errors.New("customers: customer is referenced by invoices")
)
