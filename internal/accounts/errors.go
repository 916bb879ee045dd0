package accounts

import "errors"

var (
	// ErrNotFound indicates the account does not exist in the organization.
	ErrNotFound = errors.New("accounts: account not found")
	// ErrDuplicateCode indicates the (organization, code) pair already exists.
	ErrDuplicateCode = errors.New("accounts: code already in use")
	// ErrInvalidParent indicates a missing or cross-organization parent.
	ErrInvalidParent = errors.New("accounts: invalid parent account")
	// ErrIncompatibleType indicates the child type is not allowed under the parent type.
	ErrIncompatibleType = errors.New("accounts: type not compatible with parent type")
	// ErrHasChildren blocks deletion of accounts with child accounts.
	ErrHasChildren = errors.New("accounts: account has child accounts")
	// ErrReferenced blocks deletion of accounts referenced by journal or document lines.
	ErrReferenced = errors.New("accounts: account is referenced by transactions")
	// ErrSelfParent indicates an account naming itself as parent.
	ErrSelfParent = errors.New("accounts: account cannot be its own parent")
)
