package customers

import "time"

// Customer is a billing contact owned by one organization.
type Customer struct {
	ID             int64
	OrganizationID int64
	Name           string
	TIN            string
	Address        string
	Email          string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
