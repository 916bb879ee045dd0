package suppliers

import "time"

// Supplier is a vendor contact owned by one organization.
type Supplier struct {
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
