package accounts

import "time"

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	TypeAsset           AccountType = "asset"
	TypeLiability       AccountType = "liability"
	TypeEquity          AccountType = "equity"
	TypeRevenue         AccountType = "revenue"
	TypeExpense         AccountType = "expense"
	TypeContraAsset     AccountType = "contra_asset"
	TypeContraLiability AccountType = "contra_liability"
	TypeContraEquity    AccountType = "contra_equity"
	TypeOther           AccountType = "other"
)

// compatibleChildren maps a parent type to the child types allowed under it.
var compatibleChildren = map[AccountType][]AccountType{
	TypeAsset:           {TypeAsset, TypeContraAsset},
	TypeLiability:       {TypeLiability, TypeContraLiability},
	TypeEquity:          {TypeEquity, TypeContraEquity},
	TypeRevenue:         {TypeRevenue},
	TypeExpense:         {TypeExpense},
	TypeContraAsset:     {TypeContraAsset},
	TypeContraLiability: {TypeContraLiability},
	TypeContraEquity:    {TypeContraEquity},
	TypeOther:           {TypeOther},
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	_, ok := compatibleChildren[t]
	return ok
}

// AllowsChild reports whether an account of type child may be nested under
// a parent of type t.
func (t AccountType) AllowsChild(child AccountType) bool {
	for _, allowed := range compatibleChildren[t] {
		if allowed == child {
			return true
		}
	}
	return false
}

// Account models a chart of accounts node, scoped to one organization.
// Code is unique within the organization.
type Account struct {
	ID             int64
	OrganizationID int64
	Code           string
	Name           string
	Type           AccountType
	ParentID       *int64
	Level          int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
