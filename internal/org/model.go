package org

import "time"

// Organization is the tenancy boundary. Every other entity carries its ID
// and every query filters by it.
type Organization struct {
	ID        int64
	Name      string
	Settings  Settings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings is the per-organization configuration bag, stored as JSONB.
type Settings struct {
	Imports ImportSettings `json:"imports"`
}

// ImportSettings holds the default account mappings used by the CSV
// importers. Row-level override columns take precedence over these.
type ImportSettings struct {
	Sales     SalesMappings    `json:"sales"`
	Purchases PurchaseMappings `json:"purchases"`
}

// SalesMappings names the accounts used when synthesizing journal entries
// from sales register rows.
type SalesMappings struct {
	ARAccountCode            string        `json:"ar_account_code"`
	VATPayableAccountCode    string        `json:"vat_payable_account_code"`
	SalesGoodsAccountCode    string        `json:"sales_goods_account_code"`
	SalesServicesAccountCode string        `json:"sales_services_account_code"`
	SalesExemptAccountCode   string        `json:"sales_exempt_account_code"`
	SalesDiscountAccountCode string        `json:"sales_discount_account_code"`
	KeywordRules             []KeywordRule `json:"keyword_rules,omitempty"`
}

// PurchaseMappings names the accounts used when synthesizing journal entries
// from purchase register rows.
type PurchaseMappings struct {
	CreditAccountCode         string `json:"credit_account_code"`
	CashAccountCode           string `json:"cash_account_code"`
	InputVATAccountCode       string `json:"input_vat_account_code"`
	ExpenseVatableAccountCode string `json:"expense_vatable_account_code"`
	ExpenseNonVATAccountCode  string `json:"expense_non_vat_account_code"`
	DefaultExpenseAccountCode string `json:"default_expense_account_code"`
}

// SalesBucket identifies which configured sales account a keyword rule
// routes a row's net amount to.
type SalesBucket string

const (
	BucketGoods    SalesBucket = "goods"
	BucketServices SalesBucket = "services"
)

// KeywordRule routes a sales row to a revenue bucket when its description
// contains the keyword. Rules are evaluated in order; first match wins.
type KeywordRule struct {
	Keyword string      `json:"keyword"`
	Bucket  SalesBucket `json:"bucket"`
}

// DefaultKeywordRules reproduces the built-in goods/services matching used
// when an organization has not configured its own rules.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Keyword: "goods", Bucket: BucketGoods},
		{Keyword: "services", Bucket: BucketServices},
	}
}
