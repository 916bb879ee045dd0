package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openbooks-app/openbooks/internal/accounts"
	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/org"
)

// resolveAccount looks up an account code inside the import transaction.
func resolveAccount(ctx context.Context, tx ledger.TxRepository, orgID int64, code string) (accounts.Account, error) {
	acc, err := tx.AccountByCode(ctx, orgID, code)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return accounts.Account{}, fmt.Errorf("%w: code %s", ErrAccountNotFound, code)
		}
		return accounts.Account{}, err
	}
	return acc, nil
}

// resolveOptional is resolveAccount for mappings that may be absent.
func resolveOptional(ctx context.Context, tx ledger.TxRepository, orgID int64, code string) (*accounts.Account, error) {
	if code == "" {
		return nil, nil
	}
	acc, err := resolveAccount(ctx, tx, orgID, code)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// mergeSales overlays request-level mapping overrides onto the
// organization defaults. Row-level override columns still win over both.
func mergeSales(base, over org.SalesMappings) org.SalesMappings {
	if over.ARAccountCode != "" {
		base.ARAccountCode = over.ARAccountCode
	}
	if over.VATPayableAccountCode != "" {
		base.VATPayableAccountCode = over.VATPayableAccountCode
	}
	if over.SalesGoodsAccountCode != "" {
		base.SalesGoodsAccountCode = over.SalesGoodsAccountCode
	}
	if over.SalesServicesAccountCode != "" {
		base.SalesServicesAccountCode = over.SalesServicesAccountCode
	}
	if over.SalesExemptAccountCode != "" {
		base.SalesExemptAccountCode = over.SalesExemptAccountCode
	}
	if over.SalesDiscountAccountCode != "" {
		base.SalesDiscountAccountCode = over.SalesDiscountAccountCode
	}
	if len(over.KeywordRules) > 0 {
		base.KeywordRules = over.KeywordRules
	}
	return base
}

// salesBucket routes a row description to a revenue bucket. Rules are
// evaluated in order against the lower-cased description; the first match
// wins. No match (or an empty description) returns no bucket and the
// caller falls back goods-then-services.
func salesBucket(rules []org.KeywordRule, description string) (org.SalesBucket, bool) {
	if description == "" {
		return "", false
	}
	desc := strings.ToLower(description)
	for _, rule := range rules {
		if rule.Keyword == "" {
			continue
		}
		if strings.Contains(desc, strings.ToLower(rule.Keyword)) {
			return rule.Bucket, true
		}
	}
	return "", false
}

// importSales synthesizes one balanced entry per sales register row:
// debit AR for gross minus discount, credit output VAT, credit a revenue
// account chosen by keyword rules, credit exempt sales, debit the discount
// account. Zero-amount conditional legs are dropped. Any mapping, account,
// malformed-row or balance problem aborts the whole file.
func (s *Service) importSales(ctx context.Context, orgID int64, settings org.SalesMappings, cols []string, dataRows [][]string, batchID string) (int, error) {
	if settings.ARAccountCode == "" || settings.VATPayableAccountCode == "" {
		return 0, fmt.Errorf("%w: sales requires ar_account_code and vat_payable_account_code", ErrMissingMapping)
	}
	rules := settings.KeywordRules
	if len(rules) == 0 {
		rules = org.DefaultKeywordRules()
	}

	created := 0
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		defAR, err := resolveAccount(ctx, tx, orgID, settings.ARAccountCode)
		if err != nil {
			return err
		}
		defVAT, err := resolveAccount(ctx, tx, orgID, settings.VATPayableAccountCode)
		if err != nil {
			return err
		}
		defGoods, err := resolveOptional(ctx, tx, orgID, settings.SalesGoodsAccountCode)
		if err != nil {
			return err
		}
		defServices, err := resolveOptional(ctx, tx, orgID, settings.SalesServicesAccountCode)
		if err != nil {
			return err
		}
		defExempt, err := resolveOptional(ctx, tx, orgID, settings.SalesExemptAccountCode)
		if err != nil {
			return err
		}
		defDiscount, err := resolveOptional(ctx, tx, orgID, settings.SalesDiscountAccountCode)
		if err != nil {
			return err
		}

		for i, record := range dataRows {
			row, ok := rowMap(cols, record)
			if !ok {
				return fmt.Errorf("%w: data row %d has %d cells, header has %d", ErrMalformedRow, i+1, len(record), len(cols))
			}

			dateStr := row["date"]
			if dateStr == "" {
				dateStr = row["entry_date"]
			}
			entryDate, err := ParseDate(dateStr)
			if err != nil {
				return err
			}

			inv := strings.TrimSpace(row["invoice_number"])
			client := strings.TrimSpace(row["client"])
			tin := cell(row, "tin_no", "tin")
			addr := strings.TrimSpace(row["address"])
			desc := strings.TrimSpace(row["description"])
			gross := ParseAmount(row["gross_amount"])
			vat := ParseAmount(row["output_tax"])
			net := ParseAmount(row["net_of_vat"])
			exempt := ParseAmount(row["vat_exempt_sc_pwd"]).Add(ParseAmount(row["vat_exempt_others"])).Round(2)
			disc := ParseAmount(row["discount"])

			// Row-level account overrides win over the merged defaults.
			accAR := defAR
			if code := cell(row, "ar_account_code", "ar", "ar_code"); code != "" {
				if accAR, err = resolveAccount(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accVAT := defVAT
			if code := cell(row, "vat_payable_account_code", "vat", "vat_code", "output_vat_account_code"); code != "" {
				if accVAT, err = resolveAccount(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accGoods := defGoods
			if code := cell(row, "sales_goods_account_code", "sales_goods", "goods_account_code"); code != "" {
				if accGoods, err = resolveOptional(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accServices := defServices
			if code := cell(row, "sales_services_account_code", "sales_services", "services_account_code"); code != "" {
				if accServices, err = resolveOptional(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accExempt := defExempt
			if code := cell(row, "sales_exempt_account_code", "sales_exempt"); code != "" {
				if accExempt, err = resolveOptional(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accDiscount := defDiscount
			if code := cell(row, "sales_discount_account_code", "sales_discount"); code != "" {
				if accDiscount, err = resolveOptional(ctx, tx, orgID, code); err != nil {
					return err
				}
			}

			var salesAcc *accounts.Account
			if bucket, matched := salesBucket(rules, desc); matched {
				switch bucket {
				case org.BucketGoods:
					salesAcc = accGoods
				case org.BucketServices:
					salesAcc = accServices
				}
			}
			if salesAcc == nil {
				salesAcc = accGoods
				if salesAcc == nil {
					salesAcc = accServices
				}
			}

			lines := []ledger.LineInput{{
				AccountID:   accAR.ID,
				Debit:       gross.Sub(disc).Round(2),
				Description: "Accounts Receivable",
				Meta:        ledger.Metadata{"computed_from": map[string]any{"gross": gross.String(), "discount": disc.String()}},
			}}
			if vat.IsPositive() {
				lines = append(lines, ledger.LineInput{
					AccountID:   accVAT.ID,
					Credit:      vat.Round(2),
					Description: "Output VAT",
					Meta:        ledger.Metadata{"source": "output_tax"},
				})
			}
			if salesAcc != nil && net.IsPositive() {
				lineDesc := desc
				if lineDesc == "" {
					lineDesc = "Sales"
				}
				lines = append(lines, ledger.LineInput{
					AccountID:   salesAcc.ID,
					Credit:      net.Round(2),
					Description: lineDesc,
					Meta:        ledger.Metadata{"source": "net_of_vat"},
				})
			}
			if accExempt != nil && exempt.IsPositive() {
				lines = append(lines, ledger.LineInput{
					AccountID:   accExempt.ID,
					Credit:      exempt,
					Description: "Sales - VAT Exempt",
					Meta:        ledger.Metadata{"source": "exempt_total"},
				})
			}
			if accDiscount != nil && disc.IsPositive() {
				lines = append(lines, ledger.LineInput{
					AccountID:   accDiscount.ID,
					Debit:       disc.Round(2),
					Description: "Sales Discount",
					Meta:        ledger.Metadata{"source": "discount"},
				})
			}

			reference := ""
			if inv != "" {
				reference = "INV " + inv
			}
			if _, err := ledger.PostEntryTx(ctx, tx, orgID, ledger.PostingInput{
				Date:        entryDate,
				Reference:   reference,
				Source:      ledger.SourceSales,
				Description: registerDescription(client, tin, addr),
				Meta:        ledger.Metadata{"format": string(FormatSales), "row": rawRow(row), "import_batch": batchID},
				Lines:       lines,
			}); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// registerDescription builds the "Client | TIN: x | Address" entry
// description used by both register importers.
func registerDescription(party, tin, addr string) string {
	return strings.TrimSpace(party + " | TIN: " + tin + " | " + addr)
}
