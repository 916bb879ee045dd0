package imports

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/openbooks-app/openbooks/internal/accounts"
	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/org"
)

// mergePurchases overlays request-level mapping overrides onto the
// organization defaults.
func mergePurchases(base, over org.PurchaseMappings) org.PurchaseMappings {
	if over.CreditAccountCode != "" {
		base.CreditAccountCode = over.CreditAccountCode
	}
	if over.CashAccountCode != "" {
		base.CashAccountCode = over.CashAccountCode
	}
	if over.InputVATAccountCode != "" {
		base.InputVATAccountCode = over.InputVATAccountCode
	}
	if over.ExpenseVatableAccountCode != "" {
		base.ExpenseVatableAccountCode = over.ExpenseVatableAccountCode
	}
	if over.ExpenseNonVATAccountCode != "" {
		base.ExpenseNonVATAccountCode = over.ExpenseNonVATAccountCode
	}
	if over.DefaultExpenseAccountCode != "" {
		base.DefaultExpenseAccountCode = over.DefaultExpenseAccountCode
	}
	return base
}

// importPurchases synthesizes one balanced entry per purchase register
// row. Amounts are taken as absolute values; the sign of the raw gross
// decides direction. Positive rows debit expenses and input VAT against a
// credit to the control account; negative rows (returns) reverse every
// leg. A row whose account title mentions "cash" is settled against the
// cash account instead of the payable control. Zero legs are dropped;
// malformed rows abort the file.
func (s *Service) importPurchases(ctx context.Context, orgID int64, settings org.PurchaseMappings, cols []string, dataRows [][]string, batchID string) (int, error) {
	if settings.CreditAccountCode == "" || settings.InputVATAccountCode == "" {
		return 0, fmt.Errorf("%w: purchases requires credit_account_code and input_vat_account_code", ErrMissingMapping)
	}
	if settings.ExpenseVatableAccountCode == "" && settings.DefaultExpenseAccountCode == "" {
		return 0, fmt.Errorf("%w: provide expense_vatable_account_code or default_expense_account_code", ErrMissingMapping)
	}
	if settings.ExpenseNonVATAccountCode == "" && settings.DefaultExpenseAccountCode == "" {
		return 0, fmt.Errorf("%w: provide expense_non_vat_account_code or default_expense_account_code", ErrMissingMapping)
	}

	created := 0
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		defCredit, err := resolveAccount(ctx, tx, orgID, settings.CreditAccountCode)
		if err != nil {
			return err
		}
		defCash, err := resolveOptional(ctx, tx, orgID, settings.CashAccountCode)
		if err != nil {
			return err
		}
		defInputVAT, err := resolveAccount(ctx, tx, orgID, settings.InputVATAccountCode)
		if err != nil {
			return err
		}
		expVatableCode := settings.ExpenseVatableAccountCode
		if expVatableCode == "" {
			expVatableCode = settings.DefaultExpenseAccountCode
		}
		expNonVATCode := settings.ExpenseNonVATAccountCode
		if expNonVATCode == "" {
			expNonVATCode = settings.DefaultExpenseAccountCode
		}
		defExpVatable, err := resolveAccount(ctx, tx, orgID, expVatableCode)
		if err != nil {
			return err
		}
		defExpNonVAT, err := resolveAccount(ctx, tx, orgID, expNonVATCode)
		if err != nil {
			return err
		}

		for i, record := range dataRows {
			row, ok := rowMap(cols, record)
			if !ok {
				return fmt.Errorf("%w: data row %d has %d cells, header has %d", ErrMalformedRow, i+1, len(record), len(cols))
			}

			entryDate, err := ParseDate(row["date"])
			if err != nil {
				return err
			}

			supplier := strings.TrimSpace(row["supplier"])
			tin := cell(row, "tin_no", "tin")
			addr := strings.TrimSpace(row["address"])
			inv := strings.TrimSpace(row["invoice_number"])
			acctTitle := strings.ToLower(strings.TrimSpace(row["account_title"]))

			gross := ParseAmount(row["gross_amount"])
			vatIn := ParseAmount(row["input_tax"]).Abs()
			net := ParseAmount(row["net_of_vat"]).Abs()
			nonVat := ParseAmount(row["non_vat"]).Abs()
			isReturn := gross.IsNegative()
			gross = gross.Abs()

			accCredit := defCredit
			if code := cell(row, "credit_account_code", "ap_account_code", "credit_code"); code != "" {
				if accCredit, err = resolveAccount(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accCash := defCash
			if code := cell(row, "cash_account_code", "cash_code"); code != "" {
				if accCash, err = resolveOptional(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accInputVAT := defInputVAT
			if code := cell(row, "input_vat_account_code", "input_tax_account_code"); code != "" {
				if accInputVAT, err = resolveAccount(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accExpVatable := defExpVatable
			if code := cell(row, "expense_vatable_account_code", "expense_vat_account_code"); code != "" {
				if accExpVatable, err = resolveAccount(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			accExpNonVAT := defExpNonVAT
			if code := cell(row, "expense_non_vat_account_code"); code != "" {
				if accExpNonVAT, err = resolveAccount(ctx, tx, orgID, code); err != nil {
					return err
				}
			}
			if code := cell(row, "default_expense_account_code"); code != "" {
				override, err := resolveAccount(ctx, tx, orgID, code)
				if err != nil {
					return err
				}
				if settings.ExpenseVatableAccountCode == "" && cell(row, "expense_vatable_account_code", "expense_vat_account_code") == "" {
					accExpVatable = override
				}
				if settings.ExpenseNonVATAccountCode == "" && cell(row, "expense_non_vat_account_code") == "" {
					accExpNonVAT = override
				}
			}

			controlAcc := accCredit
			if accCash != nil && strings.Contains(acctTitle, "cash") {
				controlAcc = *accCash
			}

			var lines []ledger.LineInput
			addLeg := func(acc accounts.Account, debit, credit decimal.Decimal, desc, source string) {
				debit = debit.Round(2)
				credit = credit.Round(2)
				if debit.IsZero() && credit.IsZero() {
					return
				}
				lines = append(lines, ledger.LineInput{
					AccountID:   acc.ID,
					Debit:       debit,
					Credit:      credit,
					Description: desc,
					Meta:        ledger.Metadata{"source": source},
				})
			}

			if !isReturn {
				addLeg(accExpVatable, net, decimal.Zero, "Expense (VATable)", "net_of_vat")
				addLeg(accExpNonVAT, nonVat, decimal.Zero, "Expense (Non-VAT)", "non_vat")
				addLeg(accInputVAT, vatIn, decimal.Zero, "Input VAT", "input_tax")
				addLeg(controlAcc, decimal.Zero, gross, "Payable/Payment", "gross_amount")
			} else {
				addLeg(accExpVatable, decimal.Zero, net, "Expense Reversal (VATable)", "net_of_vat")
				addLeg(accExpNonVAT, decimal.Zero, nonVat, "Expense Reversal (Non-VAT)", "non_vat")
				addLeg(accInputVAT, decimal.Zero, vatIn, "Input VAT Reversal", "input_tax")
				addLeg(controlAcc, gross, decimal.Zero, "Refund/Offset", "gross_amount")
			}

			reference := ""
			if inv != "" {
				reference = "BILL " + inv
			}
			if _, err := ledger.PostEntryTx(ctx, tx, orgID, ledger.PostingInput{
				Date:        entryDate,
				Reference:   reference,
				Source:      ledger.SourcePurchase,
				Description: registerDescription(supplier, tin, addr),
				Meta:        ledger.Metadata{"format": string(FormatPurchase), "row": rawRow(row), "import_batch": batchID},
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
