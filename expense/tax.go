package expense

import (
	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// TAX CALCULATOR
// =============================================================================

// ComputeAmountAfterTax derives the payable amount:
//
//	base           = amount - advanceTax
//	amountAfterTax = base + base * whtPercent / 100
//
// rounded to 2 places. Negative inputs are rejected per field.
func ComputeAmountAfterTax(amount, advanceTax, whtPercent decimal.Decimal) (decimal.Decimal, error) {
	verr := &generic.ValidationError{}
	if amount.IsNegative() {
		verr.Add("amount", "Amount cannot be negative")
	}
	if advanceTax.IsNegative() {
		verr.Add("advanceTax", "Advance tax cannot be negative")
	}
	if whtPercent.IsNegative() {
		verr.Add("wht", "WHT cannot be negative")
	}
	if err := verr.OrNil(); err != nil {
		return decimal.Zero, err
	}

	base := amount.Sub(advanceTax)
	return generic.RoundMoney(base.Add(generic.Percent(base, whtPercent))), nil
}

// Recompute returns e with AmountAfterTax derived from its current inputs.
// It must run after every change to Amount, AdvanceTax or WHT.
func Recompute(e Expense) (Expense, error) {
	after, err := ComputeAmountAfterTax(e.Amount, e.AdvanceTax, e.WHT)
	if err != nil {
		return e, err
	}
	e.AmountAfterTax = after
	return e, nil
}
