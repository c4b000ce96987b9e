/*
Package generic provides the shared building blocks of the expense engine.

PURPOSE:
  Domain packages (expense, pettycash) build on the same identifier types,
  money arithmetic, calendar types and error taxonomy. Nothing in this package
  knows about expense statuses or ledger scopes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: type-safe IDs so an office ID can't be passed as a vendor ID
  - Money: decimal.Decimal helpers, always rounded to 2 places at boundaries

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float64
  2. Type Safety: distinct ID types per entity
  3. Purity: helpers here never perform I/O

USAGE:
  amount, err := generic.ParseMoney("1250.50")
  total := generic.RoundMoney(amount.Mul(rate))

SEE ALSO:
  - time.go: Date and Month value types
  - errors.go: Error taxonomy shared by all packages
  - store.go: Audit log contract
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ExpenseID string
type VendorID string
type OfficeID string
type TransactionID string
type ActorID string

// =============================================================================
// MONEY
// =============================================================================

// MoneyPlaces is the number of decimal places every stored amount carries.
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// ParseMoney parses a decimal string such as "1250.50".
// Empty input parses as zero.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParseDecimal parses s and returns zero on malformed input.
// Only use it for values that were written by this system.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds half away from zero to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent returns base * pct / 100 without rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// FormatMoney renders d with exactly MoneyPlaces decimals ("990.00").
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
