/*
ledger.go - Running balance computation for one (office, month) scope

PURPOSE:
  Given the transactions of a single scope and its opening balance, compute
  each transaction's balanceAfter and the scope summary.

INVARIANTS:
  1. SCOPE: every transaction shares one office and one month; checked
     before any arithmetic
  2. ORDER: dateOfPayment ascending, ties in insertion order (stable)
  3. RUNNING BALANCE: balanceAfter[i] = balanceAfter[i-1] + income - expense,
     with balanceAfter[-1] = openingBalance
  4. CLOSING: balanceAfter of the last transaction, or openingBalance when
     the scope is empty

  Inputs are never mutated; repeated runs on the same input give the same
  balances.

EXAMPLE:
  opening 1000, [expense 200, income 500, expense 100]
  → balances [800, 1300, 1200], closing 1200

SEE ALSO:
  - service.go: Derives the opening balance from the prior month
*/
package pettycash

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
)

// ValidateScope fails with a ScopeError when txs span more than one office
// or month. An empty slice is a valid (empty) scope.
func ValidateScope(txs []Transaction) error {
	offices := map[generic.OfficeID]bool{}
	months := map[generic.Month]bool{}
	var officeList []generic.OfficeID
	var monthList []generic.Month
	for _, tx := range txs {
		if !offices[tx.OfficeID] {
			offices[tx.OfficeID] = true
			officeList = append(officeList, tx.OfficeID)
		}
		if !months[tx.Month] {
			months[tx.Month] = true
			monthList = append(monthList, tx.Month)
		}
	}
	if len(officeList) > 1 || len(monthList) > 1 {
		return &generic.ScopeError{Offices: officeList, Months: monthList}
	}
	return nil
}

// SortByPaymentDate returns a copy of txs ordered by dateOfPayment with
// ties kept in their incoming (insertion) order.
func SortByPaymentDate(txs []Transaction) []Transaction {
	sorted := append([]Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateOfPayment.Before(sorted[j].DateOfPayment)
	})
	return sorted
}

func validateTransactions(txs []Transaction) error {
	verr := &generic.ValidationError{}
	for _, tx := range txs {
		if tx.Type != TxIncome && tx.Type != TxExpense {
			verr.Add("transactionType", "Transaction "+string(tx.ID)+" has unknown type "+string(tx.Type))
		}
		if tx.Amount.IsNegative() {
			verr.Add("amount", "Transaction "+string(tx.ID)+" has a negative amount")
		}
	}
	return verr.OrNil()
}

// ComputeBalances returns a copy of txs, ordered by payment date, with
// BalanceAfter filled in.
func ComputeBalances(txs []Transaction, opening decimal.Decimal) ([]Transaction, error) {
	if err := ValidateScope(txs); err != nil {
		return nil, err
	}
	if err := validateTransactions(txs); err != nil {
		return nil, err
	}

	out := SortByPaymentDate(txs)
	balance := opening
	for i := range out {
		balance = balance.Add(out[i].Delta())
		out[i].BalanceAfter = balance
	}
	return out, nil
}

// Summarize computes the opening/closing balance and income/expense totals
// of a scope.
func Summarize(txs []Transaction, opening decimal.Decimal) (Summary, error) {
	annotated, err := ComputeBalances(txs, opening)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		OpeningBalance: opening,
		ClosingBalance: opening,
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
	}
	for _, tx := range annotated {
		switch tx.Type {
		case TxIncome:
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		case TxExpense:
			summary.TotalExpense = summary.TotalExpense.Add(tx.Amount)
		}
	}
	if n := len(annotated); n > 0 {
		summary.ClosingBalance = annotated[n-1].BalanceAfter
	}
	return summary, nil
}

// NetChange is the sum of deltas, without scope checks. Used to roll an
// opening balance forward across months.
func NetChange(txs []Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range txs {
		net = net.Add(tx.Delta())
	}
	return net
}
