// Package pettycash maintains per-office, per-month petty-cash ledgers.
// Balances are never stored as a source of truth: they are replayed from
// the ordered transactions of a scope plus the scope's opening balance.
package pettycash

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionType string

const (
	TxIncome  TransactionType = "income"
	TxExpense TransactionType = "expense"
)

// ParseTransactionType accepts "income" or "expense".
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(raw) {
	case TxIncome, TxExpense:
		return TransactionType(raw), nil
	}
	return "", generic.NewValidationError("transactionType", "Transaction type must be income or expense")
}

// Transaction is one petty-cash movement. It never changes state after it
// is recorded; only BalanceAfter moves when earlier transactions in the
// same scope change.
type Transaction struct {
	ID            generic.TransactionID
	OfficeID      generic.OfficeID
	Month         generic.Month
	Type          TransactionType
	Amount        decimal.Decimal
	DateOfPayment generic.Date
	BalanceAfter  decimal.Decimal // derived

	BankName    string
	ChequeImage generic.Attachment
	Description string

	CreatedBy generic.ActorID
	CreatedAt time.Time
}

// Delta is the signed effect on the balance: +amount for income,
// -amount for expense.
func (t Transaction) Delta() decimal.Decimal {
	if t.Type == TxExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// =============================================================================
// SCOPE / SUMMARY / CLOSE
// =============================================================================

// Scope is the (office, month) pair a ledger is computed over.
type Scope struct {
	OfficeID generic.OfficeID
	Month    generic.Month
}

func (s Scope) String() string { return string(s.OfficeID) + "/" + s.Month.String() }

type Summary struct {
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	TotalIncome    decimal.Decimal
	TotalExpense   decimal.Decimal
}

// MonthLedger is a scope's annotated transactions and summary.
type MonthLedger struct {
	Scope        Scope
	Transactions []Transaction
	Summary      Summary
	Closed       bool
}

// MonthClose freezes a scope's closing balance. The next month's opening
// balance is read from it.
type MonthClose struct {
	Scope          Scope
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	ClosedBy       generic.ActorID
	ClosedAt       time.Time
}
