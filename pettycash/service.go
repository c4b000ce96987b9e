/*
service.go - Petty-cash ledger orchestration

PURPOSE:
  Connects the pure ledger to storage:
  1. Record: validate and append a transaction to an open month
  2. Ledger: load a scope, derive its opening balance, annotate balances
  3. CloseMonth: freeze a scope's closing balance as the next opening
  4. CloseDue: close every finished month not yet closed (scheduler)

OPENING BALANCE:
  opening(office, M) = closing(office, M-1), 0 before the first period.
  The latest MonthClose before M is the starting point; months between it
  and M that were never closed are rolled forward from their transactions.

CLOSED MONTHS:
  Once a month is closed, it and every earlier month reject new
  transactions: a late entry would silently change every later opening.

SEE ALSO:
  - ledger.go: Balance arithmetic
  - api/scheduler.go: Calls CloseDue periodically
*/
package pettycash

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists petty-cash transactions and month closes. Transactions
// are append-only.
type Store interface {
	CreateTransaction(ctx context.Context, tx Transaction) error

	// ListTransactions returns a scope's transactions in insertion order.
	ListTransactions(ctx context.Context, scope Scope) ([]Transaction, error)

	// ListOfficeTransactions returns every transaction of an office in
	// insertion order.
	ListOfficeTransactions(ctx context.Context, office generic.OfficeID) ([]Transaction, error)

	ListOffices(ctx context.Context) ([]generic.OfficeID, error)

	SaveMonthClose(ctx context.Context, c MonthClose) error

	// LatestMonthClose returns the newest close of office strictly before
	// month, or nil. A zero month means "no upper bound".
	LatestMonthClose(ctx context.Context, office generic.OfficeID, before generic.Month) (*MonthClose, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type RecordInput struct {
	OfficeID      generic.OfficeID
	Month         generic.Month
	Type          TransactionType
	Amount        decimal.Decimal
	DateOfPayment generic.Date
	BankName      string
	ChequeImage   generic.Attachment
	Description   string
}

type Service struct {
	Store Store
	Audit generic.AuditLog
	Log   zerolog.Logger

	Now   func() time.Time
	NewID func() string
}

func NewService(store Store, audit generic.AuditLog) *Service {
	return &Service{
		Store: store,
		Audit: audit,
		Log:   zerolog.Nop(),
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Record validates and stores a transaction.
func (s *Service) Record(ctx context.Context, actor generic.ActorID, in RecordInput) (Transaction, error) {
	verr := &generic.ValidationError{}
	if in.OfficeID == "" {
		verr.Add("officeId", "Office is required")
	}
	if _, err := ParseTransactionType(string(in.Type)); err != nil {
		verr.Merge(err)
	}
	if !in.Amount.IsPositive() {
		verr.Add("amount", "Amount must be greater than zero")
	}
	if in.DateOfPayment.IsZero() {
		verr.Add("dateOfPayment", "Date of payment is required")
	}

	month := in.Month
	if month.IsZero() {
		month = in.DateOfPayment.MonthOf()
	}
	if !in.DateOfPayment.IsZero() && !month.Contains(in.DateOfPayment) {
		verr.Add("dateOfPayment", "Date of payment must fall within "+month.String())
	}
	if err := verr.OrNil(); err != nil {
		return Transaction{}, err
	}

	scope := Scope{OfficeID: in.OfficeID, Month: month}
	if latest, err := s.Store.LatestMonthClose(ctx, in.OfficeID, generic.Month{}); err != nil {
		return Transaction{}, fmt.Errorf("failed to load month close: %w", err)
	} else if latest != nil && !latest.Scope.Month.Before(month) {
		return Transaction{}, generic.NewValidationError("month",
			"Month "+month.String()+" is closed (closed through "+latest.Scope.Month.String()+")")
	}

	tx := Transaction{
		ID:            generic.TransactionID(s.NewID()),
		OfficeID:      in.OfficeID,
		Month:         month,
		Type:          in.Type,
		Amount:        generic.RoundMoney(in.Amount),
		DateOfPayment: in.DateOfPayment,
		BankName:      strings.TrimSpace(in.BankName),
		ChequeImage:   in.ChequeImage,
		Description:   strings.TrimSpace(in.Description),
		CreatedBy:     actor,
		CreatedAt:     s.Now().UTC(),
	}
	if err := s.Store.CreateTransaction(ctx, tx); err != nil {
		return Transaction{}, fmt.Errorf("failed to store transaction: %w", err)
	}

	s.audit(ctx, actor, generic.AuditPettyCashRecord, scope, map[string]string{
		"transactionId": string(tx.ID),
		"type":          string(tx.Type),
		"amount":        generic.FormatMoney(tx.Amount),
	})
	return tx, nil
}

// OpeningBalance returns the closing balance of the month before scope.
func (s *Service) OpeningBalance(ctx context.Context, scope Scope) (decimal.Decimal, error) {
	opening := decimal.Zero
	var after *generic.Month

	latest, err := s.Store.LatestMonthClose(ctx, scope.OfficeID, scope.Month)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load month close: %w", err)
	}
	if latest != nil {
		opening = latest.ClosingBalance
		after = &latest.Scope.Month
	}

	all, err := s.Store.ListOfficeTransactions(ctx, scope.OfficeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load transactions: %w", err)
	}
	var between []Transaction
	for _, tx := range all {
		if !tx.Month.Before(scope.Month) {
			continue
		}
		if after != nil && !tx.Month.After(*after) {
			continue
		}
		between = append(between, tx)
	}
	return opening.Add(NetChange(between)), nil
}

// Ledger returns the annotated transactions and summary of a scope.
func (s *Service) Ledger(ctx context.Context, scope Scope) (MonthLedger, error) {
	opening, err := s.OpeningBalance(ctx, scope)
	if err != nil {
		return MonthLedger{}, err
	}
	txs, err := s.Store.ListTransactions(ctx, scope)
	if err != nil {
		return MonthLedger{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	annotated, err := ComputeBalances(txs, opening)
	if err != nil {
		return MonthLedger{}, err
	}
	summary, err := Summarize(txs, opening)
	if err != nil {
		return MonthLedger{}, err
	}

	closed, err := s.isClosed(ctx, scope)
	if err != nil {
		return MonthLedger{}, err
	}
	return MonthLedger{Scope: scope, Transactions: annotated, Summary: summary, Closed: closed}, nil
}

func (s *Service) isClosed(ctx context.Context, scope Scope) (bool, error) {
	latest, err := s.Store.LatestMonthClose(ctx, scope.OfficeID, generic.Month{})
	if err != nil {
		return false, fmt.Errorf("failed to load month close: %w", err)
	}
	return latest != nil && !latest.Scope.Month.Before(scope.Month), nil
}

// CloseMonth freezes the closing balance of a finished month. Closing an
// already closed month returns the existing close.
func (s *Service) CloseMonth(ctx context.Context, actor generic.ActorID, scope Scope) (MonthClose, error) {
	current := generic.DateOf(s.Now()).MonthOf()
	if !scope.Month.Before(current) {
		return MonthClose{}, generic.NewValidationError("month", "Only finished months can be closed")
	}

	existing, err := s.Store.LatestMonthClose(ctx, scope.OfficeID, scope.Month.Next())
	if err != nil {
		return MonthClose{}, fmt.Errorf("failed to load month close: %w", err)
	}
	if existing != nil && existing.Scope.Month == scope.Month {
		return *existing, nil
	}
	if closed, err := s.isClosed(ctx, scope); err != nil {
		return MonthClose{}, err
	} else if closed {
		return MonthClose{}, generic.NewValidationError("month", "A later month is already closed")
	}

	ledger, err := s.Ledger(ctx, scope)
	if err != nil {
		return MonthClose{}, err
	}
	c := MonthClose{
		Scope:          scope,
		OpeningBalance: ledger.Summary.OpeningBalance,
		ClosingBalance: ledger.Summary.ClosingBalance,
		ClosedBy:       actor,
		ClosedAt:       s.Now().UTC(),
	}
	if err := s.Store.SaveMonthClose(ctx, c); err != nil {
		return MonthClose{}, fmt.Errorf("failed to store month close: %w", err)
	}

	s.audit(ctx, actor, generic.AuditMonthClosed, scope, map[string]string{
		"opening": generic.FormatMoney(c.OpeningBalance),
		"closing": generic.FormatMoney(c.ClosingBalance),
	})
	return c, nil
}

// CloseDue closes, for every office, each finished month from the first
// unclosed month with activity up to last month, in order.
func (s *Service) CloseDue(ctx context.Context, actor generic.ActorID) ([]MonthClose, error) {
	offices, err := s.Store.ListOffices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	lastMonth := generic.DateOf(s.Now()).MonthOf().Previous()

	var closes []MonthClose
	for _, office := range offices {
		first, err := s.firstOpenMonth(ctx, office)
		if err != nil {
			return closes, err
		}
		if first == nil {
			continue
		}
		for m := *first; !m.After(lastMonth); m = m.Next() {
			c, err := s.CloseMonth(ctx, actor, Scope{OfficeID: office, Month: m})
			if err != nil {
				return closes, fmt.Errorf("close %s/%s: %w", office, m, err)
			}
			closes = append(closes, c)
		}
	}
	return closes, nil
}

func (s *Service) firstOpenMonth(ctx context.Context, office generic.OfficeID) (*generic.Month, error) {
	latest, err := s.Store.LatestMonthClose(ctx, office, generic.Month{})
	if err != nil {
		return nil, fmt.Errorf("failed to load month close: %w", err)
	}
	if latest != nil {
		next := latest.Scope.Month.Next()
		return &next, nil
	}

	txs, err := s.Store.ListOfficeTransactions(ctx, office)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	months := make([]generic.Month, len(txs))
	for i, tx := range txs {
		months[i] = tx.Month
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return &months[0], nil
}

func (s *Service) audit(ctx context.Context, actor generic.ActorID, action generic.AuditAction, scope Scope, payload map[string]string) {
	if s.Audit == nil {
		return
	}
	entry := generic.AuditEntry{
		ID:        s.NewID(),
		Timestamp: s.Now().UTC(),
		ActorID:   actor,
		Action:    action,
		SubjectID: scope.String(),
		Payload:   payload,
	}
	if err := s.Audit.AppendAudit(ctx, entry); err != nil {
		s.Log.Error().Err(err).
			Str("action", string(action)).
			Str("subject", entry.SubjectID).
			Str("actor", string(actor)).
			Msg("failed to append audit entry")
	}
}
