// Package memory provides an in-memory implementation of the expense,
// petty-cash and audit stores (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	expenses     map[generic.ExpenseID]expense.Expense
	expenseOrder []generic.ExpenseID
	vendors      map[generic.VendorID]expense.Vendor

	// transactions are kept in insertion order per office.
	transactions map[generic.OfficeID][]pettycash.Transaction
	offices      []generic.OfficeID
	closes       map[pettycash.Scope]pettycash.MonthClose

	audit []generic.AuditEntry
}

var (
	_ expense.Store    = (*Store)(nil)
	_ pettycash.Store  = (*Store)(nil)
	_ generic.AuditLog = (*Store)(nil)
)

func New() *Store {
	return &Store{
		expenses:     make(map[generic.ExpenseID]expense.Expense),
		vendors:      make(map[generic.VendorID]expense.Vendor),
		transactions: make(map[generic.OfficeID][]pettycash.Transaction),
		closes:       make(map[pettycash.Scope]pettycash.MonthClose),
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) CreateExpense(_ context.Context, e expense.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[e.ID]; ok {
		return fmt.Errorf("expense %s: %w", e.ID, generic.ErrDuplicate)
	}
	s.expenses[e.ID] = e
	s.expenseOrder = append(s.expenseOrder, e.ID)
	return nil
}

// UpdateExpense replaces e if the stored version still equals expectedVersion.
func (s *Store) UpdateExpense(_ context.Context, e expense.Expense, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.expenses[e.ID]
	if !ok {
		return fmt.Errorf("expense %s: %w", e.ID, generic.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("expense %s is at version %d, expected %d: %w",
			e.ID, current.Version, expectedVersion, generic.ErrConcurrentModification)
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) GetExpense(_ context.Context, id generic.ExpenseID) (expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok {
		return expense.Expense{}, fmt.Errorf("expense %s: %w", id, generic.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, filter expense.ListFilter) ([]expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []expense.Expense
	for _, id := range s.expenseOrder {
		if e := s.expenses[id]; filter.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

// =============================================================================
// VENDORS
// =============================================================================

func (s *Store) SaveVendor(_ context.Context, v expense.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors[v.ID] = v
	return nil
}

func (s *Store) GetVendor(_ context.Context, id generic.VendorID) (expense.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vendors[id]
	if !ok {
		return expense.Vendor{}, fmt.Errorf("vendor %s: %w", id, generic.ErrNotFound)
	}
	return v, nil
}

func (s *Store) ListVendors(_ context.Context) ([]expense.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]expense.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// PETTY CASH
// =============================================================================

// CreateTransaction appends tx. Append-only.
func (s *Store) CreateTransaction(_ context.Context, tx pettycash.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, known := s.transactions[tx.OfficeID]
	for _, existing := range txs {
		if existing.ID == tx.ID {
			return fmt.Errorf("transaction %s: %w", tx.ID, generic.ErrDuplicate)
		}
	}
	if !known {
		s.offices = append(s.offices, tx.OfficeID)
	}
	s.transactions[tx.OfficeID] = append(txs, tx)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, scope pettycash.Scope) ([]pettycash.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pettycash.Transaction
	for _, tx := range s.transactions[scope.OfficeID] {
		if tx.Month == scope.Month {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *Store) ListOfficeTransactions(_ context.Context, office generic.OfficeID) ([]pettycash.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]pettycash.Transaction, len(s.transactions[office]))
	copy(result, s.transactions[office])
	return result, nil
}

func (s *Store) ListOffices(_ context.Context) ([]generic.OfficeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[generic.OfficeID]bool, len(s.offices))
	result := make([]generic.OfficeID, 0, len(s.offices))
	for _, o := range s.offices {
		seen[o] = true
		result = append(result, o)
	}
	for scope := range s.closes {
		if !seen[scope.OfficeID] {
			seen[scope.OfficeID] = true
			result = append(result, scope.OfficeID)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (s *Store) SaveMonthClose(_ context.Context, c pettycash.MonthClose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.closes[c.Scope]; ok {
		return fmt.Errorf("month close %s: %w", c.Scope, generic.ErrDuplicate)
	}
	s.closes[c.Scope] = c
	return nil
}

func (s *Store) LatestMonthClose(_ context.Context, office generic.OfficeID, before generic.Month) (*pettycash.MonthClose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *pettycash.MonthClose
	for scope, c := range s.closes {
		if scope.OfficeID != office {
			continue
		}
		if !before.IsZero() && !scope.Month.Before(before) {
			continue
		}
		if latest == nil || scope.Month.After(latest.Scope.Month) {
			c := c
			latest = &c
		}
	}
	return latest, nil
}

// =============================================================================
// AUDIT
// =============================================================================

func (s *Store) AppendAudit(_ context.Context, entry generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) QueryAudit(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []generic.AuditEntry
	for _, entry := range s.audit {
		if filter.Matches(entry) {
			result = append(result, entry)
		}
	}
	return result, nil
}
