package expense

import (
	"context"

	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// STORE - Persistence collaborator for expenses and vendors
// =============================================================================

// Store persists expenses and vendors.
//
// UpdateExpense is a compare-and-swap on Version: it fails with
// generic.ErrConcurrentModification when the stored version differs from
// expectedVersion, so two writers can't both act on the same snapshot.
type Store interface {
	CreateExpense(ctx context.Context, e Expense) error
	UpdateExpense(ctx context.Context, e Expense, expectedVersion int) error
	GetExpense(ctx context.Context, id generic.ExpenseID) (Expense, error)
	ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, error)

	SaveVendor(ctx context.Context, v Vendor) error
	GetVendor(ctx context.Context, id generic.VendorID) (Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
}

// ListFilter narrows ListExpenses. Zero fields match everything.
type ListFilter struct {
	OfficeID generic.OfficeID
	VendorID generic.VendorID
	Statuses []Status
}

// Matches reports whether e satisfies the filter.
func (f ListFilter) Matches(e Expense) bool {
	if f.OfficeID != "" && e.OfficeID != f.OfficeID {
		return false
	}
	if f.VendorID != "" && e.VendorID != f.VendorID {
		return false
	}
	if len(f.Statuses) > 0 && !statusIn(e.Status, f.Statuses...) {
		return false
	}
	return true
}
