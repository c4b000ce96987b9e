/*
store.go - Audit log contract

PURPOSE:
  Every create, edit and status transition is recorded as an audit entry
  so an expense's history can be explained after the fact. The log is
  append-only: entries are never updated or deleted.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - expense/service.go: Writes entries for every operation
  - api/handlers.go: GET /api/expenses/{id}/history
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Tracks who did what when
// =============================================================================

type AuditAction string

const (
	AuditExpenseCreated  AuditAction = "expense_created"
	AuditExpenseEdited   AuditAction = "expense_edited"
	AuditExpenseSubmit   AuditAction = "expense_submitted"
	AuditExpenseAdvanced AuditAction = "expense_advanced"
	AuditExpenseRejected AuditAction = "expense_rejected"
	AuditPettyCashRecord AuditAction = "petty_cash_recorded"
	AuditMonthClosed     AuditAction = "month_closed"
)

// AuditEntry records one action against a subject (an expense ID, or an
// office/month key for petty cash).
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   ActorID
	Action    AuditAction
	SubjectID string
	Payload   map[string]string
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditFilter narrows a query. Zero fields match everything.
type AuditFilter struct {
	SubjectID string
	ActorID   ActorID
	Actions   []AuditAction
	From      *time.Time
	To        *time.Time
}

// Matches reports whether entry satisfies the filter.
func (f AuditFilter) Matches(entry AuditEntry) bool {
	if f.SubjectID != "" && entry.SubjectID != f.SubjectID {
		return false
	}
	if f.ActorID != "" && entry.ActorID != f.ActorID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == entry.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && entry.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && entry.Timestamp.After(*f.To) {
		return false
	}
	return true
}
