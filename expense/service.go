/*
service.go - Expense workflow orchestration

PURPOSE:
  Wraps the pure lifecycle with persistence and auditing:
  1. Create: default WHT from the vendor, derive amounts, validate, store
  2. Edit: apply a patch under the visibility policy, store with CAS
  3. Submit / Advance / Reject: compute the transition, store with CAS
  4. History: audit entries for an expense

IN-FLIGHT GUARD:
  At most one transition per expense is processed at a time. A second
  Submit/Advance/Reject for the same expense while the first is still
  running fails fast with generic.ErrTransitionInFlight. Across processes
  the store's version check gives the same guarantee: the loser gets
  generic.ErrConcurrentModification.

EXAMPLE:
  svc := expense.NewService(store, store)

  e, err := svc.Create(ctx, "clerk-1", expense.CreateInput{...})
  e, err = svc.Advance(ctx, "manager-7", e.ID, expense.TransitionRequest{ExpectedVersion: e.Version})

SEE ALSO:
  - lifecycle.go: Transition rules
  - store.go: Persistence contract
*/
package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput carries the fields of a new expense. WHT nil means "use the
// vendor's rate".
type CreateInput struct {
	Title         string
	VendorID      generic.VendorID
	OfficeID      generic.OfficeID
	Category      string
	PaymentMethod PaymentMethod
	BillDate      generic.Date
	DueDate       generic.Date
	PaymentDate   generic.Date
	Amount        decimal.Decimal
	AdvanceTax    decimal.Decimal
	WHT           *decimal.Decimal
	Receipt       Attachment

	// Draft keeps the expense in New until Submit is called.
	Draft bool
}

// TransitionRequest carries the optional payload of Submit/Advance/Reject.
// ExpectedVersion > 0 pins the request to the version the caller saw.
type TransitionRequest struct {
	ExpectedVersion int
	Attachments     map[AttachmentSlot]Attachment
	Reason          string
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store Store
	Audit generic.AuditLog

	// Log receives audit append failures.
	Log zerolog.Logger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string

	mu       sync.Mutex
	inFlight map[generic.ExpenseID]struct{}
}

func NewService(store Store, audit generic.AuditLog) *Service {
	return &Service{
		Store:    store,
		Audit:    audit,
		Log:      zerolog.Nop(),
		Now:      time.Now,
		NewID:    uuid.NewString,
		inFlight: make(map[generic.ExpenseID]struct{}),
	}
}

// Create validates and stores a new expense.
func (s *Service) Create(ctx context.Context, actor generic.ActorID, in CreateInput) (Expense, error) {
	e, err := s.build(ctx, in)
	if err != nil {
		return Expense{}, err
	}

	now := s.Now().UTC()
	e.ID = generic.ExpenseID(s.NewID())
	e.Version = 1
	e.CreatedBy = actor
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.Store.CreateExpense(ctx, e); err != nil {
		return Expense{}, fmt.Errorf("failed to store expense: %w", err)
	}
	s.audit(ctx, actor, generic.AuditExpenseCreated, e.ID, map[string]string{
		"status":         string(e.Status),
		"amountAfterTax": generic.FormatMoney(e.AmountAfterTax),
	})
	return e, nil
}

// Preview runs the same derivation and validation as Create without
// storing anything. The derived expense is returned even when validation
// fails so the caller can show amountAfterTax next to the errors.
func (s *Service) Preview(ctx context.Context, in CreateInput) (Expense, error) {
	return s.build(ctx, in)
}

func (s *Service) build(ctx context.Context, in CreateInput) (Expense, error) {
	status := StatusWaitingForApproval
	if in.Draft {
		status = StatusNew
	}

	e := Expense{
		Title:         in.Title,
		VendorID:      in.VendorID,
		OfficeID:      in.OfficeID,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		BillDate:      in.BillDate,
		DueDate:       in.DueDate,
		PaymentDate:   in.PaymentDate,
		Amount:        in.Amount,
		AdvanceTax:    in.AdvanceTax,
		Status:        status,
		Attachments:   Attachments{Receipt: in.Receipt},
	}

	verr := &generic.ValidationError{}
	if in.WHT != nil {
		e.WHT = *in.WHT
	} else if in.VendorID != "" {
		wht, err := s.vendorWHT(ctx, in.VendorID)
		if err != nil {
			verr.Merge(err)
			if !errors.Is(err, generic.ErrValidation) {
				return e, err
			}
		}
		e.WHT = wht
	}

	if !e.PaymentDate.IsZero() && !PaymentDateEditable(ContextFor(e, true)) {
		verr.Add("paymentDate", "Payment date cannot be set for this payment method")
	}

	derived, err := Recompute(e)
	if err != nil {
		verr.Merge(err)
	} else {
		e = derived
		verr.Merge(Validate(e))
	}
	return e, verr.OrNil()
}

func (s *Service) vendorWHT(ctx context.Context, id generic.VendorID) (decimal.Decimal, error) {
	v, err := s.Store.GetVendor(ctx, id)
	if err != nil {
		if generic.IsNotFound(err) {
			return decimal.Zero, generic.NewValidationError("vendorId", "Unknown vendor")
		}
		return decimal.Zero, fmt.Errorf("failed to load vendor: %w", err)
	}
	return v.WHT, nil
}

// CreateVendor stores a new vendor with its default WHT rate.
func (s *Service) CreateVendor(ctx context.Context, name string, wht decimal.Decimal) (Vendor, error) {
	verr := &generic.ValidationError{}
	name = strings.TrimSpace(name)
	if name == "" {
		verr.Add("name", "Name is required")
	}
	if wht.IsNegative() {
		verr.Add("wht", "WHT cannot be negative")
	}
	if err := verr.OrNil(); err != nil {
		return Vendor{}, err
	}

	v := Vendor{
		ID:        generic.VendorID(s.NewID()),
		Name:      name,
		WHT:       wht,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Store.SaveVendor(ctx, v); err != nil {
		return Vendor{}, fmt.Errorf("failed to store vendor: %w", err)
	}
	return v, nil
}

func (s *Service) GetVendor(ctx context.Context, id generic.VendorID) (Vendor, error) {
	return s.Store.GetVendor(ctx, id)
}

func (s *Service) ListVendors(ctx context.Context) ([]Vendor, error) {
	return s.Store.ListVendors(ctx)
}

// Get returns a stored expense.
func (s *Service) Get(ctx context.Context, id generic.ExpenseID) (Expense, error) {
	return s.Store.GetExpense(ctx, id)
}

// List returns expenses matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	return s.Store.ListExpenses(ctx, filter)
}

// History returns the audit trail of an expense, oldest first.
func (s *Service) History(ctx context.Context, id generic.ExpenseID) ([]generic.AuditEntry, error) {
	if s.Audit == nil {
		return nil, nil
	}
	return s.Audit.QueryAudit(ctx, generic.AuditFilter{SubjectID: string(id)})
}

// Edit applies patch. Selecting a different vendor without an explicit WHT
// resets WHT to the new vendor's rate.
func (s *Service) Edit(ctx context.Context, actor generic.ActorID, id generic.ExpenseID, expectedVersion int, patch Patch) (Expense, error) {
	if patch.IsEmpty() {
		return Expense{}, generic.NewValidationError("_", "Nothing to change")
	}

	current, err := s.load(ctx, id, expectedVersion)
	if err != nil {
		return Expense{}, err
	}

	if patch.VendorID != nil && *patch.VendorID != current.VendorID && patch.WHT == nil {
		wht, err := s.vendorWHT(ctx, *patch.VendorID)
		if err != nil {
			return Expense{}, err
		}
		patch.WHT = &wht
	}

	updated, err := Edit(current, patch)
	if err != nil {
		return Expense{}, err
	}
	return s.persist(ctx, actor, current, updated, generic.AuditExpenseEdited, nil)
}

// Submit moves a draft to WaitingForApproval.
func (s *Service) Submit(ctx context.Context, actor generic.ActorID, id generic.ExpenseID, req TransitionRequest) (Expense, error) {
	return s.transition(ctx, actor, id, req, generic.AuditExpenseSubmit, func(e Expense) (Expense, error) {
		return Submit(e)
	})
}

// Advance moves the expense one step along the approval path.
func (s *Service) Advance(ctx context.Context, actor generic.ActorID, id generic.ExpenseID, req TransitionRequest) (Expense, error) {
	return s.transition(ctx, actor, id, req, generic.AuditExpenseAdvanced, func(e Expense) (Expense, error) {
		return Advance(e, req.Attachments)
	})
}

// Reject moves the expense to Rejected.
func (s *Service) Reject(ctx context.Context, actor generic.ActorID, id generic.ExpenseID, req TransitionRequest) (Expense, error) {
	return s.transition(ctx, actor, id, req, generic.AuditExpenseRejected, func(e Expense) (Expense, error) {
		return Reject(e, req.Reason)
	})
}

func (s *Service) transition(
	ctx context.Context,
	actor generic.ActorID,
	id generic.ExpenseID,
	req TransitionRequest,
	action generic.AuditAction,
	step func(Expense) (Expense, error),
) (Expense, error) {
	if !s.begin(id) {
		return Expense{}, fmt.Errorf("expense %s: %w", id, generic.ErrTransitionInFlight)
	}
	defer s.end(id)

	current, err := s.load(ctx, id, req.ExpectedVersion)
	if err != nil {
		return Expense{}, err
	}
	next, err := step(current)
	if err != nil {
		return Expense{}, err
	}

	payload := map[string]string{}
	if next.Status == StatusRejected {
		payload["reason"] = next.RejectionReason
	}
	for slot := range req.Attachments {
		payload["attached."+string(slot)] = "true"
	}
	return s.persist(ctx, actor, current, next, action, payload)
}

func (s *Service) load(ctx context.Context, id generic.ExpenseID, expectedVersion int) (Expense, error) {
	current, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if expectedVersion > 0 && current.Version != expectedVersion {
		return Expense{}, fmt.Errorf("expense %s is at version %d, not %d: %w",
			id, current.Version, expectedVersion, generic.ErrConcurrentModification)
	}
	return current, nil
}

func (s *Service) persist(
	ctx context.Context,
	actor generic.ActorID,
	before, after Expense,
	action generic.AuditAction,
	payload map[string]string,
) (Expense, error) {
	after.Version = before.Version + 1
	after.UpdatedAt = s.Now().UTC()
	if err := s.Store.UpdateExpense(ctx, after, before.Version); err != nil {
		return Expense{}, fmt.Errorf("failed to store expense: %w", err)
	}

	if payload == nil {
		payload = map[string]string{}
	}
	payload["from"] = string(before.Status)
	payload["to"] = string(after.Status)
	s.audit(ctx, actor, action, after.ID, payload)
	return after, nil
}

func (s *Service) begin(id generic.ExpenseID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[generic.ExpenseID]struct{})
	}
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) end(id generic.ExpenseID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// audit is best effort: a failed append is logged, never returned.
func (s *Service) audit(ctx context.Context, actor generic.ActorID, action generic.AuditAction, id generic.ExpenseID, payload map[string]string) {
	if s.Audit == nil {
		return
	}
	entry := generic.AuditEntry{
		ID:        s.NewID(),
		Timestamp: s.Now().UTC(),
		ActorID:   actor,
		Action:    action,
		SubjectID: string(id),
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
