/*
lifecycle.go - Expense status state machine

PURPOSE:
  Computes the intended next state of an expense and whether the request
  is legal. It performs no I/O: Service persists the result.

STATE MACHINE:
  ┌─────┐ submit ┌────────────────────┐ advance ┌──────────┐ advance ┌───────────────────┐
  │ New │──────▶ │ WaitingForApproval │───────▶ │ Approved │───────▶ │ InReviewByFinance │
  └─────┘        └────────────────────┘         └──────────┘         └───────────────────┘
                                                                              │ advance
                                                                              ▼
                                          ┌──────┐   advance    ┌─────────────────┐
                                          │ Paid │ ◀─────────── │ ReadyForPayment │
                                          └──────┘              └─────────────────┘

  reject: any status except Paid and Rejected ──▶ Rejected
  Paid and Rejected are terminal.

ATTACHMENT REQUIREMENTS:
  Files may ride along with an advance (e.g. the issued cheque scanned at
  the moment finance signs off). A carried file must be editable for the
  current status under the visibility policy.
  - Leaving InReviewByFinance on a Cheque payment needs an issued cheque.
  - Entering Paid needs a payment slip.

SEE ALSO:
  - visibility.go: Which slots are editable per status
  - service.go: Persists transitions, one in flight per expense
*/
package expense

import (
	"strings"

	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// ORDER - The linear approval path
// =============================================================================

var order = []Status{
	StatusWaitingForApproval,
	StatusApproved,
	StatusInReviewByFinance,
	StatusReadyForPayment,
	StatusPaid,
}

// Order returns the linear approval path.
func Order() []Status {
	return append([]Status(nil), order...)
}

// NextStatus is the only place the successor of a status is looked up.
func NextStatus(s Status) (Status, error) {
	for i, candidate := range order {
		if candidate != s {
			continue
		}
		if i == len(order)-1 {
			return "", &generic.TransitionError{Action: "advance", From: string(s), Reason: "status is final"}
		}
		return order[i+1], nil
	}
	return "", &generic.TransitionError{Action: "advance", From: string(s), Reason: "status is not on the approval path"}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Submit moves a draft into the approval path.
func Submit(e Expense) (Expense, error) {
	if e.Status != StatusNew {
		return e, &generic.TransitionError{Action: "submit", From: string(e.Status), Reason: "only new expenses can be submitted"}
	}
	if err := Validate(e); err != nil {
		return e, err
	}
	e.Status = StatusWaitingForApproval
	return e, nil
}

// Advance returns e moved one step along the approval path with the
// carried attachments applied.
func Advance(e Expense, carried map[AttachmentSlot]Attachment) (Expense, error) {
	next, err := NextStatus(e.Status)
	if err != nil {
		return e, err
	}

	ctx := ContextFor(e, false)
	verr := &generic.ValidationError{}
	attachments := e.Attachments
	for slot, att := range carried {
		if !att.IsPresent() {
			verr.Add(string(slot), "Attachment is empty")
			continue
		}
		if !AttachmentEditable(ctx, slot) {
			verr.Add(string(slot), "Attachment cannot be changed in status "+string(e.Status))
			continue
		}
		attachments = attachments.With(slot, att)
	}

	if e.Status == StatusInReviewByFinance && e.PaymentMethod == PaymentCheque && !attachments.IssuedCheque.IsPresent() {
		verr.Add(string(SlotIssuedCheque), "Issued cheque is required before the expense is ready for payment")
	}
	if next == StatusPaid && !attachments.PaymentSlip.IsPresent() {
		verr.Add(string(SlotPaymentSlip), "Payment slip is required to mark the expense as paid")
	}
	if err := verr.OrNil(); err != nil {
		return e, err
	}

	e.Attachments = attachments
	e.Status = next
	return e, nil
}

// Reject moves e to Rejected. The reason is mandatory.
func Reject(e Expense, reason string) (Expense, error) {
	if e.Status.IsTerminal() {
		return e, &generic.TransitionError{Action: "reject", From: string(e.Status), Reason: "status is terminal"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return e, generic.NewValidationError("rejectionReason", "Rejection reason is required")
	}
	e.Status = StatusRejected
	e.RejectionReason = reason
	return e, nil
}

// =============================================================================
// EDIT
// =============================================================================

// CanEdit reports whether the expense still accepts edits.
func CanEdit(s Status) bool { return !s.IsTerminal() }

// Edit applies patch to a copy of e. Each patched date or attachment must
// be editable under the visibility policy; the derived amount is recomputed
// and the result re-validated.
func Edit(e Expense, patch Patch) (Expense, error) {
	if !CanEdit(e.Status) {
		return e, &generic.TransitionError{Action: "edit", From: string(e.Status), Reason: "status is terminal"}
	}

	ctx := ContextFor(e, true)
	if patch.PaymentMethod != nil {
		ctx.PaymentMethod = *patch.PaymentMethod
		ctx.IsCashPayment = *patch.PaymentMethod == PaymentCash
	}

	// Resending a field's current value is not a change and never locked.
	verr := &generic.ValidationError{}
	locked := func(field string) {
		verr.Add(field, "Field cannot be changed in status "+string(e.Status))
	}
	checkDate := func(field string, patched *generic.Date, current generic.Date, editable bool) {
		if patched != nil && !patched.Equal(current) && !editable {
			locked(field)
		}
	}
	checkAttachment := func(slot AttachmentSlot, patched *Attachment) {
		if patched == nil || *patched == e.Attachments.Get(slot) {
			return
		}
		if patched.Kind != generic.AttachmentNone && !patched.IsPresent() {
			verr.Add(string(slot), "Attachment is empty")
			return
		}
		if !AttachmentEditable(ctx, slot) {
			locked(string(slot))
		}
	}
	checkDate("billDate", patch.BillDate, e.BillDate, BillDateEditable(ctx))
	checkDate("dueDate", patch.DueDate, e.DueDate, DueDateEditable(ctx))
	checkDate("paymentDate", patch.PaymentDate, e.PaymentDate, PaymentDateEditable(ctx))
	checkAttachment(SlotReceipt, patch.Receipt)
	checkAttachment(SlotIssuedCheque, patch.IssuedCheque)
	checkAttachment(SlotPaymentSlip, patch.PaymentSlip)
	if err := verr.OrNil(); err != nil {
		return e, err
	}

	updated := apply(e, patch)
	updated, err := Recompute(updated)
	if err != nil {
		return e, err
	}
	if err := Validate(updated); err != nil {
		return e, err
	}
	return updated, nil
}

func apply(e Expense, p Patch) Expense {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.VendorID != nil {
		e.VendorID = *p.VendorID
	}
	if p.OfficeID != nil {
		e.OfficeID = *p.OfficeID
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.BillDate != nil {
		e.BillDate = *p.BillDate
	}
	if p.DueDate != nil {
		e.DueDate = *p.DueDate
	}
	if p.PaymentDate != nil {
		e.PaymentDate = *p.PaymentDate
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.WHT != nil {
		e.WHT = *p.WHT
	}
	if p.AdvanceTax != nil {
		e.AdvanceTax = *p.AdvanceTax
	}
	if p.Receipt != nil {
		e.Attachments.Receipt = *p.Receipt
	}
	if p.IssuedCheque != nil {
		e.Attachments.IssuedCheque = *p.IssuedCheque
	}
	if p.PaymentSlip != nil {
		e.Attachments.PaymentSlip = *p.PaymentSlip
	}
	return e
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the record-level rules: required fields, non-negative
// amounts, date ordering, the derived amount being current and the
// rejection reason being present exactly when rejected.
func Validate(e Expense) error {
	verr := &generic.ValidationError{}
	if strings.TrimSpace(e.Title) == "" {
		verr.Add("title", "Title is required")
	}
	if e.VendorID == "" {
		verr.Add("vendorId", "Vendor is required")
	}
	if e.OfficeID == "" {
		verr.Add("officeId", "Office is required")
	}
	if _, err := ParsePaymentMethod(string(e.PaymentMethod)); err != nil {
		verr.Merge(err)
	}
	if e.BillDate.IsZero() {
		verr.Add("billDate", "Bill date is required")
	}
	if e.DueDate.IsZero() {
		verr.Add("dueDate", "Due date is required")
	}

	after, err := ComputeAmountAfterTax(e.Amount, e.AdvanceTax, e.WHT)
	if err != nil {
		verr.Merge(err)
	} else if !after.Equal(e.AmountAfterTax) {
		verr.Add("amountAfterTax", "Amount after tax is stale")
	}
	verr.Merge(CheckDates(e))

	switch {
	case e.Status == StatusRejected && strings.TrimSpace(e.RejectionReason) == "":
		verr.Add("rejectionReason", "Rejection reason is required")
	case e.Status != StatusRejected && e.RejectionReason != "":
		verr.Add("rejectionReason", "Only rejected expenses carry a rejection reason")
	}
	return verr.OrNil()
}
