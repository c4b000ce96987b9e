// Package expense implements the expense approval-and-payment workflow:
// the lifecycle state machine, tax derivation, date constraints and the
// field visibility policy. Everything except Service is pure.
package expense

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// STATUS - Closed enumeration, parsed once at ingestion
// =============================================================================

type Status string

const (
	StatusNew                Status = "New"
	StatusWaitingForApproval Status = "WaitingForApproval"
	StatusApproved           Status = "Approved"
	StatusInReviewByFinance  Status = "InReviewByFinance"
	StatusReadyForPayment    Status = "ReadyForPayment"
	StatusPaid               Status = "Paid"
	StatusRejected           Status = "Rejected"
)

var allStatuses = []Status{
	StatusNew,
	StatusWaitingForApproval,
	StatusApproved,
	StatusInReviewByFinance,
	StatusReadyForPayment,
	StatusPaid,
	StatusRejected,
}

// Statuses returns every status in declaration order.
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus maps free-text status values ("Waiting For Approval",
// "in-review-by-finance", "") onto the enumeration. Whitespace and
// non-letters are ignored and case doesn't matter. Empty input is StatusNew.
func ParseStatus(raw string) (Status, error) {
	key := letters(raw)
	if key == "" {
		return StatusNew, nil
	}
	for _, s := range allStatuses {
		if letters(string(s)) == key {
			return s, nil
		}
	}
	return "", generic.NewValidationError("status", "unknown status "+quote(raw))
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusRejected
}

// =============================================================================
// PAYMENT METHOD
// =============================================================================

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentBankTransfer PaymentMethod = "BankTransfer"
	PaymentCard         PaymentMethod = "Card"
	PaymentCheque       PaymentMethod = "Cheque"
)

var allPaymentMethods = []PaymentMethod{PaymentCash, PaymentBankTransfer, PaymentCard, PaymentCheque}

// ParsePaymentMethod accepts the same loose spelling as ParseStatus.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	key := letters(raw)
	for _, m := range allPaymentMethods {
		if letters(string(m)) == key {
			return m, nil
		}
	}
	return "", generic.NewValidationError("paymentMethod", "unknown payment method "+quote(raw))
}

func letters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func quote(s string) string { return "\"" + s + "\"" }

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attachment is the shared None | Existing | Pending variant.
type Attachment = generic.Attachment

func NoAttachment() Attachment                 { return generic.NoAttachment() }
func ExistingAttachment(url string) Attachment { return generic.ExistingAttachment(url) }
func PendingAttachment(ref string) Attachment  { return generic.PendingAttachment(ref) }

// AttachmentSlot names the three attachment fields of an expense.
type AttachmentSlot string

const (
	SlotReceipt      AttachmentSlot = "receipt"
	SlotIssuedCheque AttachmentSlot = "issuedCheque"
	SlotPaymentSlip  AttachmentSlot = "paymentSlip"
)

type Attachments struct {
	Receipt      Attachment
	IssuedCheque Attachment
	PaymentSlip  Attachment
}

// Get returns the attachment in slot.
func (a Attachments) Get(slot AttachmentSlot) Attachment {
	switch slot {
	case SlotReceipt:
		return a.Receipt
	case SlotIssuedCheque:
		return a.IssuedCheque
	case SlotPaymentSlip:
		return a.PaymentSlip
	}
	return Attachment{}
}

// With returns a copy with slot replaced.
func (a Attachments) With(slot AttachmentSlot, att Attachment) Attachments {
	switch slot {
	case SlotReceipt:
		a.Receipt = att
	case SlotIssuedCheque:
		a.IssuedCheque = att
	case SlotPaymentSlip:
		a.PaymentSlip = att
	}
	return a
}

// =============================================================================
// EXPENSE
// =============================================================================

type Expense struct {
	ID            generic.ExpenseID
	Title         string
	VendorID      generic.VendorID
	OfficeID      generic.OfficeID
	Category      string
	PaymentMethod PaymentMethod

	BillDate    generic.Date
	DueDate     generic.Date
	PaymentDate generic.Date // zero when unpaid

	Amount         decimal.Decimal
	WHT            decimal.Decimal // percent
	AdvanceTax     decimal.Decimal
	AmountAfterTax decimal.Decimal // derived, see tax.go

	Status          Status
	RejectionReason string
	Attachments     Attachments

	// Version increments on every persisted change (optimistic locking).
	Version   int
	CreatedBy generic.ActorID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCashPayment reports whether the expense is paid from cash.
func (e Expense) IsCashPayment() bool { return e.PaymentMethod == PaymentCash }

// Vendor is external master data. WHT is copied into new expenses.
type Vendor struct {
	ID        generic.VendorID
	Name      string
	WHT       decimal.Decimal
	CreatedAt time.Time
}

// =============================================================================
// PATCH - A user edit. Nil fields are left unchanged.
// =============================================================================

type Patch struct {
	Title         *string
	VendorID      *generic.VendorID
	OfficeID      *generic.OfficeID
	Category      *string
	PaymentMethod *PaymentMethod

	BillDate    *generic.Date
	DueDate     *generic.Date
	PaymentDate *generic.Date

	Amount     *decimal.Decimal
	WHT        *decimal.Decimal
	AdvanceTax *decimal.Decimal

	Receipt      *Attachment
	IssuedCheque *Attachment
	PaymentSlip  *Attachment
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.VendorID == nil && p.OfficeID == nil && p.Category == nil &&
		p.PaymentMethod == nil && p.BillDate == nil && p.DueDate == nil && p.PaymentDate == nil &&
		p.Amount == nil && p.WHT == nil && p.AdvanceTax == nil &&
		p.Receipt == nil && p.IssuedCheque == nil && p.PaymentSlip == nil
}
