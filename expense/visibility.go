/*
visibility.go - Which fields and attachments are shown and editable

PURPOSE:

	The single place that decides, from (status, payment method, cash flag,
	editing flag), whether a field or attachment is visible and whether it
	may be changed. Rendering code and Edit/Advance both delegate here instead
	of re-deriving the conditions.

RULES:

	Field           Visible when                              Editable when
	--------------  ----------------------------------------  ---------------------------------------------
	receipt         always                                    editing
	issuedCheque    method != Cash AND status in              status == InReviewByFinance
	                {InReviewByFinance, ReadyForPayment, Paid}
	paymentSlip     ShowPaymentSlip flag, default status in   status == ReadyForPayment OR
	                {ReadyForPayment, Paid}                   (status == Approved AND cash payment)
	paymentDate     status in {New, WaitingForApproval,       status in {New, WaitingForApproval, Approved,
	                Approved, ReadyForPayment, Paid}          ReadyForPayment} AND method in
	                                                          {BankTransfer, Cash, Cheque}
	billDate/dueDate always                                   editing

	Every predicate is a pure function of its Context.
*/
package expense

// Context is the input of every visibility predicate.
type Context struct {
	Status        Status
	PaymentMethod PaymentMethod
	IsCashPayment bool
	IsEditing     bool

	// ShowPaymentSlip overrides the status-derived payment slip visibility
	// when the caller has its own flag. Nil means derive from status.
	ShowPaymentSlip *bool
}

// ContextFor derives a Context from a stored expense.
func ContextFor(e Expense, editing bool) Context {
	return Context{
		Status:        e.Status,
		PaymentMethod: e.PaymentMethod,
		IsCashPayment: e.IsCashPayment(),
		IsEditing:     editing,
	}
}

func statusIn(s Status, set ...Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// =============================================================================
// PREDICATES
// =============================================================================

func ReceiptVisible(Context) bool     { return true }
func ReceiptEditable(c Context) bool  { return c.IsEditing }
func BillDateVisible(Context) bool    { return true }
func BillDateEditable(c Context) bool { return c.IsEditing }
func DueDateVisible(Context) bool     { return true }
func DueDateEditable(c Context) bool  { return c.IsEditing }

func IssuedChequeVisible(c Context) bool {
	return c.PaymentMethod != PaymentCash &&
		statusIn(c.Status, StatusInReviewByFinance, StatusReadyForPayment, StatusPaid)
}

func IssuedChequeEditable(c Context) bool {
	return c.Status == StatusInReviewByFinance
}

func PaymentSlipVisible(c Context) bool {
	if c.ShowPaymentSlip != nil {
		return *c.ShowPaymentSlip
	}
	return statusIn(c.Status, StatusReadyForPayment, StatusPaid)
}

func PaymentSlipEditable(c Context) bool {
	return c.Status == StatusReadyForPayment ||
		(c.Status == StatusApproved && c.IsCashPayment)
}

func PaymentDateVisible(c Context) bool {
	return statusIn(c.Status,
		StatusReadyForPayment, StatusNew, StatusWaitingForApproval, StatusApproved, StatusPaid)
}

func PaymentDateEditable(c Context) bool {
	return statusIn(c.Status,
		StatusReadyForPayment, StatusNew, StatusWaitingForApproval, StatusApproved) &&
		(c.PaymentMethod == PaymentBankTransfer ||
			c.PaymentMethod == PaymentCash ||
			c.PaymentMethod == PaymentCheque)
}

// AttachmentEditable dispatches to the predicate for slot.
func AttachmentEditable(c Context, slot AttachmentSlot) bool {
	switch slot {
	case SlotReceipt:
		return ReceiptEditable(c)
	case SlotIssuedCheque:
		return IssuedChequeEditable(c)
	case SlotPaymentSlip:
		return PaymentSlipEditable(c)
	}
	return false
}

// =============================================================================
// FIELD ACCESS TABLE
// =============================================================================

type Access struct {
	Visible  bool
	Editable bool
}

// FieldAccess is the whole table for one Context.
type FieldAccess struct {
	Receipt      Access
	IssuedCheque Access
	PaymentSlip  Access
	PaymentDate  Access
	BillDate     Access
	DueDate      Access
}

// Evaluate runs every predicate against c.
func Evaluate(c Context) FieldAccess {
	return FieldAccess{
		Receipt:      Access{Visible: ReceiptVisible(c), Editable: ReceiptEditable(c)},
		IssuedCheque: Access{Visible: IssuedChequeVisible(c), Editable: IssuedChequeEditable(c)},
		PaymentSlip:  Access{Visible: PaymentSlipVisible(c), Editable: PaymentSlipEditable(c)},
		PaymentDate:  Access{Visible: PaymentDateVisible(c), Editable: PaymentDateEditable(c)},
		BillDate:     Access{Visible: BillDateVisible(c), Editable: BillDateEditable(c)},
		DueDate:      Access{Visible: DueDateVisible(c), Editable: DueDateEditable(c)},
	}
}
