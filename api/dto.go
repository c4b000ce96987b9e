/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

  JSON keys are camelCase so they line up with the field names carried
  by validation errors ("dueDate", "paymentDate", ...).

MONEY:
  Amounts are rendered as fixed two-decimal strings ("990.00"). Request
  amounts accept a JSON number or a string.

TYPES:
  Vendor:     VendorDTO, CreateVendorRequest
  Expense:    ExpenseDTO, ExpenseRequest, EditExpenseRequest, TransitionRequest
  Visibility: VisibilityDTO
  Petty cash: TransactionDTO, RecordTransactionRequest, LedgerDTO, CloseMonthRequest

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
)

// =============================================================================
// SHARED
// =============================================================================

// ErrorResponse is the standard error response. Fields is set for
// validation failures and maps a field name to its message.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// AttachmentDTO is an attachment reference. Kind is "existing" (location
// is a URL), "pending" (location is an upload ref) or empty.
type AttachmentDTO struct {
	Kind     string `json:"kind,omitempty"`
	Location string `json:"location,omitempty"`
}

func toAttachmentDTO(a generic.Attachment) *AttachmentDTO {
	if !a.IsPresent() {
		return nil
	}
	return &AttachmentDTO{Kind: string(a.Kind), Location: a.Location()}
}

func (a *AttachmentDTO) toAttachment() generic.Attachment {
	if a == nil {
		return generic.Attachment{}
	}
	return generic.ParseAttachment(a.Kind, a.Location)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// =============================================================================
// VENDORS
// =============================================================================

type VendorDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	WHT       string `json:"wht"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type CreateVendorRequest struct {
	Name string          `json:"name"`
	WHT  decimal.Decimal `json:"wht"`
}

func toVendorDTO(v expense.Vendor) VendorDTO {
	return VendorDTO{
		ID:        string(v.ID),
		Name:      v.Name,
		WHT:       v.WHT.String(),
		CreatedAt: formatTime(v.CreatedAt),
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseDTO struct {
	ID              string         `json:"id,omitempty"`
	Title           string         `json:"title"`
	VendorID        string         `json:"vendorId"`
	OfficeID        string         `json:"officeId"`
	Category        string         `json:"category,omitempty"`
	PaymentMethod   string         `json:"paymentMethod"`
	BillDate        string         `json:"billDate,omitempty"`
	DueDate         string         `json:"dueDate,omitempty"`
	PaymentDate     string         `json:"paymentDate,omitempty"`
	Amount          string         `json:"amount"`
	WHT             string         `json:"wht"`
	AdvanceTax      string         `json:"advanceTax"`
	AmountAfterTax  string         `json:"amountAfterTax"`
	Status          string         `json:"status"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	Receipt         *AttachmentDTO `json:"receipt,omitempty"`
	IssuedCheque    *AttachmentDTO `json:"issuedCheque,omitempty"`
	PaymentSlip     *AttachmentDTO `json:"paymentSlip,omitempty"`
	Version         int            `json:"version,omitempty"`
	CreatedBy       string         `json:"createdBy,omitempty"`
	CreatedAt       string         `json:"createdAt,omitempty"`
	UpdatedAt       string         `json:"updatedAt,omitempty"`
}

func toExpenseDTO(e expense.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:              string(e.ID),
		Title:           e.Title,
		VendorID:        string(e.VendorID),
		OfficeID:        string(e.OfficeID),
		Category:        e.Category,
		PaymentMethod:   string(e.PaymentMethod),
		BillDate:        e.BillDate.String(),
		DueDate:         e.DueDate.String(),
		PaymentDate:     e.PaymentDate.String(),
		Amount:          generic.FormatMoney(e.Amount),
		WHT:             e.WHT.String(),
		AdvanceTax:      generic.FormatMoney(e.AdvanceTax),
		AmountAfterTax:  generic.FormatMoney(e.AmountAfterTax),
		Status:          string(e.Status),
		RejectionReason: e.RejectionReason,
		Receipt:         toAttachmentDTO(e.Attachments.Receipt),
		IssuedCheque:    toAttachmentDTO(e.Attachments.IssuedCheque),
		PaymentSlip:     toAttachmentDTO(e.Attachments.PaymentSlip),
		Version:         e.Version,
		CreatedBy:       string(e.CreatedBy),
		CreatedAt:       formatTime(e.CreatedAt),
		UpdatedAt:       formatTime(e.UpdatedAt),
	}
}

// ExpenseRequest creates (or previews) an expense. Omitting wht uses the
// vendor's default rate.
type ExpenseRequest struct {
	Title         string           `json:"title"`
	VendorID      string           `json:"vendorId"`
	OfficeID      string           `json:"officeId"`
	Category      string           `json:"category"`
	PaymentMethod string           `json:"paymentMethod"`
	BillDate      string           `json:"billDate"`
	DueDate       string           `json:"dueDate"`
	PaymentDate   string           `json:"paymentDate"`
	Amount        decimal.Decimal  `json:"amount"`
	AdvanceTax    decimal.Decimal  `json:"advanceTax"`
	WHT           *decimal.Decimal `json:"wht"`
	Receipt       *AttachmentDTO   `json:"receipt"`
	Draft         bool             `json:"draft"`
}

// toInput converts the request, collecting parse failures per field.
func (r ExpenseRequest) toInput() (expense.CreateInput, error) {
	verr := &generic.ValidationError{}
	in := expense.CreateInput{
		Title:      r.Title,
		VendorID:   generic.VendorID(r.VendorID),
		OfficeID:   generic.OfficeID(r.OfficeID),
		Category:   r.Category,
		Amount:     r.Amount,
		AdvanceTax: r.AdvanceTax,
		WHT:        r.WHT,
		Receipt:    r.Receipt.toAttachment(),
		Draft:      r.Draft,
	}

	if r.PaymentMethod != "" {
		method, err := expense.ParsePaymentMethod(r.PaymentMethod)
		verr.Merge(err)
		in.PaymentMethod = method
	}
	in.BillDate = parseDateField(verr, "billDate", r.BillDate)
	in.DueDate = parseDateField(verr, "dueDate", r.DueDate)
	in.PaymentDate = parseDateField(verr, "paymentDate", r.PaymentDate)
	return in, verr.OrNil()
}

func parseDateField(verr *generic.ValidationError, field, raw string) generic.Date {
	d, err := generic.ParseDate(raw)
	if err != nil {
		verr.Add(field, "Invalid date (use YYYY-MM-DD)")
	}
	return d
}

// EditExpenseRequest is a partial update. Absent fields are unchanged.
type EditExpenseRequest struct {
	Version       int              `json:"version"`
	Title         *string          `json:"title"`
	VendorID      *string          `json:"vendorId"`
	OfficeID      *string          `json:"officeId"`
	Category      *string          `json:"category"`
	PaymentMethod *string          `json:"paymentMethod"`
	BillDate      *string          `json:"billDate"`
	DueDate       *string          `json:"dueDate"`
	PaymentDate   *string          `json:"paymentDate"`
	Amount        *decimal.Decimal `json:"amount"`
	WHT           *decimal.Decimal `json:"wht"`
	AdvanceTax    *decimal.Decimal `json:"advanceTax"`
	Receipt       *AttachmentDTO   `json:"receipt"`
	IssuedCheque  *AttachmentDTO   `json:"issuedCheque"`
	PaymentSlip   *AttachmentDTO   `json:"paymentSlip"`
}

func (r EditExpenseRequest) toPatch() (expense.Patch, error) {
	verr := &generic.ValidationError{}
	p := expense.Patch{
		Title:      r.Title,
		Category:   r.Category,
		Amount:     r.Amount,
		WHT:        r.WHT,
		AdvanceTax: r.AdvanceTax,
	}
	if r.VendorID != nil {
		id := generic.VendorID(*r.VendorID)
		p.VendorID = &id
	}
	if r.OfficeID != nil {
		id := generic.OfficeID(*r.OfficeID)
		p.OfficeID = &id
	}
	if r.PaymentMethod != nil {
		method, err := expense.ParsePaymentMethod(*r.PaymentMethod)
		verr.Merge(err)
		p.PaymentMethod = &method
	}
	p.BillDate = parseDatePatch(verr, "billDate", r.BillDate)
	p.DueDate = parseDatePatch(verr, "dueDate", r.DueDate)
	p.PaymentDate = parseDatePatch(verr, "paymentDate", r.PaymentDate)
	p.Receipt = attachmentPatch(r.Receipt)
	p.IssuedCheque = attachmentPatch(r.IssuedCheque)
	p.PaymentSlip = attachmentPatch(r.PaymentSlip)
	return p, verr.OrNil()
}

func parseDatePatch(verr *generic.ValidationError, field string, raw *string) *generic.Date {
	if raw == nil {
		return nil
	}
	d := parseDateField(verr, field, *raw)
	return &d
}

func attachmentPatch(a *AttachmentDTO) *generic.Attachment {
	if a == nil {
		return nil
	}
	att := a.toAttachment()
	return &att
}

// TransitionRequest is the body of submit/advance/reject. All fields are
// optional except reason on reject.
type TransitionRequest struct {
	Version      int            `json:"version"`
	Reason       string         `json:"reason"`
	IssuedCheque *AttachmentDTO `json:"issuedCheque"`
	PaymentSlip  *AttachmentDTO `json:"paymentSlip"`
}

func (r TransitionRequest) toTransition() expense.TransitionRequest {
	req := expense.TransitionRequest{
		ExpectedVersion: r.Version,
		Reason:          r.Reason,
	}
	carried := map[expense.AttachmentSlot]expense.Attachment{}
	if r.IssuedCheque != nil {
		carried[expense.SlotIssuedCheque] = r.IssuedCheque.toAttachment()
	}
	if r.PaymentSlip != nil {
		carried[expense.SlotPaymentSlip] = r.PaymentSlip.toAttachment()
	}
	if len(carried) > 0 {
		req.Attachments = carried
	}
	return req
}

// PreviewDTO is the derived expense plus any validation errors.
type PreviewDTO struct {
	Expense ExpenseDTO        `json:"expense"`
	Valid   bool              `json:"valid"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// VISIBILITY / HISTORY
// =============================================================================

type AccessDTO struct {
	Visible  bool `json:"visible"`
	Editable bool `json:"editable"`
}

type VisibilityDTO struct {
	Status       string    `json:"status"`
	Editing      bool      `json:"editing"`
	Receipt      AccessDTO `json:"receipt"`
	IssuedCheque AccessDTO `json:"issuedCheque"`
	PaymentSlip  AccessDTO `json:"paymentSlip"`
	PaymentDate  AccessDTO `json:"paymentDate"`
	BillDate     AccessDTO `json:"billDate"`
	DueDate      AccessDTO `json:"dueDate"`
}

func toVisibilityDTO(c expense.Context) VisibilityDTO {
	fa := expense.Evaluate(c)
	conv := func(a expense.Access) AccessDTO { return AccessDTO{Visible: a.Visible, Editable: a.Editable} }
	return VisibilityDTO{
		Status:       string(c.Status),
		Editing:      c.IsEditing,
		Receipt:      conv(fa.Receipt),
		IssuedCheque: conv(fa.IssuedCheque),
		PaymentSlip:  conv(fa.PaymentSlip),
		PaymentDate:  conv(fa.PaymentDate),
		BillDate:     conv(fa.BillDate),
		DueDate:      conv(fa.DueDate),
	}
}

type AuditEntryDTO struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	ActorID   string            `json:"actorId,omitempty"`
	Action    string            `json:"action"`
	Payload   map[string]string `json:"payload,omitempty"`
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Timestamp: formatTime(e.Timestamp),
		ActorID:   string(e.ActorID),
		Action:    string(e.Action),
		Payload:   e.Payload,
	}
}

// =============================================================================
// PETTY CASH
// =============================================================================

type TransactionDTO struct {
	ID              string         `json:"id"`
	OfficeID        string         `json:"officeId"`
	Month           string         `json:"month"`
	TransactionType string         `json:"transactionType"`
	Amount          string         `json:"amount"`
	DateOfPayment   string         `json:"dateOfPayment"`
	BalanceAfter    string         `json:"balanceAfter,omitempty"`
	BankName        string         `json:"bankName,omitempty"`
	ChequeImage     *AttachmentDTO `json:"chequeImage,omitempty"`
	Description     string         `json:"description,omitempty"`
	CreatedBy       string         `json:"createdBy,omitempty"`
	CreatedAt       string         `json:"createdAt,omitempty"`
}

func toTransactionDTO(tx pettycash.Transaction, withBalance bool) TransactionDTO {
	dto := TransactionDTO{
		ID:              string(tx.ID),
		OfficeID:        string(tx.OfficeID),
		Month:           tx.Month.String(),
		TransactionType: string(tx.Type),
		Amount:          generic.FormatMoney(tx.Amount),
		DateOfPayment:   tx.DateOfPayment.String(),
		BankName:        tx.BankName,
		ChequeImage:     toAttachmentDTO(tx.ChequeImage),
		Description:     tx.Description,
		CreatedBy:       string(tx.CreatedBy),
		CreatedAt:       formatTime(tx.CreatedAt),
	}
	if withBalance {
		dto.BalanceAfter = generic.FormatMoney(tx.BalanceAfter)
	}
	return dto
}

// RecordTransactionRequest records one petty-cash movement. Month defaults
// to the month of dateOfPayment.
type RecordTransactionRequest struct {
	Month           string          `json:"month"`
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	DateOfPayment   string          `json:"dateOfPayment"`
	BankName        string          `json:"bankName"`
	ChequeImage     *AttachmentDTO  `json:"chequeImage"`
	Description     string          `json:"description"`
}

func (r RecordTransactionRequest) toInput(office generic.OfficeID) (pettycash.RecordInput, error) {
	verr := &generic.ValidationError{}
	in := pettycash.RecordInput{
		OfficeID:    office,
		Type:        pettycash.TransactionType(r.TransactionType),
		Amount:      r.Amount,
		BankName:    r.BankName,
		ChequeImage: r.ChequeImage.toAttachment(),
		Description: r.Description,
	}
	if r.Month != "" {
		m, err := generic.ParseMonth(r.Month)
		if err != nil {
			verr.Add("month", "Invalid month (use MM-YYYY)")
		}
		in.Month = m
	}
	in.DateOfPayment = parseDateField(verr, "dateOfPayment", r.DateOfPayment)
	return in, verr.OrNil()
}

type SummaryDTO struct {
	OpeningBalance string `json:"openingBalance"`
	ClosingBalance string `json:"closingBalance"`
	TotalIncome    string `json:"totalIncome"`
	TotalExpense   string `json:"totalExpense"`
}

type LedgerDTO struct {
	OfficeID     string           `json:"officeId"`
	Month        string           `json:"month"`
	Closed       bool             `json:"closed"`
	Summary      SummaryDTO       `json:"summary"`
	Transactions []TransactionDTO `json:"transactions"`
}

func toLedgerDTO(l pettycash.MonthLedger) LedgerDTO {
	txs := make([]TransactionDTO, len(l.Transactions))
	for i, tx := range l.Transactions {
		txs[i] = toTransactionDTO(tx, true)
	}
	return LedgerDTO{
		OfficeID: string(l.Scope.OfficeID),
		Month:    l.Scope.Month.String(),
		Closed:   l.Closed,
		Summary: SummaryDTO{
			OpeningBalance: generic.FormatMoney(l.Summary.OpeningBalance),
			ClosingBalance: generic.FormatMoney(l.Summary.ClosingBalance),
			TotalIncome:    generic.FormatMoney(l.Summary.TotalIncome),
			TotalExpense:   generic.FormatMoney(l.Summary.TotalExpense),
		},
		Transactions: txs,
	}
}

// CloseMonthRequest closes one scope, or every due month when officeId
// and month are both empty.
type CloseMonthRequest struct {
	OfficeID string `json:"officeId"`
	Month    string `json:"month"`
}

type MonthCloseDTO struct {
	OfficeID       string `json:"officeId"`
	Month          string `json:"month"`
	OpeningBalance string `json:"openingBalance"`
	ClosingBalance string `json:"closingBalance"`
	ClosedBy       string `json:"closedBy,omitempty"`
	ClosedAt       string `json:"closedAt"`
}

func toMonthCloseDTO(c pettycash.MonthClose) MonthCloseDTO {
	return MonthCloseDTO{
		OfficeID:       string(c.Scope.OfficeID),
		Month:          c.Scope.Month.String(),
		OpeningBalance: generic.FormatMoney(c.OpeningBalance),
		ClosingBalance: generic.FormatMoney(c.ClosingBalance),
		ClosedBy:       string(c.ClosedBy),
		ClosedAt:       formatTime(c.ClosedAt),
	}
}
