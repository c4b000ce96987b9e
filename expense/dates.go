package expense

import "github.com/warp/expense-engine/generic"

// =============================================================================
// DATE CONSTRAINTS
// =============================================================================

const (
	msgDueBeforeBill     = "Due date cannot be earlier than Bill date"
	msgPaymentBeforeBill = "Payment date cannot be earlier than Bill date"
)

// CheckDueDate fails when due is earlier than bill. A missing date is not
// an error here; whether a date is required is a visibility concern.
func CheckDueDate(bill, due generic.Date) error {
	if bill.IsZero() || due.IsZero() {
		return nil
	}
	if due.Before(bill) {
		return generic.NewValidationError("dueDate", msgDueBeforeBill)
	}
	return nil
}

// CheckPaymentDate fails when payment is earlier than bill.
func CheckPaymentDate(bill, payment generic.Date) error {
	if bill.IsZero() || payment.IsZero() {
		return nil
	}
	if payment.Before(bill) {
		return generic.NewValidationError("paymentDate", msgPaymentBeforeBill)
	}
	return nil
}

// CheckDates runs both checks independently and reports every violation.
func CheckDates(e Expense) error {
	verr := &generic.ValidationError{}
	verr.Merge(CheckDueDate(e.BillDate, e.DueDate))
	verr.Merge(CheckPaymentDate(e.BillDate, e.PaymentDate))
	return verr.OrNil()
}
