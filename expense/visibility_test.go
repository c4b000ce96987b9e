package expense_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/expense-engine/expense"
)

func ctxOf(status expense.Status, method expense.PaymentMethod, editing bool) expense.Context {
	return expense.Context{
		Status:        status,
		PaymentMethod: method,
		IsCashPayment: method == expense.PaymentCash,
		IsEditing:     editing,
	}
}

func TestIssuedCheque_VisibleAndEditableInFinanceReview(t *testing.T) {
	// GIVEN: A cheque expense under finance review, not in edit mode
	// WHEN: Evaluating the issued cheque slot
	// THEN: It is shown and can be attached

	c := ctxOf(expense.StatusInReviewByFinance, expense.PaymentCheque, false)

	assert.True(t, expense.IssuedChequeVisible(c))
	assert.True(t, expense.IssuedChequeEditable(c))
}

func TestIssuedCheque_HiddenForCash(t *testing.T) {
	c := ctxOf(expense.StatusPaid, expense.PaymentCash, true)

	assert.False(t, expense.IssuedChequeVisible(c))
	assert.False(t, expense.IssuedChequeEditable(c))
}

func TestIssuedCheque_HiddenBeforeFinance(t *testing.T) {
	for _, s := range []expense.Status{expense.StatusNew, expense.StatusWaitingForApproval, expense.StatusApproved, expense.StatusRejected} {
		assert.False(t, expense.IssuedChequeVisible(ctxOf(s, expense.PaymentCheque, true)), s)
	}
}

func TestPaymentSlip(t *testing.T) {
	tests := []struct {
		name         string
		status       expense.Status
		method       expense.PaymentMethod
		wantVisible  bool
		wantEditable bool
	}{
		{"ready for payment", expense.StatusReadyForPayment, expense.PaymentBankTransfer, true, true},
		{"paid", expense.StatusPaid, expense.PaymentBankTransfer, true, false},
		{"approved cash", expense.StatusApproved, expense.PaymentCash, false, true},
		{"approved card", expense.StatusApproved, expense.PaymentCard, false, false},
		{"waiting", expense.StatusWaitingForApproval, expense.PaymentCash, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ctxOf(tt.status, tt.method, false)
			assert.Equal(t, tt.wantVisible, expense.PaymentSlipVisible(c))
			assert.Equal(t, tt.wantEditable, expense.PaymentSlipEditable(c))
		})
	}
}

func TestPaymentSlip_FlagOverridesStatus(t *testing.T) {
	show, hide := true, false

	c := ctxOf(expense.StatusNew, expense.PaymentCash, false)
	c.ShowPaymentSlip = &show
	assert.True(t, expense.PaymentSlipVisible(c))

	c = ctxOf(expense.StatusPaid, expense.PaymentCash, false)
	c.ShowPaymentSlip = &hide
	assert.False(t, expense.PaymentSlipVisible(c))
}

func TestPaymentDate(t *testing.T) {
	tests := []struct {
		name         string
		status       expense.Status
		method       expense.PaymentMethod
		wantVisible  bool
		wantEditable bool
	}{
		{"new bank transfer", expense.StatusNew, expense.PaymentBankTransfer, true, true},
		{"approved cheque", expense.StatusApproved, expense.PaymentCheque, true, true},
		{"card never editable", expense.StatusReadyForPayment, expense.PaymentCard, true, false},
		{"finance review hides", expense.StatusInReviewByFinance, expense.PaymentCash, false, false},
		{"paid shows read-only", expense.StatusPaid, expense.PaymentCash, true, false},
		{"rejected hides", expense.StatusRejected, expense.PaymentCash, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ctxOf(tt.status, tt.method, true)
			assert.Equal(t, tt.wantVisible, expense.PaymentDateVisible(c))
			assert.Equal(t, tt.wantEditable, expense.PaymentDateEditable(c))
		})
	}
}

func TestEditingFlagControlsReceiptAndDates(t *testing.T) {
	viewing := expense.Evaluate(ctxOf(expense.StatusApproved, expense.PaymentCard, false))
	editing := expense.Evaluate(ctxOf(expense.StatusApproved, expense.PaymentCard, true))

	for _, a := range []expense.Access{viewing.Receipt, viewing.BillDate, viewing.DueDate} {
		assert.Equal(t, expense.Access{Visible: true, Editable: false}, a)
	}
	for _, a := range []expense.Access{editing.Receipt, editing.BillDate, editing.DueDate} {
		assert.Equal(t, expense.Access{Visible: true, Editable: true}, a)
	}
}

func TestContextFor_DerivesCashFlag(t *testing.T) {
	c := expense.ContextFor(expense.Expense{Status: expense.StatusApproved, PaymentMethod: expense.PaymentCash}, true)

	assert.True(t, c.IsCashPayment)
	assert.True(t, c.IsEditing)
	assert.Nil(t, c.ShowPaymentSlip)
}
