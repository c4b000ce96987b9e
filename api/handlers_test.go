/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Error mapping (400 fields, 403, 404, 409, 422)
- Expense workflow over HTTP (create, preview, edit, transitions, history)
- Petty-cash ledger, export and month close
- Bearer token authentication
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
	"github.com/warp/expense-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memory.Store
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	store := memory.New()

	expenses := expense.NewService(store, store)
	expenses.Now = func() time.Time { return testNow }
	pettyCash := pettycash.NewService(store, store)
	pettyCash.Now = func() time.Time { return testNow }

	require.NoError(t, store.SaveVendor(context.Background(), expense.Vendor{
		ID:   "vendor-1",
		Name: "Stationers",
		WHT:  generic.MustParseDecimal("10"),
	}))

	h := NewHandler(expenses, pettyCash, zerolog.Nop())
	return &testServer{t: t, router: NewRouter(h, opts), store: store}
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func expenseBody(method string) map[string]any {
	return map[string]any{
		"title":         "Office chairs",
		"vendorId":      "vendor-1",
		"officeId":      "lahore",
		"paymentMethod": method,
		"billDate":      "2025-03-01",
		"dueDate":       "2025-03-15",
		"amount":        "1000",
		"advanceTax":    100,
	}
}

func (s *testServer) createExpense(method string) ExpenseDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/expenses", expenseBody(method), nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[ExpenseDTO](s.t, rec)
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestCreateExpense_DerivesAmountAfterTax(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	e := srv.createExpense("Bank Transfer")

	assert.Equal(t, "990.00", e.AmountAfterTax)
	assert.Equal(t, "10", e.WHT)
	assert.Equal(t, "BankTransfer", e.PaymentMethod)
	assert.Equal(t, "WaitingForApproval", e.Status)
	assert.Equal(t, "dev", e.CreatedBy)
	assert.Equal(t, 1, e.Version)
}

func TestCreateExpense_ValidationFields(t *testing.T) {
	// GIVEN: A due date before the bill date and a malformed payment date
	// WHEN: Creating the expense
	// THEN: 400 with one message per offending field

	srv := newTestServer(t, RouterOptions{})
	body := expenseBody("Cash")
	body["dueDate"] = "2025-02-01"
	body["paymentDate"] = "01/03/2025"

	rec := srv.do(http.MethodPost, "/api/expenses", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Invalid date (use YYYY-MM-DD)", resp.Fields["paymentDate"])
}

func TestCreateExpense_DueBeforeBill(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	body := expenseBody("Cash")
	body["dueDate"] = "2025-02-01"

	rec := srv.do(http.MethodPost, "/api/expenses", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Due date cannot be earlier than Bill date", resp.Fields["dueDate"])
}

func TestCreateExpense_MalformedBody(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewExpense(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	body := expenseBody("Cash")
	body["title"] = ""

	rec := srv.do(http.MethodPost, "/api/expenses/preview", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	preview := decodeBody[PreviewDTO](t, rec)
	assert.False(t, preview.Valid)
	assert.Equal(t, "990.00", preview.Expense.AmountAfterTax)
	assert.NotEmpty(t, preview.Fields["title"])

	list := decodeBody[[]ExpenseDTO](t, srv.do(http.MethodGet, "/api/expenses", nil, nil))
	assert.Empty(t, list)
}

func TestExpenseWorkflow_ToPaid(t *testing.T) {
	// GIVEN: A bank transfer expense
	// WHEN: Advancing it step by step, carrying the slip on the last step
	// THEN: It reaches Paid and the history records each step

	srv := newTestServer(t, RouterOptions{})
	e := srv.createExpense("BankTransfer")
	path := "/api/expenses/" + e.ID

	for _, want := range []string{"Approved", "InReviewByFinance", "ReadyForPayment"} {
		rec := srv.do(http.MethodPost, path+"/advance", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, want, decodeBody[ExpenseDTO](t, rec).Status)
	}

	rec := srv.do(http.MethodPost, path+"/advance", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Fields["paymentSlip"])

	rec = srv.do(http.MethodPost, path+"/advance", map[string]any{
		"paymentSlip": map[string]string{"kind": "existing"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Attachment is empty", decodeBody[ErrorResponse](t, rec).Fields["paymentSlip"])

	rec = srv.do(http.MethodPost, path+"/advance", map[string]any{
		"paymentSlip": map[string]string{"kind": "existing", "location": "https://files/slip.pdf"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeBody[ExpenseDTO](t, rec)
	assert.Equal(t, "Paid", paid.Status)
	require.NotNil(t, paid.PaymentSlip)
	assert.Equal(t, "https://files/slip.pdf", paid.PaymentSlip.Location)

	rec = srv.do(http.MethodPost, path+"/advance", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = srv.do(http.MethodPost, path+"/reject", map[string]string{"reason": "too late"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	history := decodeBody[[]AuditEntryDTO](t, srv.do(http.MethodGet, path+"/history", nil, nil))
	require.Len(t, history, 5)
	assert.Equal(t, "expense_created", history[0].Action)
	assert.Equal(t, "Paid", history[4].Payload["to"])
}

func TestRejectExpense_RequiresReason(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	e := srv.createExpense("Card")

	rec := srv.do(http.MethodPost, "/api/expenses/"+e.ID+"/reject", map[string]string{"reason": " "}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Rejection reason is required", decodeBody[ErrorResponse](t, rec).Fields["rejectionReason"])

	rec = srv.do(http.MethodPost, "/api/expenses/"+e.ID+"/reject", map[string]string{"reason": "duplicate"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rejected := decodeBody[ExpenseDTO](t, rec)
	assert.Equal(t, "Rejected", rejected.Status)
	assert.Equal(t, "duplicate", rejected.RejectionReason)
}

func TestTransition_StaleVersionConflict(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	e := srv.createExpense("Card")

	rec := srv.do(http.MethodPost, "/api/expenses/"+e.ID+"/advance", map[string]int{"version": 1}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodPost, "/api/expenses/"+e.ID+"/advance", map[string]int{"version": 1}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEditExpense(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	e := srv.createExpense("Cash")

	rec := srv.do(http.MethodPut, "/api/expenses/"+e.ID, map[string]any{
		"version": e.Version,
		"amount":  "2000",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decodeBody[ExpenseDTO](t, rec)
	assert.Equal(t, "2090.00", edited.AmountAfterTax)
	assert.Equal(t, 2, edited.Version)

	rec = srv.do(http.MethodPut, "/api/expenses/"+e.ID, map[string]any{
		"version":      edited.Version,
		"issuedCheque": map[string]string{"kind": "pending", "location": "upload-1"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Fields["issuedCheque"])
}

func TestSubmitDraft(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	body := expenseBody("Cash")
	body["draft"] = true
	rec := srv.do(http.MethodPost, "/api/expenses", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	draft := decodeBody[ExpenseDTO](t, rec)
	assert.Equal(t, "New", draft.Status)

	rec = srv.do(http.MethodPost, "/api/expenses/"+draft.ID+"/submit", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WaitingForApproval", decodeBody[ExpenseDTO](t, rec).Status)
}

func TestGetVisibility(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	e := srv.createExpense("Cheque")
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/expenses/"+e.ID+"/advance", nil, nil).Code)
	}

	rec := srv.do(http.MethodGet, "/api/expenses/"+e.ID+"/visibility", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	vis := decodeBody[VisibilityDTO](t, rec)
	assert.Equal(t, "InReviewByFinance", vis.Status)
	assert.Equal(t, AccessDTO{Visible: true, Editable: true}, vis.IssuedCheque)
	assert.Equal(t, AccessDTO{Visible: true, Editable: false}, vis.Receipt)
	assert.False(t, vis.PaymentDate.Visible)

	rec = srv.do(http.MethodGet, "/api/expenses/"+e.ID+"/visibility?editing=true", nil, nil)
	assert.True(t, decodeBody[VisibilityDTO](t, rec).Receipt.Editable)

	rec = srv.do(http.MethodGet, "/api/expenses/"+e.ID+"/visibility?editing=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListExpenses_StatusFilter(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	first := srv.createExpense("Cash")
	srv.createExpense("Card")
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/expenses/"+first.ID+"/advance", nil, nil).Code)

	list := decodeBody[[]ExpenseDTO](t, srv.do(http.MethodGet, "/api/expenses?status=Approved&office_id=lahore", nil, nil))
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	rec := srv.do(http.MethodGet, "/api/expenses?status=Archived", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownExpense_NotFound(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/expenses/ghost", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/expenses/ghost/history", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPost, "/api/expenses/ghost/advance", nil, nil).Code)
}

// =============================================================================
// VENDORS / AUTH
// =============================================================================

func TestCreateVendor_AdminOnly(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	body := map[string]any{"name": "Movers", "wht": 5}

	rec := srv.do(http.MethodPost, "/api/vendors", body, map[string]string{"X-Actor-Role": "clerk"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodPost, "/api/vendors", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	v := decodeBody[VendorDTO](t, rec)
	assert.Equal(t, "5", v.WHT)

	rec = srv.do(http.MethodGet, "/api/vendors/"+v.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	vendors := decodeBody[[]VendorDTO](t, srv.do(http.MethodGet, "/api/vendors", nil, nil))
	assert.Len(t, vendors, 2)
}

func TestBearerAuth(t *testing.T) {
	// GIVEN: A server with a signing secret
	// WHEN: Calling without a token, with a forged token, and with a valid one
	// THEN: Only the valid token gets through and becomes the actor

	auth := NewAuthenticator("test-secret")
	srv := newTestServer(t, RouterOptions{Auth: auth})

	rec := srv.do(http.MethodGet, "/api/vendors", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := NewAuthenticator("other").Sign(Principal{ActorID: "mallory", Role: RoleAdmin})
	require.NoError(t, err)
	rec = srv.do(http.MethodGet, "/api/vendors", nil, map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.Sign(Principal{ActorID: "clerk-9", Role: "clerk"})
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	rec = srv.do(http.MethodPost, "/api/expenses", expenseBody("Cash"), bearer)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "clerk-9", decodeBody[ExpenseDTO](t, rec).CreatedBy)

	rec = srv.do(http.MethodPost, "/api/admin/petty-cash/close", nil, bearer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/healthz", nil, nil).Code)
}

// =============================================================================
// PETTY CASH
// =============================================================================

func (s *testServer) record(office, typ, amount, date string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(http.MethodPost, "/api/offices/"+office+"/petty-cash", map[string]string{
		"transactionType": typ,
		"amount":          amount,
		"dateOfPayment":   date,
	}, nil)
}

func TestPettyCash_LedgerAndClose(t *testing.T) {
	// GIVEN: February income and March movements for lahore
	// WHEN: Reading March, then closing every due month
	// THEN: March opens from February and late March entries are refused

	srv := newTestServer(t, RouterOptions{})
	require.Equal(t, http.StatusCreated, srv.record("lahore", "income", "1000", "2025-02-02").Code)
	require.Equal(t, http.StatusCreated, srv.record("lahore", "expense", "200", "2025-03-03").Code)
	require.Equal(t, http.StatusCreated, srv.record("lahore", "income", "500", "2025-03-07").Code)

	rec := srv.do(http.MethodGet, "/api/offices/lahore/petty-cash/03-2025", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decodeBody[LedgerDTO](t, rec)
	assert.Equal(t, "1000.00", ledger.Summary.OpeningBalance)
	assert.Equal(t, "1300.00", ledger.Summary.ClosingBalance)
	require.Len(t, ledger.Transactions, 2)
	assert.Equal(t, "800.00", ledger.Transactions[0].BalanceAfter)
	assert.False(t, ledger.Closed)

	rec = srv.do(http.MethodPost, "/api/admin/petty-cash/close", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closes := decodeBody[[]MonthCloseDTO](t, rec)
	require.Len(t, closes, 2)
	assert.Equal(t, "03-2025", closes[1].Month)
	assert.Equal(t, "1300.00", closes[1].ClosingBalance)

	rec = srv.record("lahore", "expense", "5", "2025-03-30")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Fields["month"], "is closed")

	ledger = decodeBody[LedgerDTO](t, srv.do(http.MethodGet, "/api/offices/lahore/petty-cash/03-2025", nil, nil))
	assert.True(t, ledger.Closed)
}

func TestPettyCash_CloseSingleMonth(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	rec := srv.do(http.MethodPost, "/api/admin/petty-cash/close", map[string]string{"officeId": "lahore", "month": "04-2025"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only finished months can be closed", decodeBody[ErrorResponse](t, rec).Fields["month"])

	rec = srv.do(http.MethodPost, "/api/admin/petty-cash/close", map[string]string{"officeId": "lahore", "month": "2025-03"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Fields["month"])

	rec = srv.do(http.MethodPost, "/api/admin/petty-cash/close", map[string]string{"officeId": "lahore", "month": "03-2025"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPettyCash_RecordValidation(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	rec := srv.record("lahore", "refund", "-1", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody[ErrorResponse](t, rec).Fields
	assert.NotEmpty(t, fields["transactionType"])
	assert.NotEmpty(t, fields["amount"])
	assert.NotEmpty(t, fields["dateOfPayment"])
}

func TestPettyCash_InvalidMonthParam(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	rec := srv.do(http.MethodGet, "/api/offices/lahore/petty-cash/2025-03", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPettyCash_Export(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	require.Equal(t, http.StatusCreated, srv.record("lahore", "income", "100", "2025-03-02").Code)

	rec := srv.do(http.MethodGet, "/api/offices/lahore/petty-cash/03-2025/export", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "petty-cash-lahore-03-2025.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestMonthCloseScheduler_RunNow(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	require.Equal(t, http.StatusCreated, srv.record("lahore", "income", "100", "2025-03-02").Code)

	pettyCash := pettycash.NewService(srv.store, srv.store)
	pettyCash.Now = func() time.Time { return testNow }
	scheduler := NewMonthCloseScheduler(pettyCash, zerolog.Nop())

	closes := scheduler.RunNow(context.Background())
	require.Len(t, closes, 1)
	assert.Equal(t, SchedulerActor, closes[0].ClosedBy)

	assert.Empty(t, scheduler.RunNow(context.Background()))
}

func TestMonthCloseScheduler_StartStop(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	pettyCash := pettycash.NewService(srv.store, srv.store)
	scheduler := NewMonthCloseScheduler(pettyCash, zerolog.Nop())
	scheduler.CheckInterval = time.Hour

	scheduler.Start()
	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop()

	scheduler.Enabled = false
	scheduler.Start()
	scheduler.Stop()
}
