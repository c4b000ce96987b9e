package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
	"github.com/warp/expense-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var created = time.Date(2025, time.March, 1, 8, 30, 0, 0, time.UTC)

func sampleExpense(id string, office string, status expense.Status) expense.Expense {
	return expense.Expense{
		ID:             generic.ExpenseID(id),
		Title:          "Printer toner",
		VendorID:       "vendor-1",
		OfficeID:       generic.OfficeID(office),
		Category:       "Supplies",
		PaymentMethod:  expense.PaymentCheque,
		BillDate:       generic.NewDate(2025, time.March, 1),
		DueDate:        generic.NewDate(2025, time.March, 15),
		Amount:         generic.MustParseDecimal("1000"),
		WHT:            generic.MustParseDecimal("10"),
		AdvanceTax:     generic.MustParseDecimal("100"),
		AmountAfterTax: generic.MustParseDecimal("990.00"),
		Status:         status,
		Attachments: expense.Attachments{
			Receipt:      expense.ExistingAttachment("https://files/receipt.pdf"),
			IssuedCheque: expense.PendingAttachment("upload-3"),
		},
		Version:   1,
		CreatedBy: "clerk-1",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestStore_Expense_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := sampleExpense("exp-1", "lahore", expense.StatusInReviewByFinance)

	require.NoError(t, store.CreateExpense(ctx, e))
	got, err := store.GetExpense(ctx, "exp-1")

	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, e.PaymentMethod, got.PaymentMethod)
	assert.True(t, e.BillDate.Equal(got.BillDate))
	assert.True(t, e.DueDate.Equal(got.DueDate))
	assert.True(t, got.PaymentDate.IsZero())
	assert.True(t, e.AmountAfterTax.Equal(got.AmountAfterTax))
	assert.True(t, e.WHT.Equal(got.WHT))
	assert.Equal(t, e.Attachments, got.Attachments)
	assert.Equal(t, e.Status, got.Status)
	assert.Equal(t, 1, got.Version)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestStore_Expense_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateExpense(ctx, sampleExpense("exp-1", "lahore", expense.StatusNew)))

	err := store.CreateExpense(ctx, sampleExpense("exp-1", "lahore", expense.StatusNew))

	assert.ErrorIs(t, err, generic.ErrDuplicate)
}

func TestStore_UpdateExpense_VersionCheck(t *testing.T) {
	// GIVEN: A stored expense at version 1
	// WHEN: Updating from version 1, then again from version 1
	// THEN: The first wins, the second is a conflict

	store := newTestStore(t)
	ctx := context.Background()
	e := sampleExpense("exp-1", "lahore", expense.StatusWaitingForApproval)
	require.NoError(t, store.CreateExpense(ctx, e))

	next := e
	next.Status = expense.StatusApproved
	next.Version = 2
	require.NoError(t, store.UpdateExpense(ctx, next, 1))

	stale := e
	stale.Status = expense.StatusRejected
	stale.RejectionReason = "late"
	stale.Version = 2
	err := store.UpdateExpense(ctx, stale, 1)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	got, err := store.GetExpense(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestStore_UpdateExpense_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateExpense(context.Background(), sampleExpense("ghost", "lahore", expense.StatusNew), 1)

	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestStore_GetExpense_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetExpense(context.Background(), "ghost")

	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestStore_ListExpenses_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateExpense(ctx, sampleExpense("exp-1", "lahore", expense.StatusNew)))
	require.NoError(t, store.CreateExpense(ctx, sampleExpense("exp-2", "karachi", expense.StatusPaid)))
	require.NoError(t, store.CreateExpense(ctx, sampleExpense("exp-3", "lahore", expense.StatusPaid)))

	all, err := store.ListExpenses(ctx, expense.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, generic.ExpenseID("exp-1"), all[0].ID)

	paidInLahore, err := store.ListExpenses(ctx, expense.ListFilter{
		OfficeID: "lahore",
		Statuses: []expense.Status{expense.StatusPaid, expense.StatusRejected},
	})
	require.NoError(t, err)
	require.Len(t, paidInLahore, 1)
	assert.Equal(t, generic.ExpenseID("exp-3"), paidInLahore[0].ID)
}

// =============================================================================
// VENDORS
// =============================================================================

func TestStore_Vendors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVendor(ctx, expense.Vendor{ID: "v2", Name: "Zeta Movers", WHT: generic.MustParseDecimal("5"), CreatedAt: created}))
	require.NoError(t, store.SaveVendor(ctx, expense.Vendor{ID: "v1", Name: "Alpha Paper", WHT: generic.MustParseDecimal("7.5"), CreatedAt: created}))
	require.NoError(t, store.SaveVendor(ctx, expense.Vendor{ID: "v1", Name: "Alpha Paper", WHT: generic.MustParseDecimal("8"), CreatedAt: created}))

	v, err := store.GetVendor(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "8", v.WHT.String())

	vendors, err := store.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Alpha Paper", vendors[0].Name)

	_, err = store.GetVendor(ctx, "ghost")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// PETTY CASH
// =============================================================================

func pettyTx(id, office string, month generic.Month, d int) pettycash.Transaction {
	return pettycash.Transaction{
		ID:            generic.TransactionID(id),
		OfficeID:      generic.OfficeID(office),
		Month:         month,
		Type:          pettycash.TxExpense,
		Amount:        generic.MustParseDecimal("12.50"),
		DateOfPayment: generic.NewDate(month.Year, month.Month, d),
		BankName:      "HBL",
		ChequeImage:   generic.ExistingAttachment("https://files/cheque.png"),
		Description:   "Tea",
		CreatedBy:     "cashier-1",
		CreatedAt:     created,
	}
}

func TestStore_Transactions_InsertionOrderAndScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	march := generic.Month{Year: 2025, Month: time.March}
	april := march.Next()

	require.NoError(t, store.CreateTransaction(ctx, pettyTx("t2", "lahore", march, 9)))
	require.NoError(t, store.CreateTransaction(ctx, pettyTx("t1", "lahore", march, 3)))
	require.NoError(t, store.CreateTransaction(ctx, pettyTx("t3", "lahore", april, 1)))
	require.NoError(t, store.CreateTransaction(ctx, pettyTx("t4", "karachi", march, 1)))

	got, err := store.ListTransactions(ctx, pettycash.Scope{OfficeID: "lahore", Month: march})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, generic.TransactionID("t2"), got[0].ID)
	assert.Equal(t, generic.TransactionID("t1"), got[1].ID)
	assert.Equal(t, march, got[0].Month)
	assert.Equal(t, "12.50", generic.FormatMoney(got[0].Amount))
	assert.Equal(t, "https://files/cheque.png", got[0].ChequeImage.Location())
	assert.Equal(t, "2025-03-09", got[0].DateOfPayment.String())

	office, err := store.ListOfficeTransactions(ctx, "lahore")
	require.NoError(t, err)
	assert.Len(t, office, 3)

	offices, err := store.ListOffices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []generic.OfficeID{"karachi", "lahore"}, offices)

	err = store.CreateTransaction(ctx, pettyTx("t1", "lahore", march, 3))
	assert.ErrorIs(t, err, generic.ErrDuplicate)
}

func TestStore_MonthCloses(t *testing.T) {
	// GIVEN: January and March closed for lahore
	// WHEN: Asking for the latest close before various months
	// THEN: The newest strictly earlier close is returned

	store := newTestStore(t)
	ctx := context.Background()
	jan := generic.Month{Year: 2025, Month: time.January}
	march := generic.Month{Year: 2025, Month: time.March}

	for _, m := range []generic.Month{jan, march} {
		require.NoError(t, store.SaveMonthClose(ctx, pettycash.MonthClose{
			Scope:          pettycash.Scope{OfficeID: "lahore", Month: m},
			OpeningBalance: generic.MustParseDecimal("0"),
			ClosingBalance: generic.MustParseDecimal("150.25"),
			ClosedBy:       "admin-1",
			ClosedAt:       created,
		}))
	}

	latest, err := store.LatestMonthClose(ctx, "lahore", generic.Month{})
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, march, latest.Scope.Month)
	assert.Equal(t, "150.25", generic.FormatMoney(latest.ClosingBalance))

	before, err := store.LatestMonthClose(ctx, "lahore", march)
	require.NoError(t, err)
	require.NotNil(t, before)
	assert.Equal(t, jan, before.Scope.Month)

	none, err := store.LatestMonthClose(ctx, "lahore", jan)
	require.NoError(t, err)
	assert.Nil(t, none)

	err = store.SaveMonthClose(ctx, pettycash.MonthClose{Scope: pettycash.Scope{OfficeID: "lahore", Month: jan}, ClosedAt: created})
	assert.ErrorIs(t, err, generic.ErrDuplicate)
}

// =============================================================================
// AUDIT
// =============================================================================

func TestStore_Audit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []generic.AuditEntry{
		{ID: "a1", Timestamp: created, ActorID: "clerk-1", Action: generic.AuditExpenseCreated, SubjectID: "exp-1", Payload: map[string]string{"status": "New"}},
		{ID: "a2", Timestamp: created.Add(time.Minute), ActorID: "manager-1", Action: generic.AuditExpenseAdvanced, SubjectID: "exp-1"},
		{ID: "a3", Timestamp: created.Add(2 * time.Minute), ActorID: "clerk-1", Action: generic.AuditExpenseCreated, SubjectID: "exp-2"},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendAudit(ctx, e))
	}

	forExpense, err := store.QueryAudit(ctx, generic.AuditFilter{SubjectID: "exp-1"})
	require.NoError(t, err)
	require.Len(t, forExpense, 2)
	assert.Equal(t, "a1", forExpense[0].ID)
	assert.Equal(t, "New", forExpense[0].Payload["status"])

	byClerk, err := store.QueryAudit(ctx, generic.AuditFilter{ActorID: "clerk-1"})
	require.NoError(t, err)
	assert.Len(t, byClerk, 2)

	require.NoError(t, store.Reset(ctx))
	all, err := store.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
