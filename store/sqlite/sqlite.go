/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the engine needs using SQLite.
  The same SQL runs on PostgreSQL with minor dialect differences.

INTERFACES IMPLEMENTED:
  expense.Store:    Expenses (versioned) and vendors
  pettycash.Store:  Petty-cash transactions and month closes
  generic.AuditLog: Append-only audit trail

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on petty_cash_transactions
  - No UPDATE or DELETE statements on month_closes or audit_log
  - Expenses are updated only through a version compare-and-swap

KEY TABLES:
  expenses:                Expense records, one row per expense
  vendors:                 Vendor master data (default WHT)
  petty_cash_transactions: Immutable petty-cash ledger
  month_closes:            Frozen closing balances per office/month
  audit_log:               Who did what when

ORDERING:
  petty_cash_transactions.seq is an autoincrement insertion counter. The
  ledger sorts by date of payment and relies on seq order for ties.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/expenses.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := expense.NewService(store, store)

SEE ALSO:
  - expense/store.go: Expense store contract
  - pettycash/service.go: Petty-cash store contract
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ expense.Store    = (*Store)(nil)
	_ pettycash.Store  = (*Store)(nil)
	_ generic.AuditLog = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Vendors
	CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		wht TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Expenses
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		title TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		office_id TEXT NOT NULL,
		category TEXT,
		payment_method TEXT NOT NULL,
		bill_date TEXT,
		due_date TEXT,
		payment_date TEXT,
		amount TEXT NOT NULL,
		wht TEXT NOT NULL,
		advance_tax TEXT NOT NULL,
		amount_after_tax TEXT NOT NULL,
		status TEXT NOT NULL,
		rejection_reason TEXT,
		receipt_kind TEXT,
		receipt_location TEXT,
		cheque_kind TEXT,
		cheque_location TEXT,
		slip_kind TEXT,
		slip_location TEXT,
		version INTEGER NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_office
		ON expenses(office_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_status
		ON expenses(status);

	-- Petty-cash transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS petty_cash_transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		office_id TEXT NOT NULL,
		month_index INTEGER NOT NULL,
		month TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		date_of_payment TEXT NOT NULL,
		bank_name TEXT,
		cheque_kind TEXT,
		cheque_location TEXT,
		description TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Scope lookups (hot path)
	CREATE INDEX IF NOT EXISTS idx_petty_cash_scope
		ON petty_cash_transactions(office_id, month_index, seq);

	-- Month closes
	CREATE TABLE IF NOT EXISTS month_closes (
		office_id TEXT NOT NULL,
		month_index INTEGER NOT NULL,
		month TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		closing_balance TEXT NOT NULL,
		closed_by TEXT,
		closed_at TEXT NOT NULL,
		PRIMARY KEY (office_id, month_index)
	);

	-- Audit log
	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_subject
		ON audit_log(subject_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EXPENSES (expense.Store interface)
// =============================================================================

const expenseColumns = `
	id, title, vendor_id, office_id, category, payment_method,
	bill_date, due_date, payment_date,
	amount, wht, advance_tax, amount_after_tax,
	status, rejection_reason,
	receipt_kind, receipt_location, cheque_kind, cheque_location, slip_kind, slip_location,
	version, created_by, created_at, updated_at`

// CreateExpense inserts a new expense.
func (s *Store) CreateExpense(ctx context.Context, e expense.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO expenses (seq, ` + expenseColumns + `)
		VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM expenses),
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, expenseArgs(e)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("expense %s: %w", e.ID, generic.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// UpdateExpense replaces e if the stored version still equals expectedVersion.
func (s *Store) UpdateExpense(ctx context.Context, e expense.Expense, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE expenses SET
			title = ?, vendor_id = ?, office_id = ?, category = ?, payment_method = ?,
			bill_date = ?, due_date = ?, payment_date = ?,
			amount = ?, wht = ?, advance_tax = ?, amount_after_tax = ?,
			status = ?, rejection_reason = ?,
			receipt_kind = ?, receipt_location = ?, cheque_kind = ?, cheque_location = ?,
			slip_kind = ?, slip_location = ?,
			version = ?, created_by = ?, created_at = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	args := append(expenseArgs(e)[1:], e.ID, expectedVersion)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM expenses WHERE id = ?", e.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("expense %s: %w", e.ID, generic.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("expense %s is at version %d, expected %d: %w",
		e.ID, current, expectedVersion, generic.ErrConcurrentModification)
}

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, id generic.ExpenseID) (expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return expense.Expense{}, fmt.Errorf("expense %s: %w", id, generic.ErrNotFound)
	}
	return e, err
}

// ListExpenses returns expenses matching filter in creation order.
func (s *Store) ListExpenses(ctx context.Context, filter expense.ListFilter) ([]expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.OfficeID != "" {
		where = append(where, "office_id = ?")
		args = append(args, filter.OfficeID)
	}
	if filter.VendorID != "" {
		where = append(where, "vendor_id = ?")
		args = append(args, filter.VendorID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	query := "SELECT " + expenseColumns + " FROM expenses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var result []expense.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func expenseArgs(e expense.Expense) []any {
	return []any{
		e.ID, e.Title, e.VendorID, e.OfficeID, nullString(e.Category), e.PaymentMethod,
		nullString(e.BillDate.String()), nullString(e.DueDate.String()), nullString(e.PaymentDate.String()),
		e.Amount.String(), e.WHT.String(), e.AdvanceTax.String(), e.AmountAfterTax.String(),
		e.Status, nullString(e.RejectionReason),
		nullString(string(e.Attachments.Receipt.Kind)), nullString(e.Attachments.Receipt.Location()),
		nullString(string(e.Attachments.IssuedCheque.Kind)), nullString(e.Attachments.IssuedCheque.Location()),
		nullString(string(e.Attachments.PaymentSlip.Kind)), nullString(e.Attachments.PaymentSlip.Location()),
		e.Version, nullString(string(e.CreatedBy)),
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (expense.Expense, error) {
	var (
		e                                 expense.Expense
		category, rejection, createdBy    sql.NullString
		billDate, dueDate, paymentDate    sql.NullString
		amount, wht, advanceTax, afterTax string
		receiptKind, receiptLoc           sql.NullString
		chequeKind, chequeLoc             sql.NullString
		slipKind, slipLoc                 sql.NullString
		createdAt, updatedAt              string
	)

	err := row.Scan(
		&e.ID, &e.Title, &e.VendorID, &e.OfficeID, &category, &e.PaymentMethod,
		&billDate, &dueDate, &paymentDate,
		&amount, &wht, &advanceTax, &afterTax,
		&e.Status, &rejection,
		&receiptKind, &receiptLoc, &chequeKind, &chequeLoc, &slipKind, &slipLoc,
		&e.Version, &createdBy, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}

	e.Category = category.String
	e.RejectionReason = rejection.String
	e.CreatedBy = generic.ActorID(createdBy.String)
	e.BillDate, _ = generic.ParseDate(billDate.String)
	e.DueDate, _ = generic.ParseDate(dueDate.String)
	e.PaymentDate, _ = generic.ParseDate(paymentDate.String)
	e.Amount = generic.MustParseDecimal(amount)
	e.WHT = generic.MustParseDecimal(wht)
	e.AdvanceTax = generic.MustParseDecimal(advanceTax)
	e.AmountAfterTax = generic.MustParseDecimal(afterTax)
	e.Attachments = expense.Attachments{
		Receipt:      generic.ParseAttachment(receiptKind.String, receiptLoc.String),
		IssuedCheque: generic.ParseAttachment(chequeKind.String, chequeLoc.String),
		PaymentSlip:  generic.ParseAttachment(slipKind.String, slipLoc.String),
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return e, nil
}

// =============================================================================
// VENDORS
// =============================================================================

// SaveVendor inserts or updates a vendor.
func (s *Store) SaveVendor(ctx context.Context, v expense.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO vendors (id, name, wht, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			wht = excluded.wht
	`

	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.Name, v.WHT.String(), createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetVendor retrieves a vendor by ID.
func (s *Store) GetVendor(ctx context.Context, id generic.VendorID) (expense.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT id, name, wht, created_at FROM vendors WHERE id = ?", id)
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return expense.Vendor{}, fmt.Errorf("vendor %s: %w", id, generic.ErrNotFound)
	}
	return v, err
}

// ListVendors returns all vendors ordered by name.
func (s *Store) ListVendors(ctx context.Context) ([]expense.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, wht, created_at FROM vendors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []expense.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func scanVendor(row scanner) (expense.Vendor, error) {
	var (
		v         expense.Vendor
		wht       string
		createdAt string
	)
	if err := row.Scan(&v.ID, &v.Name, &wht, &createdAt); err != nil {
		return v, err
	}
	v.WHT = generic.MustParseDecimal(wht)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return v, nil
}

// =============================================================================
// PETTY CASH (pettycash.Store interface)
// =============================================================================

const transactionColumns = `
	id, office_id, month, tx_type, amount, date_of_payment,
	bank_name, cheque_kind, cheque_location, description, created_by, created_at`

// CreateTransaction appends a petty-cash transaction.
func (s *Store) CreateTransaction(ctx context.Context, tx pettycash.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO petty_cash_transactions
		(month_index, ` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.Month.Index(),
		tx.ID,
		tx.OfficeID,
		tx.Month.String(),
		tx.Type,
		tx.Amount.String(),
		tx.DateOfPayment.String(),
		nullString(tx.BankName),
		nullString(string(tx.ChequeImage.Kind)),
		nullString(tx.ChequeImage.Location()),
		nullString(tx.Description),
		nullString(string(tx.CreatedBy)),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("transaction %s: %w", tx.ID, generic.ErrDuplicate)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// ListTransactions returns a scope's transactions in insertion order.
func (s *Store) ListTransactions(ctx context.Context, scope pettycash.Scope) ([]pettycash.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + transactionColumns + ` FROM petty_cash_transactions
		WHERE office_id = ? AND month_index = ?
		ORDER BY seq ASC`
	return s.queryTransactions(ctx, query, scope.OfficeID, scope.Month.Index())
}

// ListOfficeTransactions returns every transaction of an office in insertion order.
func (s *Store) ListOfficeTransactions(ctx context.Context, office generic.OfficeID) ([]pettycash.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + transactionColumns + ` FROM petty_cash_transactions
		WHERE office_id = ?
		ORDER BY seq ASC`
	return s.queryTransactions(ctx, query, office)
}

// ListOffices returns every office with petty-cash activity.
func (s *Store) ListOffices(ctx context.Context) ([]generic.OfficeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT office_id FROM petty_cash_transactions
		UNION
		SELECT office_id FROM month_closes
		ORDER BY office_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []generic.OfficeID
	for rows.Next() {
		var o generic.OfficeID
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]pettycash.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []pettycash.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (pettycash.Transaction, error) {
	var (
		tx                    pettycash.Transaction
		month, amount, paidOn string
		bank, description     sql.NullString
		chequeKind, chequeLoc sql.NullString
		createdBy             sql.NullString
		createdAt             string
	)

	err := rows.Scan(
		&tx.ID, &tx.OfficeID, &month, &tx.Type, &amount, &paidOn,
		&bank, &chequeKind, &chequeLoc, &description, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Month, _ = generic.ParseMonth(month)
	tx.Amount = generic.MustParseDecimal(amount)
	tx.DateOfPayment, _ = generic.ParseDate(paidOn)
	tx.BankName = bank.String
	tx.ChequeImage = generic.ParseAttachment(chequeKind.String, chequeLoc.String)
	tx.Description = description.String
	tx.CreatedBy = generic.ActorID(createdBy.String)
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return tx, nil
}

// SaveMonthClose stores a month close. A scope can be closed once.
func (s *Store) SaveMonthClose(ctx context.Context, c pettycash.MonthClose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO month_closes
		(office_id, month_index, month, opening_balance, closing_balance, closed_by, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.Scope.OfficeID,
		c.Scope.Month.Index(),
		c.Scope.Month.String(),
		c.OpeningBalance.String(),
		c.ClosingBalance.String(),
		nullString(string(c.ClosedBy)),
		c.ClosedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("month close %s: %w", c.Scope, generic.ErrDuplicate)
		}
		return fmt.Errorf("failed to save month close: %w", err)
	}
	return nil
}

// LatestMonthClose returns the newest close of office strictly before
// before, or nil. A zero month means no upper bound.
func (s *Store) LatestMonthClose(ctx context.Context, office generic.OfficeID, before generic.Month) (*pettycash.MonthClose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT office_id, month, opening_balance, closing_balance, closed_by, closed_at
		FROM month_closes
		WHERE office_id = ?`
	args := []any{office}
	if !before.IsZero() {
		query += ` AND month_index < ?`
		args = append(args, before.Index())
	}
	query += ` ORDER BY month_index DESC LIMIT 1`

	var (
		c                pettycash.MonthClose
		month            string
		opening, closing string
		closedBy         sql.NullString
		closedAt         string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&c.Scope.OfficeID, &month, &opening, &closing, &closedBy, &closedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Scope.Month, _ = generic.ParseMonth(month)
	c.OpeningBalance = parseDecimal(opening)
	c.ClosingBalance = parseDecimal(closing)
	c.ClosedBy = generic.ActorID(closedBy.String)
	c.ClosedAt, _ = time.Parse(time.RFC3339Nano, closedAt)
	return &c, nil
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// AppendAudit records an audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payloadJSON, _ := json.Marshal(entry.Payload)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, subject_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		nullString(string(entry.ActorID)),
		entry.Action,
		entry.SubjectID,
		string(payloadJSON),
	)
	return err
}

// QueryAudit returns entries matching filter, oldest first.
func (s *Store) QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, timestamp, actor_id, action, subject_id, payload_json FROM audit_log`
	var args []any
	if filter.SubjectID != "" {
		query += ` WHERE subject_id = ?`
		args = append(args, filter.SubjectID)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			entry       generic.AuditEntry
			timestamp   string
			actor       sql.NullString
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&entry.ID, &timestamp, &actor, &entry.Action, &entry.SubjectID, &payloadJSON); err != nil {
			return nil, err
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		entry.ActorID = generic.ActorID(actor.String)
		if payloadJSON.Valid && payloadJSON.String != "" {
			json.Unmarshal([]byte(payloadJSON.String), &entry.Payload)
		}
		// Remaining filter fields are applied in memory.
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"expenses", "vendors", "petty_cash_transactions", "month_closes", "audit_log"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(value string) decimal.Decimal {
	return generic.MustParseDecimal(value)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}
