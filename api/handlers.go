/*
handlers.go - HTTP API handlers for the expense engine

PURPOSE:
  Exposes expense workflow and petty-cash ledgers via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the services.

ENDPOINTS:
  Vendors:
    GET    /api/vendors                      List vendors
    POST   /api/vendors                      Create vendor (admin)
    GET    /api/vendors/{id}                 Vendor details

  Expenses:
    GET    /api/expenses                     List (office_id, vendor_id, status)
    POST   /api/expenses                     Create
    POST   /api/expenses/preview             Derive amountAfterTax + errors
    GET    /api/expenses/{id}                Expense details
    PUT    /api/expenses/{id}                Edit (partial)
    POST   /api/expenses/{id}/submit         New -> WaitingForApproval
    POST   /api/expenses/{id}/advance        One step along the approval path
    POST   /api/expenses/{id}/reject         Reject with reason
    GET    /api/expenses/{id}/visibility     Field visibility (?editing=true)
    GET    /api/expenses/{id}/history        Audit trail

  Petty cash: see pettycash_handlers.go

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (with per-field messages), invalid input
  - 404: Resource not found
  - 409: Version conflict, transition already in flight, duplicate
  - 422: Invalid transition, invalid ledger scope
  - 500: Internal errors (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Expenses  *expense.Service
	PettyCash *pettycash.Service
	Exporter  *pettycash.Exporter
	Log       zerolog.Logger
}

func NewHandler(expenses *expense.Service, pettyCash *pettycash.Service, log zerolog.Logger) *Handler {
	return &Handler{
		Expenses:  expenses,
		PettyCash: pettyCash,
		Exporter:  pettycash.NewExporter(),
		Log:       log,
	}
}

// =============================================================================
// VENDOR HANDLERS
// =============================================================================

// ListVendors returns all vendors.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.Expenses.ListVendors(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]VendorDTO, len(vendors))
	for i, v := range vendors {
		dtos[i] = toVendorDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVendor creates a vendor.
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req CreateVendorRequest
	if !decode(w, r, &req) {
		return
	}

	v, err := h.Expenses.CreateVendor(r.Context(), req.Name, req.WHT)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVendorDTO(v))
}

// GetVendor returns one vendor.
func (h *Handler) GetVendor(w http.ResponseWriter, r *http.Request) {
	v, err := h.Expenses.GetVendor(r.Context(), generic.VendorID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVendorDTO(v))
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns expenses, optionally filtered.
// GET /api/expenses?office_id=...&vendor_id=...&status=Approved,Paid
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := expense.ListFilter{
		OfficeID: generic.OfficeID(q.Get("office_id")),
		VendorID: generic.VendorID(q.Get("vendor_id")),
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := expense.ParseStatus(part)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	expenses, err := h.Expenses.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense creates an expense.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.Expenses.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info().
		Str("expense_id", string(e.ID)).
		Str("status", string(e.Status)).
		Str("actor", string(e.CreatedBy)).
		Msg("expense created")
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// PreviewExpense derives amountAfterTax and reports validation errors
// without storing anything. Always 200 unless the input can't be parsed.
func (h *Handler) PreviewExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decode(w, r, &req) {
		return
	}

	verr := &generic.ValidationError{}
	in, err := req.toInput()
	verr.Merge(err)

	e, err := h.Expenses.Preview(r.Context(), in)
	if err != nil && !errors.Is(err, generic.ErrValidation) {
		h.fail(w, r, err)
		return
	}
	verr.Merge(err)

	writeJSON(w, http.StatusOK, PreviewDTO{
		Expense: toExpenseDTO(e),
		Valid:   verr.OrNil() == nil,
		Fields:  fieldMap(verr),
	})
}

// GetExpense returns one expense.
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.Expenses.Get(r.Context(), expenseID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// EditExpense applies a partial update.
func (h *Handler) EditExpense(w http.ResponseWriter, r *http.Request) {
	var req EditExpenseRequest
	if !decode(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.Expenses.Edit(r.Context(), actorFrom(r), expenseID(r), req.Version, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// SubmitExpense moves a draft to WaitingForApproval.
func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "submit", h.Expenses.Submit)
}

// AdvanceExpense moves an expense one step along the approval path.
func (h *Handler) AdvanceExpense(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "advance", h.Expenses.Advance)
}

// RejectExpense rejects an expense with a reason.
func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject", h.Expenses.Reject)
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, actor generic.ActorID, id generic.ExpenseID, req expense.TransitionRequest) (expense.Expense, error),
) {
	var req TransitionRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	e, err := fn(r.Context(), actorFrom(r), expenseID(r), req.toTransition())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info().
		Str("expense_id", string(e.ID)).
		Str("action", action).
		Str("status", string(e.Status)).
		Str("actor", string(actorFrom(r))).
		Msg("expense transition")
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// GetVisibility returns the visibility table for an expense.
// GET /api/expenses/{id}/visibility?editing=true
func (h *Handler) GetVisibility(w http.ResponseWriter, r *http.Request) {
	e, err := h.Expenses.Get(r.Context(), expenseID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	editing := false
	if raw := r.URL.Query().Get("editing"); raw != "" {
		editing, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid editing flag", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toVisibilityDTO(expense.ContextFor(e, editing)))
}

// GetHistory returns the audit trail of an expense.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := expenseID(r)
	if _, err := h.Expenses.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	entries, err := h.Expenses.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func expenseID(r *http.Request) generic.ExpenseID {
	return generic.ExpenseID(chi.URLParam(r, "id"))
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be omitted.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fail maps a service error to its HTTP status. Unexpected errors are
// logged and reported as 500 without details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *generic.ValidationError
		terr  *generic.TransitionError
		scerr *generic.ScopeError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Fields: fieldMap(verr),
		})
	case errors.As(err, &terr):
		writeError(w, http.StatusUnprocessableEntity, "Invalid transition", err)
	case errors.As(err, &scerr):
		writeError(w, http.StatusUnprocessableEntity, "Invalid ledger scope", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, generic.ErrTransitionInFlight):
		writeError(w, http.StatusConflict, "Transition already in progress", err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		h.Log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

// fieldMap flattens field errors. When a field has several messages the
// first one wins.
func fieldMap(verr *generic.ValidationError) map[string]string {
	if verr == nil || len(verr.Fields) == 0 {
		return nil
	}
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		if _, seen := fields[f.Field]; !seen {
			fields[f.Field] = f.Message
		}
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
