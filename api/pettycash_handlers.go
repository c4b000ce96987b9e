package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
)

// =============================================================================
// PETTY CASH HANDLERS
// =============================================================================

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetLedger returns the annotated ledger of one office/month.
// GET /api/offices/{officeID}/petty-cash/{month}
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}

	ledger, err := h.PettyCash.Ledger(r.Context(), scope)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(ledger))
}

// RecordTransaction records a petty-cash income or expense.
// POST /api/offices/{officeID}/petty-cash
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput(generic.OfficeID(chi.URLParam(r, "officeID")))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tx, err := h.PettyCash.Record(r.Context(), actorFrom(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info().
		Str("office_id", string(tx.OfficeID)).
		Str("month", tx.Month.String()).
		Str("type", string(tx.Type)).
		Str("amount", generic.FormatMoney(tx.Amount)).
		Msg("petty cash recorded")
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx, false))
}

// ExportLedger streams the ledger of one office/month as XLSX.
// GET /api/offices/{officeID}/petty-cash/{month}/export
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}

	ledger, err := h.PettyCash.Ledger(r.Context(), scope)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	content, err := h.Exporter.Export(ledger)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+pettycash.Filename(scope)+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// CloseMonths closes one scope, or every due month when the body names
// neither office nor month.
// POST /api/admin/petty-cash/close
func (h *Handler) CloseMonths(w http.ResponseWriter, r *http.Request) {
	var req CloseMonthRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	if req.OfficeID == "" && req.Month == "" {
		closes, err := h.PettyCash.CloseDue(r.Context(), actorFrom(r))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toMonthCloseDTOs(closes))
		return
	}

	verr := &generic.ValidationError{}
	if req.OfficeID == "" {
		verr.Add("officeId", "Office is required")
	}
	month, err := generic.ParseMonth(req.Month)
	if err != nil {
		verr.Add("month", "Invalid month (use MM-YYYY)")
	}
	if err := verr.OrNil(); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.PettyCash.CloseMonth(r.Context(), actorFrom(r), pettycash.Scope{
		OfficeID: generic.OfficeID(req.OfficeID),
		Month:    month,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthCloseDTOs([]pettycash.MonthClose{c}))
}

func toMonthCloseDTOs(closes []pettycash.MonthClose) []MonthCloseDTO {
	dtos := make([]MonthCloseDTO, len(closes))
	for i, c := range closes {
		dtos[i] = toMonthCloseDTO(c)
	}
	return dtos
}

func scopeParam(w http.ResponseWriter, r *http.Request) (pettycash.Scope, bool) {
	month, err := generic.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use MM-YYYY)", err)
		return pettycash.Scope{}, false
	}
	return pettycash.Scope{
		OfficeID: generic.OfficeID(chi.URLParam(r, "officeID")),
		Month:    month,
	}, true
}
