package web

import (
	"net/http"

	"bizledger/internal/app"
	"bizledger/internal/core"

	"github.com/go-chi/chi/v5"
)

func ledgerFilter(q *query) core.LedgerFilter {
	return core.LedgerFilter{
		From:     q.date("from"),
		To:       q.date("to"),
		Category: q.str("category"),
		Page:     q.page(),
	}
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := ledgerFilter(q)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	res, err := h.svc.ListExpenses(r.Context(), mustActor(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateExpense(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAssets(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h *Handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var req app.AssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateAsset(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (h *Handler) listLiabilities(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListLiabilities(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h *Handler) createLiability(w http.ResponseWriter, r *http.Request) {
	var req app.LiabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateLiability(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (h *Handler) listEquity(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListEquity(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h *Handler) createEquity(w http.ResponseWriter, r *http.Request) {
	var req app.EquityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateEquity(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (h *Handler) listCashFlows(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := ledgerFilter(q)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	res, err := h.svc.ListCashFlows(r.Context(), mustActor(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) createCashFlow(w http.ResponseWriter, r *http.Request) {
	var req app.CashFlowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateCashFlow(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

// deleteLedgerEntry handles DELETE /api/finance/{kind}/{id}.
func (h *Handler) deleteLedgerEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseLedgerKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteLedgerEntry(r.Context(), mustActor(r), kind, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getBudgetTarget handles GET /api/finance/budget-targets?year=&month=
func (h *Handler) getBudgetTarget(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	year := q.number("year", h.now().Year())
	month := q.optInt("month")
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	t, err := h.svc.GetBudgetTarget(r.Context(), mustActor(r), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (h *Handler) setBudgetTarget(w http.ResponseWriter, r *http.Request) {
	var req app.BudgetTargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.SetBudgetTarget(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSettings(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req app.SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s)
}
