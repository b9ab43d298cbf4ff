package web

import (
	"net/http"

	"bizledger/internal/app"
	"bizledger/internal/core"
)

func payrollFilter(q *query) core.PayrollFilter {
	return core.PayrollFilter{
		EmployeeID: q.optInt("employee_id"),
		Year:       q.number("year", 0),
		Month:      q.number("month", 0),
		IsPaid:     q.optBool("is_paid"),
		Page:       q.page(),
	}
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListEmployees(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

// listPayroll handles GET /api/payroll/records?employee_id=&year=&month=&is_paid=
func (h *Handler) listPayroll(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := payrollFilter(q)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	res, err := h.svc.ListPayroll(r.Context(), mustActor(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) createPayroll(w http.ResponseWriter, r *http.Request) {
	var req app.PayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.CreatePayroll(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (h *Handler) updatePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.PayrollPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.UpdatePayroll(r.Context(), mustActor(r), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (h *Handler) deletePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePayroll(r.Context(), mustActor(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payPayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.MarkPaidRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.MarkPayrollPaid(r.Context(), mustActor(r), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// payrollSummary handles GET /api/payroll/summary?year=&month=
func (h *Handler) payrollSummary(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	now := h.now()
	year := q.number("year", now.Year())
	month := q.number("month", int(now.Month()))
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	sum, err := h.svc.PayrollSummary(r.Context(), mustActor(r), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sum)
}
