package web

import (
	"net/http"

	"bizledger/internal/app"
	"bizledger/internal/core"
)

// listMovements handles GET /api/inventory/movements?product_id=&direction=&reference=&from=&to=
func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := core.MovementFilter{
		ProductID: q.optInt("product_id"),
		Direction: core.Direction(q.str("direction")),
		Reference: q.str("reference"),
		From:      q.date("from"),
		To:        q.date("to"),
		Page:      q.page(),
	}
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	res, err := h.svc.ListMovements(r.Context(), mustActor(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) stockIn(w http.ResponseWriter, r *http.Request) {
	var req app.StockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.StockIn(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

func (h *Handler) stockOut(w http.ResponseWriter, r *http.Request) {
	var req app.StockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.StockOut(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req app.MovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.RecordMovement(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

func (h *Handler) completeMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.svc.CompleteMovement(r.Context(), mustActor(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, m)
}

// reverseMovement handles DELETE /api/inventory/movements/{id}. The movement
// is undone and removed; stock is restored.
func (h *Handler) reverseMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ReverseMovement(r.Context(), mustActor(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.LowStock(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rep)
}

func (h *Handler) auditStock(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.AuditStock(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []core.StockDiscrepancy{}
	}
	writeJSON(w, map[string]any{"consistent": len(out) == 0, "discrepancies": out})
}
