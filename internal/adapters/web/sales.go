package web

import (
	"net/http"

	"bizledger/internal/app"
	"bizledger/internal/core"
)

// saleFilter reads the filters shared by listing and export.
func saleFilter(q *query) core.SaleFilter {
	return core.SaleFilter{
		From:          q.date("from"),
		To:            q.date("to"),
		Status:        core.SaleStatus(q.str("status")),
		PaymentStatus: core.PaymentStatus(q.str("payment_status")),
		CustomerID:    q.optInt("customer_id"),
		Search:        q.str("search"),
		Page:          q.page(),
	}
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := saleFilter(q)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	res, err := h.svc.ListSales(r.Context(), mustActor(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSale(r.Context(), mustActor(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req app.SaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.CreateSale(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, s)
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.SalePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSale(r.Context(), mustActor(r), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s)
}

// voidSale handles POST /api/sales/{id}/void and its DELETE alias. The body,
// {"reason": "..."}, is optional.
func (h *Handler) voidSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.VoidRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	s, err := h.svc.VoidSale(r.Context(), mustActor(r), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListCustomers(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}
