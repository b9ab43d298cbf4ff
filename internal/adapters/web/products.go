package web

import (
	"context"
	"io"
	"net/http"

	"bizledger/internal/app"
	"bizledger/internal/core"
)

// listProducts handles GET /api/products?search=&category_id=&include_inactive=&page=&per_page=
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := core.ProductFilter{
		Search:     q.str("search"),
		CategoryID: q.optInt("category_id"),
		Page:       q.page(),
	}
	if inactive := q.optBool("include_inactive"); inactive != nil {
		filter.IncludeInactive = *inactive
	}
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	res, err := h.svc.ListProducts(r.Context(), mustActor(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), mustActor(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req app.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.ProductPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), mustActor(r), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.DeleteProduct(r.Context(), mustActor(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cats)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), mustActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

// importProducts handles POST /api/import/products with a multipart "file" field.
func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	h.importWorkbook(w, r, h.svc.ImportProducts)
}

// importSales handles POST /api/import/sales.
func (h *Handler) importSales(w http.ResponseWriter, r *http.Request) {
	h.importWorkbook(w, r, h.svc.ImportSales)
}

// importPayroll handles POST /api/import/payroll.
func (h *Handler) importPayroll(w http.ResponseWriter, r *http.Request) {
	h.importWorkbook(w, r, h.svc.ImportPayroll)
}

type importFunc func(ctx context.Context, actor core.Actor, r io.Reader) (*app.ImportResult, error)

// importWorkbook reads the xlsx upload in the multipart "file" field and
// hands it to run. Row-level failures come back inside the result.
func (h *Handler) importWorkbook(w http.ResponseWriter, r *http.Request, run importFunc) {
	if err := r.ParseMultipartForm(uploadBodyLimit); err != nil {
		writeError(w, r, "expected multipart form with an xlsx file", string(core.KindInvalidInput), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "missing file field", string(core.KindInvalidInput), http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := run(r.Context(), mustActor(r), file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
