package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"bizledger/internal/core"
	"bizledger/internal/export"

	"github.com/go-chi/chi/v5"
)

// periodReport serves reports keyed by ?year=&month=.
func periodReport[T any](h *Handler, fn func(context.Context, core.Actor, core.Period) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		p := q.period(h.now())
		if q.err != nil {
			h.writeServiceError(w, r, q.err)
			return
		}
		out, err := fn(r.Context(), mustActor(r), p)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, out)
	}
}

func (h *Handler) statements(w http.ResponseWriter, r *http.Request) {
	periodReport(h, h.svc.Statements)(w, r)
}

func (h *Handler) ratios(w http.ResponseWriter, r *http.Request) {
	periodReport(h, h.svc.Ratios)(w, r)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	periodReport(h, h.svc.IncomeStatement)(w, r)
}

func (h *Handler) cashFlowStatement(w http.ResponseWriter, r *http.Request) {
	periodReport(h, h.svc.CashFlowStatement)(w, r)
}

func (h *Handler) inventoryAnalysis(w http.ResponseWriter, r *http.Request) {
	periodReport(h, h.svc.InventoryAnalysis)(w, r)
}

func (h *Handler) salesAnalysis(w http.ResponseWriter, r *http.Request) {
	periodReport(h, h.svc.SalesAnalysis)(w, r)
}

// balanceSheet is a point-in-time snapshot and takes no period.
func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.BalanceSheet(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

// monthPeriod reads ?year=&month= where the month defaults to the current one.
func (h *Handler) monthPeriod(q *query) core.Period {
	now := h.now()
	return core.Period{Year: q.number("year", now.Year()), Month: q.number("month", int(now.Month()))}
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := h.monthPeriod(q)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	out, err := h.svc.Dashboard(r.Context(), mustActor(r), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h *Handler) dailyTrend(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := h.monthPeriod(q)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	out, err := h.svc.DailyTrend(r.Context(), mustActor(r), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []core.DailyTrendPoint{}
	}
	writeJSON(w, out)
}

func (h *Handler) monthlyTrend(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	year := q.number("year", h.now().Year())
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	out, err := h.svc.MonthlyTrend(r.Context(), mustActor(r), year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

// recentActivity handles GET /api/reports/dashboard/recent-activity?limit=
func (h *Handler) recentActivity(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	limit := q.number("limit", 0)
	if q.err != nil {
		h.writeServiceError(w, r, q.err)
		return
	}
	out, err := h.svc.RecentActivity(r.Context(), mustActor(r), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

// exportWorkbook handles GET /api/export/{kind} for products, sales, payroll,
// and statements. The workbook is buffered so failures still produce a JSON error.
func (h *Handler) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	actor := mustActor(r)
	q := newQuery(r)

	var (
		buf      bytes.Buffer
		err      error
		filename string
	)
	switch kind {
	case "products":
		filename = "products"
		err = h.svc.ExportProducts(r.Context(), actor, &buf)
	case "sales":
		filter := saleFilter(q)
		if q.err != nil {
			h.writeServiceError(w, r, q.err)
			return
		}
		filename = "sales"
		err = h.svc.ExportSales(r.Context(), actor, filter, &buf)
	case "payroll":
		filter := payrollFilter(q)
		if q.err != nil {
			h.writeServiceError(w, r, q.err)
			return
		}
		filename = "payroll"
		err = h.svc.ExportPayroll(r.Context(), actor, filter, &buf)
	case "statements":
		p := q.period(h.now())
		if q.err != nil {
			h.writeServiceError(w, r, q.err)
			return
		}
		filename = fmt.Sprintf("statements-%d", p.Year)
		if p.Month != 0 {
			filename += fmt.Sprintf("-%02d", p.Month)
		}
		err = h.svc.ExportStatements(r.Context(), actor, p, &buf)
	default:
		writeError(w, r, "unknown export: "+kind, string(core.KindNotFound), http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
