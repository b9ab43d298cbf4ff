package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"bizledger/internal/app"
	"bizledger/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	jsonBodyLimit   = 1 << 20  // 1 MB
	uploadBodyLimit = 10 << 20 // 10 MB xlsx uploads
)

// Config carries the HTTP-facing settings read from the environment.
type Config struct {
	AllowedOrigins string
	JWTSecret      string
	RateLimit      string // limiter format, e.g. "300-M"; empty disables
	SecureCookies  bool
	// Ping reports store health for /api/health. Optional.
	Ping func(ctx context.Context) error
	// Now is the clock used for default report periods. Defaults to the current UTC time.
	Now func() time.Time
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc           app.ApplicationService
	log           *zap.Logger
	jwtSecret     []byte
	secureCookies bool
	ping          func(ctx context.Context) error
	now           func() time.Time
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, cfg Config, log *zap.Logger) (http.Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	h := &Handler{
		svc:           svc,
		log:           log,
		jwtSecret:     []byte(cfg.JWTSecret),
		secureCookies: cfg.SecureCookies,
		ping:          cfg.Ping,
		now:           cfg.Now,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.RateLimit != "" {
		limit, err := RateLimit(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	// ── Public ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.With(RequestBodyLimit(jsonBodyLimit)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected ────────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Route("/api/import", func(r chi.Router) {
			r.Use(RequestBodyLimit(uploadBodyLimit))
			r.Post("/products", h.importProducts)
			r.Post("/sales", h.importSales)
			r.Post("/payroll", h.importPayroll)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(jsonBodyLimit))

			r.Get("/api/auth/me", h.me)

			r.Route("/api/products", func(r chi.Router) {
				r.Get("/", h.listProducts)
				r.Post("/", h.createProduct)
				r.Get("/categories", h.listCategories)
				r.Post("/categories", h.createCategory)
				r.Get("/{id}", h.getProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
			})

			r.Route("/api/inventory", func(r chi.Router) {
				r.Get("/movements", h.listMovements)
				r.Post("/movements", h.recordMovement)
				r.Post("/movements/{id}/complete", h.completeMovement)
				r.Delete("/movements/{id}", h.reverseMovement)
				r.Post("/stock-in", h.stockIn)
				r.Post("/stock-out", h.stockOut)
				r.Get("/low-stock", h.lowStock)
				r.Get("/audit", h.auditStock)
			})

			r.Route("/api/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
				r.Get("/customers", h.listCustomers)
				r.Post("/customers", h.createCustomer)
				r.Get("/{id}", h.getSale)
				r.Put("/{id}", h.updateSale)
				r.Post("/{id}/void", h.voidSale)
				r.Delete("/{id}", h.voidSale)
			})

			r.Route("/api/payroll", func(r chi.Router) {
				r.Get("/employees", h.listEmployees)
				r.Get("/records", h.listPayroll)
				r.Post("/records", h.createPayroll)
				r.Put("/records/{id}", h.updatePayroll)
				r.Delete("/records/{id}", h.deletePayroll)
				r.Post("/records/{id}/pay", h.payPayroll)
				r.Get("/summary", h.payrollSummary)
			})

			r.Route("/api/finance", func(r chi.Router) {
				r.Get("/expenses", h.listExpenses)
				r.Post("/expenses", h.createExpense)
				r.Get("/assets", h.listAssets)
				r.Post("/assets", h.createAsset)
				r.Get("/liabilities", h.listLiabilities)
				r.Post("/liabilities", h.createLiability)
				r.Get("/equity", h.listEquity)
				r.Post("/equity", h.createEquity)
				r.Get("/cash-flows", h.listCashFlows)
				r.Post("/cash-flows", h.createCashFlow)
				r.Get("/budget-targets", h.getBudgetTarget)
				r.Put("/budget-targets", h.setBudgetTarget)
				r.Delete("/{kind}/{id}", h.deleteLedgerEntry)
			})

			r.Get("/api/settings", h.getSettings)
			r.Put("/api/settings", h.updateSettings)

			r.Route("/api/reports", func(r chi.Router) {
				r.Get("/statements", h.statements)
				r.Get("/ratios", h.ratios)
				r.Get("/income-statement", h.incomeStatement)
				r.Get("/balance-sheet", h.balanceSheet)
				r.Get("/cash-flow-statement", h.cashFlowStatement)
				r.Get("/inventory-analysis", h.inventoryAnalysis)
				r.Get("/sales-analysis", h.salesAnalysis)
				r.Get("/dashboard", h.dashboard)
				r.Get("/dashboard/trend/daily", h.dailyTrend)
				r.Get("/dashboard/trend/monthly", h.monthlyTrend)
				r.Get("/dashboard/recent-activity", h.recentActivity)
			})

			r.Get("/api/export/{kind}", h.exportWorkbook)
		})
	})

	return r, nil
}

// health reports liveness and, when configured, database reachability.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database,omitempty"`
	}
	if h.ping == nil {
		writeJSON(w, response{Status: "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
		return false
	}
	writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	return false
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", string(core.KindInvalidInput), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// query holds parsed query parameters and the first parse error.
type query struct {
	r   *http.Request
	err error
}

func newQuery(r *http.Request) *query { return &query{r: r} }

func (q *query) str(name string) string { return q.r.URL.Query().Get(name) }

func (q *query) number(name string, def int) int {
	s := q.str(name)
	if s == "" || q.err != nil {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		q.err = core.InvalidFields("invalid query parameter", map[string]string{name: "integer"})
		return def
	}
	return v
}

func (q *query) optInt(name string) *int {
	if q.str(name) == "" {
		return nil
	}
	v := q.number(name, 0)
	return &v
}

func (q *query) optBool(name string) *bool {
	s := q.str(name)
	if s == "" || q.err != nil {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		q.err = core.InvalidFields("invalid query parameter", map[string]string{name: "boolean"})
		return nil
	}
	return &v
}

func (q *query) date(name string) *time.Time {
	s := q.str(name)
	if s == "" || q.err != nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		q.err = core.InvalidFields("invalid query parameter", map[string]string{name: "YYYY-MM-DD"})
		return nil
	}
	return &t
}

func (q *query) page() core.Page {
	return core.Page{Page: q.number("page", 1), PerPage: q.number("per_page", 0)}
}

// period reads year and month, defaulting year to the current one.
// month=0 or absent selects the whole year.
func (q *query) period(now time.Time) core.Period {
	return core.Period{Year: q.number("year", now.Year()), Month: q.number("month", 0)}
}
