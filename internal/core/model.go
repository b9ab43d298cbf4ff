package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Clock returns "now". Services take a Clock so tests can pin dates.
type Clock func() time.Time

// SystemClock is the default Clock. Business days are UTC calendar days, so
// invoice dates, period bounds and the dashboard's "today" all agree.
func SystemClock() time.Time { return time.Now().UTC() }

// Period selects one calendar year, or one month of it when Month is non-zero.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
}

// Validate rejects years outside a sane range and months outside 0..12.
func (p Period) Validate() error {
	if p.Year < 1970 || p.Year > 9999 {
		return InvalidInputf("year %d is out of range", p.Year)
	}
	if p.Month < 0 || p.Month > 12 {
		return InvalidInputf("month %d is out of range", p.Month)
	}
	return nil
}

// Bounds returns the half-open UTC interval [from, to) covered by the period.
func (p Period) Bounds() (from, to time.Time) {
	if p.Month == 0 {
		from = time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0)
	}
	from = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Page is a 1-based pagination request.
type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// limitOffset normalizes the page into SQL LIMIT/OFFSET values.
func (p Page) limitOffset() (limit, offset int) {
	limit = p.PerPage
	if limit <= 0 {
		limit = defaultPerPage
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// PageInfo accompanies paginated list results.
type PageInfo struct {
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

func newPageInfo(total int, p Page) PageInfo {
	limit, _ := p.limitOffset()
	cur := p.Page
	if cur < 1 {
		cur = 1
	}
	return PageInfo{
		Total:       total,
		Pages:       (total + limit - 1) / limit,
		CurrentPage: cur,
		PerPage:     limit,
	}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var hundred = decimal.NewFromInt(100)

// money rounds half away from zero to two places.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// dateOnly truncates t to midnight of its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
