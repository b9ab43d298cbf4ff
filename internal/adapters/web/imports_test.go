package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bizledger/internal/app"
	"bizledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fakeService) upload(kind string, r io.Reader) (*app.ImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, kind+":"+string(body))
	return &app.ImportResult{Imported: 1, Errors: []string{}}, nil
}

func (f *fakeService) ImportProducts(_ context.Context, _ core.Actor, r io.Reader) (*app.ImportResult, error) {
	return f.upload("products", r)
}

func (f *fakeService) ImportSales(_ context.Context, _ core.Actor, r io.Reader) (*app.ImportResult, error) {
	return f.upload("sales", r)
}

func (f *fakeService) ImportPayroll(_ context.Context, actor core.Actor, r io.Reader) (*app.ImportResult, error) {
	if err := core.Authorize(actor, core.OpPayrollWrite); err != nil {
		return nil, err
	}
	return f.upload("payroll", r)
}

func (f *fakeService) RecentActivity(_ context.Context, _ core.Actor, limit int) (*app.RecentActivity, error) {
	f.activityLimit = limit
	return &app.RecentActivity{Sales: []core.Sale{}, Movements: []core.Movement{}, Expenses: []core.Expense{}}, nil
}

func multipartUpload(t *testing.T, target, field, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "book.xlsx")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportRoutes(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, Config{})
	cookie := authCookieFor(t, svc.user, time.Now())

	for _, kind := range []string{"products", "sales", "payroll"} {
		req := multipartUpload(t, "/api/import/"+kind, "file", "book-"+kind)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, kind)
		assert.JSONEq(t, `{"imported":1,"updated":0,"categories_created":0,"errors":[]}`, rec.Body.String())
	}
	assert.Equal(t, []string{"products:book-products", "sales:book-sales", "payroll:book-payroll"}, svc.uploads)

	t.Run("missing file field", func(t *testing.T) {
		req := multipartUpload(t, "/api/import/sales", "", "")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(core.KindInvalidInput), decodeError(t, rec).Code)
	})

	t.Run("service refuses the actor", func(t *testing.T) {
		ops := &core.User{ID: 2, Username: "ops", Role: core.RoleOperationsManager}
		req := multipartUpload(t, "/api/import/payroll", "file", "x")
		req.AddCookie(authCookieFor(t, ops, time.Now()))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, multipartUpload(t, "/api/import/sales", "file", "x"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRecentActivity_Limit(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, Config{})
	cookie := authCookieFor(t, svc.user, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard/recent-activity?limit=5", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.activityLimit)
	assert.JSONEq(t, `{"recent_sales":[],"recent_inventory":[],"recent_expenses":[]}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/reports/dashboard/recent-activity?limit=abc", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
