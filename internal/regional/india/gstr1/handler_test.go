package gstr1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

type fakeEnqueuer struct {
	requests []ExportRequest
	err      error
}

func (e *fakeEnqueuer) EnqueueExport(_ context.Context, req ExportRequest) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.requests = append(e.requests, req)
	return "task-1", nil
}

type fakeIdempotency struct {
	keys map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func newTestRouter(t *testing.T, enqueuer ExportEnqueuer, guard IdempotencyGuard) http.Handler {
	svc := newTestService(t, b2bStore(), ServiceOptions{})
	h := NewHandler(testLogger(), svc, enqueuer, guard)
	r := chi.NewRouter()
	r.Route("/regional/india/gstr-1", h.MountRoutes)
	return r
}

const reportQuery = "/regional/india/gstr-1/?company=Acme+India&from_date=2024-04-01&to_date=2024-04-30&type_of_business=B2B"

func TestHandlerReport(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, reportQuery, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got Result
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Len(t, got.Data, 3)
	assert.Len(t, got.Warnings, 1)
	assert.Equal(t, "customer_gstin", got.Columns[0].FieldName)
}

func TestHandlerReportCSV(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, reportQuery+"&format=csv", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "gstr_1_b2b.csv")
	assert.Contains(t, rr.Body.String(), "SINV-1")
}

func TestHandlerReportValidation(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/regional/india/gstr-1/?company=Acme+India&to_date=nope", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "to_date")
}

func TestHandlerFilingJSON(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"filters":{"company":"Acme India","from_date":"2024-04-01","to_date":"2024-04-30","type_of_business":"B2B"},"report_name":"GSTR-1"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/json", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var doc FilingDocument
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&doc))
	assert.Equal(t, "GSTR-1", doc.ReportName)
	assert.Equal(t, "042024", doc.Data.FP)
	assert.Len(t, doc.Data.B2B, 2)
}

func TestHandlerFilingJSONMissingPlaceOfSupply(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"filters":{"company":"Acme India","to_date":"2024-04-30"},"report_name":"GSTR-1",` +
		`"data":[{"customer_gstin":"29AABCB5678B1Z2","invoice_number":"SINV-1","rate":18,"taxable_value":10,"cess_amount":0}]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/json", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Place Of Supply")
}

func TestHandlerDownload(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"report_name":"GSTR-1","report_type":"B2C Large","data":{"gstin":"27AAACA1234A1Z5","fp":"042024"}}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/download", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="gstr_1_b2c_large.json"`, rr.Header().Get("Content-Disposition"))
	assert.JSONEq(t, `{"gstin":"27AAACA1234A1Z5","fp":"042024"}`, rr.Body.String())
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/download", strings.NewReader(body))
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)
}

func TestHandlerDownloadRequiresFields(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/download", strings.NewReader(`{"report_name":"GSTR-1"}`)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "report_type")
}

func TestHandlerExportIdempotent(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := newTestRouter(t, enqueuer, &fakeIdempotency{keys: map[string]bool{}})

	body := `{"company":"Acme India","from_date":"2024-04-01","to_date":"2024-04-30","report_name":"GSTR-1"}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/exports", strings.NewReader(body))
		req.Header.Set(IdempotencyHeader, "export-42")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := send()
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"task_id":"task-1"}`, rr.Body.String())
	require.Len(t, enqueuer.requests, 1)
	assert.Equal(t, B2B, enqueuer.requests[0].TypeOfBusiness)
	assert.Equal(t, "GSTR-1", enqueuer.requests[0].ReportName)

	rr = send()
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Len(t, enqueuer.requests, 1)
}

func TestHandlerExportReleasesKeyOnFailure(t *testing.T) {
	guard := &fakeIdempotency{keys: map[string]bool{}}
	router := newTestRouter(t, &fakeEnqueuer{err: errors.New("redis down")}, guard)

	req := httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/exports",
		strings.NewReader(`{"company":"Acme India","to_date":"2024-04-30"}`))
	req.Header.Set(IdempotencyHeader, "export-43")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, guard.keys)
}

func TestHandlerExportWithoutQueue(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/regional/india/gstr-1/exports", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
