/*
handlers_test.go - HTTP tests for the payroll endpoints

Tests for:
- The legacy /updatePayRoll and /getPayRoll contract
- Ingestion listing and lookup
- Report exports
- Cache invalidation after uploads
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
	"github.com/warp/payroll-engine/store/sqlite"
)

const novemberCSV = "date,hours worked,employee id,job group\n" +
	"04/11/2023,10,1,A\n" +
	"14/11/2023,5,1,A\n" +
	"14/11/2023,7.5,2,B\n" +
	"20/11/2023,4,2,B\n"

func setupTestHandler(t *testing.T, cache report.Cache) (*Handler, http.Handler) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	h := NewHandler(store, report.NewService(store, payroll.NewPayCalculator(), cache, logger), logger)
	return h, NewRouter(h)
}

func uploadRequest(t *testing.T, field, filename, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/updatePayRoll", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, router http.Handler, filename, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(router, uploadRequest(t, "file", filename, body))
}

func getPayroll(t *testing.T, router http.Handler) PayrollResponse {
	t.Helper()
	rec := do(router, httptest.NewRequest(http.MethodGet, "/getPayRoll", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PayrollResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUpdatePayRoll_ThenGetPayRoll(t *testing.T) {
	// GIVEN: A fresh server
	_, router := setupTestHandler(t, nil)

	// WHEN: Uploading a timesheet
	rec := upload(t, router, "time-report-42.csv", novemberCSV)

	// THEN: 200 with an empty body
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	// AND: The report has one entry per employee and pay period
	resp := getPayroll(t, router)
	assert.Equal(t, []EmployeeReportDTO{
		{EmployeeID: 1, PayPeriod: PayPeriodDTO{StartDate: "2023-11-01", EndDate: "2023-11-15"}, AmountPaid: "$300.00"},
		{EmployeeID: 2, PayPeriod: PayPeriodDTO{StartDate: "2023-11-01", EndDate: "2023-11-15"}, AmountPaid: "$225.00"},
		{EmployeeID: 2, PayPeriod: PayPeriodDTO{StartDate: "2023-11-16", EndDate: "2023-11-30"}, AmountPaid: "$120.00"},
	}, resp.PayrollReport.EmployeeReports)
}

func TestGetPayRoll_ResponseShape(t *testing.T) {
	_, router := setupTestHandler(t, nil)
	upload(t, router, "shape.csv", "date,hours,id,group\n02/01/2023,10,1,A\n09/01/2023,5,1,B\n")

	rec := do(router, httptest.NewRequest(http.MethodGet, "/getPayRoll", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"payrollReport":{"employeeReports":[
		{"employeeId":1,"payPeriod":{"startDate":"2023-1-01","endDate":"2023-1-15"},"amountPaid":"$350.00"}
	]}}`, rec.Body.String())
}

func TestGetPayRoll_Empty(t *testing.T) {
	_, router := setupTestHandler(t, nil)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/getPayRoll", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Timesheet is empty"}`, rec.Body.String())
}

func TestUpdatePayRoll_FileNotGiven(t *testing.T) {
	_, router := setupTestHandler(t, nil)

	rec := do(router, uploadRequest(t, "attachment", "time-report-1.csv", novemberCSV))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"File not given"}`, rec.Body.String())

	rec = do(router, httptest.NewRequest(http.MethodPost, "/updatePayRoll", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"File not given"}`, rec.Body.String())

	rec = upload(t, router, ".csv", novemberCSV)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"File not given"}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, upload(t, router, "time-report-1.csv", novemberCSV).Code)
}

func TestUpdatePayRoll_Duplicate(t *testing.T) {
	// GIVEN: "march" has been accepted
	h, router := setupTestHandler(t, nil)
	require.Equal(t, http.StatusOK, upload(t, router, "march.csv", novemberCSV).Code)

	// WHEN: Uploading the same file and a name containing it
	for _, name := range []string{"march.csv", "march_v2.csv", "MARCH-final.csv"} {
		rec := upload(t, router, name, novemberCSV)

		// THEN: 406 with the legacy message
		assert.Equal(t, http.StatusNotAcceptable, rec.Code, name)
		assert.JSONEq(t, `{"error":"CSV already uploaded previously or no file given"}`, rec.Body.String(), name)
	}

	records, err := h.Store.ListIngestions(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUpdatePayRoll_MalformedRow(t *testing.T) {
	_, router := setupTestHandler(t, nil)

	rec := upload(t, router, "bad.csv", "date,hours,id,group\n02/01/2023,10,1,A\n31-01-2023,5,1,B\n")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Malformed CSV row", resp.Error)
	assert.Contains(t, resp.Details, "line 3")

	// Nothing was recorded, so the same name is still accepted.
	assert.Equal(t, http.StatusOK, upload(t, router, "bad.csv", novemberCSV).Code)
}

func TestUpdatePayRoll_TooLarge(t *testing.T) {
	h, router := setupTestHandler(t, nil)
	h.MaxUploadBytes = 64

	rec := upload(t, router, "big.csv", novemberCSV)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestIngestions(t *testing.T) {
	_, router := setupTestHandler(t, nil)
	upload(t, router, "time-report-42.csv", novemberCSV)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/ingestions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []IngestionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "time-report-42", list[0].Identifier)
	assert.Equal(t, 4, list[0].RowCount)
	assert.NotEmpty(t, list[0].ID)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/ingestions/time-report-42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var one IngestionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, list[0].ID, one.ID)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/ingestions/time-report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExports(t *testing.T) {
	_, router := setupTestHandler(t, nil)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/payroll/export.csv", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	upload(t, router, "time-report-42.csv", novemberCSV)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/payroll/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payroll.csv")
	assert.Equal(t, "employee_id,start_date,end_date,amount_paid\n"+
		"1,2023-11-01,2023-11-15,$300.00\n"+
		"2,2023-11-01,2023-11-15,$225.00\n"+
		"2,2023-11-16,2023-11-30,$120.00\n", rec.Body.String())

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/payroll/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestUpload_InvalidatesCachedReport(t *testing.T) {
	// GIVEN: A redis-backed report cache holding November
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	_, router := setupTestHandler(t, report.NewRedisCache(client, time.Minute))

	upload(t, router, "time-report-11.csv", novemberCSV)
	assert.Len(t, getPayroll(t, router).PayrollReport.EmployeeReports, 3)
	require.True(t, mr.Exists(report.DefaultCacheKey))

	// WHEN: December arrives
	require.Equal(t, http.StatusOK, upload(t, router, "time-report-12.csv", "date,hours,id,group\n01/12/2023,8,1,A\n").Code)

	// THEN: The next report includes it
	reports := getPayroll(t, router).PayrollReport.EmployeeReports
	require.Len(t, reports, 4)
	assert.Equal(t, "$160.00", reports[3].AmountPaid)
}

func TestHealth(t *testing.T) {
	_, router := setupTestHandler(t, nil)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
