// src/handlers/report_handler_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/lotlens/src/config"
	"github.com/username/lotlens/src/models"
	"github.com/username/lotlens/src/parsers/metatrader"
	"github.com/username/lotlens/src/services"
)

const handlerReport = `<html><body>
<table>
<tr><td>Initial Deposit:</td><td>10000.00</td></tr>
<tr><td>Total Net Profit:</td><td>500.00</td></tr>
</table>
<table>
<tr><td>Time</td><td>Type</td><td>Volume</td><td>Profit</td><td>Balance</td></tr>
<tr><td>2023.01.02 10:00:00</td><td>buy</td><td>0.10</td><td>450.00</td><td>10450.00</td></tr>
<tr><td>2023.01.03 10:00:00</td><td>sell</td><td>0.10</td><td>-50.00</td><td>10400.00</td></tr>
<tr><td>2023.01.04 10:00:00</td><td>buy</td><td>0.10</td><td>100.00</td><td>10500.00</td></tr>
</table>
</body></html>`

const mixedLotHandlerReport = `<html><body>
<table>
<tr><td>Initial Deposit:</td><td>10000.00</td></tr>
</table>
<table>
<tr><td>Time</td><td>Type</td><td>Volume</td><td>Profit</td><td>Balance</td></tr>
<tr><td>2023.01.02 10:00:00</td><td>buy</td><td>0.10</td><td>100.00</td><td>10100.00</td></tr>
<tr><td>2023.01.03 10:00:00</td><td>buy</td><td>0.20</td><td>100.00</td><td>10200.00</td></tr>
</table>
</body></html>`

func newTestRouter() http.Handler {
	sessionCache := cache.New(5*time.Minute, 10*time.Minute)
	service := services.NewReportService(metatrader.NewParser(), sessionCache)
	handler := NewReportHandler(service)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/reports", handler.HandleUpload)
		r.Get("/reports/{id}", handler.HandleGetReport)
		r.Get("/reports/{id}/events", handler.HandleGetEvents)
		r.Post("/reports/{id}/simulate", handler.HandleSimulate)
		r.Get("/reports/{id}/simulation", handler.HandleGetSimulation)
	})
	return r
}

func init() {
	// Handlers read upload limits from the global config; tests run without
	// an environment file.
	config.Cfg = &config.AppConfig{MaxUploadSizeBytes: 10 * 1024 * 1024}
}

// multipartReport builds a multipart body whose file part declares an
// explicit Content-Type, since mime/multipart defaults to
// application/octet-stream which the upload validation rejects.
func multipartReport(t *testing.T, content, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="report.html"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func uploadReport(t *testing.T, router http.Handler, content string) models.ReportAnalysis {
	t.Helper()
	body, formType := multipartReport(t, content, "text/html")

	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", formType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis models.ReportAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	return analysis
}

func TestHandleUpload_Success(t *testing.T) {
	router := newTestRouter()

	analysis := uploadReport(t, router, handlerReport)

	assert.NotEmpty(t, analysis.DatasetID)
	assert.Equal(t, 3, analysis.EventCount)
	assert.True(t, analysis.HasFixedLot)
	assert.Equal(t, "500.00", analysis.Meta.TotalNetProfit)
}

func TestHandleUpload_RejectsDisallowedContentType(t *testing.T) {
	router := newTestRouter()
	body, formType := multipartReport(t, handlerReport, "application/pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", formType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpload_RejectsBinaryContent(t *testing.T) {
	router := newTestRouter()
	body, formType := multipartReport(t, "MZ\x00\x00\x00binary payload", "text/html")

	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", formType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpload_MissingFileField(t *testing.T) {
	router := newTestRouter()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetReport(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/"+analysis.DatasetID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var fetched models.ReportAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, analysis.DatasetID, fetched.DatasetID)
}

func TestHandleGetReport_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/reports/unknown-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetEvents(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/"+analysis.DatasetID+"/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.DataPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 3)
}

func TestHandleSimulate_Success(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	payload := strings.NewReader(`{"lotSize": 0.2}`)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reports/%s/simulate", analysis.DatasetID), payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.SimulationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.InDelta(t, 11000.0, result.FinalBalance, 1e-9)
	assert.InDelta(t, 100.0, result.Comparison.PercentChange, 1e-9)
}

func TestHandleSimulate_MixedLotsConflict(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, mixedLotHandlerReport)

	payload := strings.NewReader(`{"lotSize": 0.2}`)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reports/%s/simulate", analysis.DatasetID), payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleSimulate_InvalidLot(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	payload := strings.NewReader(`{"lotSize": -1}`)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reports/%s/simulate", analysis.DatasetID), payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSimulate_MalformedBody(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	payload := strings.NewReader(`not json`)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reports/%s/simulate", analysis.DatasetID), payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSimulate_UnknownDataset(t *testing.T) {
	router := newTestRouter()

	payload := strings.NewReader(`{"lotSize": 0.2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/reports/unknown-id/simulate", payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetSimulation_AfterSimulate(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	payload := strings.NewReader(`{"lotSize": 0.5}`)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reports/%s/simulate", analysis.DatasetID), payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/reports/%s/simulation", analysis.DatasetID), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.SimulationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.InDelta(t, 0.5, result.LotSize, 1e-9)
}

func TestHandleGetSimulation_NoneRun(t *testing.T) {
	router := newTestRouter()
	analysis := uploadReport(t, router, handlerReport)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/reports/%s/simulation", analysis.DatasetID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
