/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes timesheet ingestion and payroll reporting over HTTP. Handles
  request/response encoding and maps domain errors to status codes.

ENDPOINTS:
  Legacy (paths and bodies are a fixed contract):
    POST   /updatePayRoll              Upload a timesheet CSV (field "file")
    GET    /getPayRoll                 Payroll report as JSON

  Ingestions:
    GET    /api/ingestions             Accepted uploads
    GET    /api/ingestions/{identifier} One upload by exact identifier

  Exports:
    GET    /api/payroll/export.csv     Report as CSV
    GET    /api/payroll/export.xlsx    Report as spreadsheet

  Scenarios:
    GET    /api/scenarios              List demo timesheets
    POST   /api/scenarios/load         Reset and load a demo
    POST   /api/scenarios/reset        Reset all data

ERROR HANDLING:
  - 400: Missing file, malformed row, empty timesheet
  - 404: Unknown ingestion
  - 406: Duplicate upload
  - 413: Upload larger than the configured limit
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo timesheets
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/ingest"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
)

// Response messages of the legacy contract.
const (
	msgFileNotGiven    = "File not given"
	msgAlreadyIngested = "CSV already uploaded previously or no file given"
	msgMalformedRow    = "Malformed CSV row"
	msgEmptyTimesheet  = "Timesheet is empty"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      payroll.Store
	Gatekeeper *ingest.Gatekeeper
	Reports    *report.Service
	Logger     *zap.Logger

	// Warmer, when set, is kicked after every data change.
	Warmer *report.Warmer

	// MaxUploadBytes caps the request body of /updatePayRoll; <= 0 disables.
	MaxUploadBytes int64

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler around store and the report service.
func NewHandler(store payroll.Store, reports *report.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Gatekeeper: ingest.NewGatekeeper(store, logger),
		Reports:    reports,
		Logger:     logger,
	}
}

// =============================================================================
// LEGACY PAYROLL ENDPOINTS
// =============================================================================

// UpdatePayRoll ingests an uploaded timesheet.
func (h *Handler) UpdatePayRoll(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		if r.ContentLength > h.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, msgFileNotGiven, nil)
		return
	}
	defer file.Close()

	_, err = h.Gatekeeper.Admit(r.Context(), &ingest.Upload{Filename: header.Filename, Body: file})
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	h.dataChanged(r.Context())
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) dataChanged(ctx context.Context) {
	h.Reports.Invalidate(ctx)
	if h.Warmer != nil {
		h.Warmer.Kick()
	}
}

func (h *Handler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payroll.ErrMissingFile):
		writeError(w, http.StatusBadRequest, msgFileNotGiven, nil)
	case errors.Is(err, payroll.ErrDuplicateIngestion):
		writeError(w, http.StatusNotAcceptable, msgAlreadyIngested, nil)
	case errors.Is(err, payroll.ErrMalformedRow):
		writeError(w, http.StatusBadRequest, msgMalformedRow, err)
	default:
		h.Logger.Error("timesheet ingestion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to ingest timesheet", err)
	}
}

// GetPayRoll returns the payroll report.
func (h *Handler) GetPayRoll(w http.ResponseWriter, r *http.Request) {
	reports, ok := h.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPayrollResponse(reports))
}

// generate writes the error response itself and reports ok=false on failure.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) ([]payroll.PayrollReport, bool) {
	reports, err := h.Reports.Generate(r.Context())
	if err != nil {
		if errors.Is(err, payroll.ErrEmptyReportSource) {
			writeError(w, http.StatusBadRequest, msgEmptyTimesheet, nil)
			return nil, false
		}
		h.Logger.Error("report generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate report", err)
		return nil, false
	}
	return reports, true
}

// =============================================================================
// INGESTION ENDPOINTS
// =============================================================================

// ListIngestions returns all accepted uploads, oldest first.
func (h *Handler) ListIngestions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListIngestions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ingestions", err)
		return
	}

	dtos := make([]IngestionDTO, len(records))
	for i, rec := range records {
		dtos[i] = toIngestionDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetIngestion returns a single upload by identifier.
func (h *Handler) GetIngestion(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	rec, err := h.Store.GetIngestion(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, payroll.ErrIngestionNotFound) {
			writeError(w, http.StatusNotFound, "Ingestion not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get ingestion", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngestionDTO(*rec))
}

// =============================================================================
// EXPORT ENDPOINTS
// =============================================================================

// ExportCSV returns the report as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv", "payroll.csv", report.WriteCSV)
}

// ExportXLSX returns the report as a spreadsheet attachment.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "payroll.xlsx", report.WriteXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, contentType, filename string,
	render func(io.Writer, []payroll.PayrollReport) error) {
	reports, ok := h.generate(w, r)
	if !ok {
		return
	}

	// Render fully before writing headers so failures still get a JSON error.
	var buf bytes.Buffer
	if err := render(&buf, reports); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export report", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.dataChanged(r.Context())

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
