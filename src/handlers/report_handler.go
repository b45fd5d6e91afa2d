// src/handlers/report_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/lotlens/src/config"
	"github.com/username/lotlens/src/logger"
	"github.com/username/lotlens/src/security/validation"
	"github.com/username/lotlens/src/services"
	"github.com/username/lotlens/src/simulation"
	"github.com/username/lotlens/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: service,
	}
}

// HandleUpload accepts one HTML strategy tester report as multipart form
// data under the "file" field and returns the parsed analysis.
func (h *ReportHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("failed to process upload or file too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "failed to retrieve file from request, ensure the 'file' field is used", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		ctxLogger.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("file too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		ctxLogger.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		ctxLogger.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctxLogger.Info("Processing report upload", "filename", fileHeader.Filename, "detectedType", detectedContentType)

	analysis, err := h.reportService.ProcessUpload(file)
	if err != nil {
		ctxLogger.Error("Report processing failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "failed to process report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// HandleGetReport returns the stored analysis for a dataset.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "id")
	analysis, err := h.reportService.GetAnalysis(datasetID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// HandleGetEvents returns the canonical event sequence for a dataset.
func (h *ReportHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "id")
	events, err := h.reportService.GetEvents(datasetID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type simulateRequest struct {
	LotSize float64 `json:"lotSize"`
}

// HandleSimulate reruns a stored dataset under a counterfactual lot size.
// The mixed-lot precondition failure maps to 409 so the UI can show a
// specific "unavailable" state instead of treating it as missing data.
func (h *ReportHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	datasetID := chi.URLParam(r, "id")

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body, expected {\"lotSize\": number}", http.StatusBadRequest)
		return
	}

	result, err := h.reportService.Simulate(datasetID, req.LotSize)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDatasetNotFound):
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, simulation.ErrMixedLotSizes):
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, simulation.ErrNoTrades):
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, simulation.ErrInvalidLot):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			ctxLogger.Error("Simulation failed", "datasetID", datasetID, "error", err)
			utils.SendJSONError(w, "simulation failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetSimulation returns the latest simulation stored for a dataset.
func (h *ReportHandler) HandleGetSimulation(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "id")
	result, err := h.reportService.GetLastSimulation(datasetID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}
