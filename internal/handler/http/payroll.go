package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Run lifecycle
	CreateRun(w http.ResponseWriter, r *http.Request)
	CalculateRun(w http.ResponseWriter, r *http.Request)
	ApproveRun(w http.ResponseWriter, r *http.Request)
	PayRun(w http.ResponseWriter, r *http.Request)

	// Queries
	GetRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)

	// Exports
	ExportRun(w http.ResponseWriter, r *http.Request)
	ListExports(w http.ResponseWriter, r *http.Request)
	DownloadArtifact(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	exportService  payroll.ExportService
	logger         *slog.Logger
}

func NewPayrollHandler(payrollService payroll.PayrollService, exportService payroll.ExportService, logger *slog.Logger) PayrollHandler {
	return &payrollHandlerImpl{
		payrollService: payrollService,
		exportService:  exportService,
		logger:         logger,
	}
}

// ========== RUN LIFECYCLE ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", result)
}

func (h *payrollHandlerImpl) CalculateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CalcRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.ValidateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ApproveRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.ApproveRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.ApproveRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run approved", result)
}

func (h *payrollHandlerImpl) PayRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.PayRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.PayRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== QUERIES ==========

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := h.payrollService.GetRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	req := payroll.ListRunsRequest{
		WeekEnding: r.URL.Query().Get("week_ending"),
	}

	result, err := h.payrollService.ListRuns(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== EXPORTS ==========

func (h *payrollHandlerImpl) ExportRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.ExportRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.exportService.ExportRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Export generated", result)
}

func (h *payrollHandlerImpl) ListExports(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := h.exportService.ListExports(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

var artifactContentTypes = map[payroll.Artifact]string{
	payroll.ArtifactWH347: "application/pdf",
	payroll.ArtifactXLSX:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	payroll.ArtifactNACHA: "text/plain; charset=us-ascii",
}

func (h *payrollHandlerImpl) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	exportID := chi.URLParam(r, "exportID")
	artifact := payroll.Artifact(chi.URLParam(r, "artifact"))

	contentType, ok := artifactContentTypes[artifact]
	if !ok {
		response.NotFound(w, "Unknown artifact, expected one of wh347, xlsx, nacha")
		return
	}

	file, name, err := h.exportService.OpenArtifact(r.Context(), runID, exportID, artifact)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Error("Failed to stream export artifact",
			"run_id", runID,
			"export_id", exportID,
			"artifact", artifact,
			"error", err,
		)
	}
}
