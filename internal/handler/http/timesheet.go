package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
)

// maxImportSize caps a CSV upload at 10 MB
const maxImportSize = 10 << 20

type TimesheetHandler interface {
	AppendEntry(w http.ResponseWriter, r *http.Request)
	ImportCSV(w http.ResponseWriter, r *http.Request)
	ListEntries(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	timesheetService timesheet.TimesheetService
}

func NewTimesheetHandler(timesheetService timesheet.TimesheetService) TimesheetHandler {
	return &timesheetHandlerImpl{timesheetService: timesheetService}
}

func (h *timesheetHandlerImpl) AppendEntry(w http.ResponseWriter, r *http.Request) {
	var req timesheet.AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.timesheetService.AppendEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Timesheet entry recorded", result)
}

// ImportCSV reads the raw request body as a CSV document with a header row
func (h *timesheetHandlerImpl) ImportCSV(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	defer body.Close()

	result, err := h.timesheetService.ImportCSV(r.Context(), body)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Timesheet entries imported", result)
}

func (h *timesheetHandlerImpl) ListEntries(w http.ResponseWriter, r *http.Request) {
	req := timesheet.ListEntriesRequest{
		WeekEnding: r.URL.Query().Get("week_ending"),
	}

	result, err := h.timesheetService.ListEntries(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
