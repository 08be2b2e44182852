package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Not found
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, payroll.ErrExportNotFound):
		NotFound(w, "Export not found")

	// Run lifecycle rules; the message is part of the contract
	case errors.Is(err, payroll.ErrRunNotApproved):
		BusinessRule(w, payroll.ErrRunNotApproved.Error())
	case errors.Is(err, payroll.ErrRunNotValidated):
		BusinessRule(w, payroll.ErrRunNotValidated.Error())
	case errors.Is(err, payroll.ErrInvalidTransition):
		BusinessRule(w, payroll.ErrInvalidTransition.Error())
	case errors.Is(err, payroll.ErrProvisionalNotAcknowledged):
		BusinessRule(w, payroll.ErrProvisionalNotAcknowledged.Error())
	case errors.Is(err, payroll.ErrRunNotExportable):
		BusinessRule(w, payroll.ErrRunNotExportable.Error())

	// Conflicts
	case errors.Is(err, payroll.ErrRunAlreadyExists):
		Conflict(w, "A payroll run already exists for this week")
	case errors.Is(err, payroll.ErrConcurrentModification):
		Conflict(w, "Payroll run was modified concurrently, retry the request")
	case errors.Is(err, employee.ErrEmployeeIDExists):
		Conflict(w, "Employee ID already exists")

	case errors.Is(err, payroll.ErrExportFailed):
		slog.Error("Export failed", "error", err)
		InternalServerError(w, "Export failed, no artifacts were kept")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
