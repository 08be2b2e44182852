package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"run not found", fmt.Errorf("failed to get run: %w", payroll.ErrRunNotFound), http.StatusNotFound, CodeNotFound, "Payroll run not found"},
		{"employee not found", employee.ErrEmployeeNotFound, http.StatusNotFound, CodeNotFound, "Employee not found"},
		{"export not found", payroll.ErrExportNotFound, http.StatusNotFound, CodeNotFound, "Export not found"},
		{"pay before approval", fmt.Errorf("pay: %w", payroll.ErrRunNotApproved), http.StatusBadRequest, CodeBusinessRule, "Run must be approved before payment"},
		{"approve before validation", payroll.ErrRunNotValidated, http.StatusBadRequest, CodeBusinessRule, payroll.ErrRunNotValidated.Error()},
		{"invalid transition", payroll.ErrInvalidTransition, http.StatusBadRequest, CodeBusinessRule, payroll.ErrInvalidTransition.Error()},
		{"provisional", payroll.ErrProvisionalNotAcknowledged, http.StatusBadRequest, CodeBusinessRule, payroll.ErrProvisionalNotAcknowledged.Error()},
		{"not exportable", payroll.ErrRunNotExportable, http.StatusBadRequest, CodeBusinessRule, payroll.ErrRunNotExportable.Error()},
		{"duplicate week", payroll.ErrRunAlreadyExists, http.StatusConflict, CodeConflict, "A payroll run already exists for this week"},
		{"stale version", payroll.ErrConcurrentModification, http.StatusConflict, CodeConflict, "Payroll run was modified concurrently, retry the request"},
		{"duplicate employee", employee.ErrEmployeeIDExists, http.StatusConflict, CodeConflict, "Employee ID already exists"},
		{"export failure", fmt.Errorf("%w: disk full", payroll.ErrExportFailed), http.StatusInternalServerError, CodeInternal, "Export failed, no artifacts were kept"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestHandleError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("create: %w", validator.ValidationErrors{
		{Field: "week_ending", Message: "is required"},
	})

	HandleError(rec, err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeValidation, body.Error.Code)
	assert.Equal(t, map[string]string{"week_ending": "is required"}, body.Error.Details)
}
