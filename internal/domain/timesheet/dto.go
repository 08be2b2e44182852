package timesheet

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// maxWeeklyHours bounds a single entry; a week has 168 hours
var maxWeeklyHours = decimal.NewFromInt(168)

// ========== ENTRY DTOs ==========

type AppendEntryRequest struct {
	EmployeeID   string          `json:"employee_id" validate:"required,max=64"`
	WeekEnding   string          `json:"week_ending" validate:"required,date"`
	HoursRegular decimal.Decimal `json:"hours_regular"`
	HoursOT      decimal.Decimal `json:"hours_ot"`
	ProjectCode  string          `json:"project_code,omitempty" validate:"omitempty,max=50"`
}

func (r *AppendEntryRequest) Validate() error {
	errs := validator.Collect(r)
	errs = append(errs, validateHours("", r.HoursRegular, r.HoursOT)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHours(prefix string, regular, ot decimal.Decimal) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if regular.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: prefix + "hours_regular", Message: "must be non-negative"})
	}
	if ot.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: prefix + "hours_ot", Message: "must be non-negative"})
	}
	if regular.Add(ot).GreaterThan(maxWeeklyHours) {
		errs = append(errs, validator.ValidationError{Field: prefix + "hours_ot", Message: "regular and overtime hours exceed 168"})
	}

	return errs
}

type EntryResponse struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employee_id"`
	WeekEnding   string          `json:"week_ending"`
	HoursRegular decimal.Decimal `json:"hours_regular"`
	HoursOT      decimal.Decimal `json:"hours_ot"`
	ProjectCode  string          `json:"project_code,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ListEntriesRequest struct {
	WeekEnding string `validate:"required,date" json:"week_ending"`
}

func (r *ListEntriesRequest) Validate() error {
	errs := validator.Collect(r)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== IMPORT DTOs ==========

// ImportRow - One CSV line of a bulk timesheet import
type ImportRow struct {
	EmployeeID   string `csv:"employee_id" json:"employee_id" validate:"required,max=64"`
	WeekEnding   string `csv:"week_ending" json:"week_ending" validate:"required,date"`
	HoursRegular string `csv:"hours_regular" json:"hours_regular" validate:"required"`
	HoursOT      string `csv:"hours_ot" json:"hours_ot"`
	ProjectCode  string `csv:"project_code" json:"project_code" validate:"omitempty,max=50"`
}

// Parse validates the row and converts it into an append request.
// Line numbers count the header as line 1.
func (r ImportRow) Parse(line int) (AppendEntryRequest, validator.ValidationErrors) {
	prefix := fmt.Sprintf("line %d: ", line)

	var errs validator.ValidationErrors
	for _, e := range validator.Collect(&r) {
		errs = append(errs, validator.ValidationError{Field: prefix + e.Field, Message: e.Message})
	}

	regular, err := decimal.NewFromString(r.HoursRegular)
	if err != nil && r.HoursRegular != "" {
		errs = append(errs, validator.ValidationError{Field: prefix + "hours_regular", Message: "must be a number"})
	}
	ot := decimal.Zero
	if r.HoursOT != "" {
		ot, err = decimal.NewFromString(r.HoursOT)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: prefix + "hours_ot", Message: "must be a number"})
		}
	}
	errs = append(errs, validateHours(prefix, regular, ot)...)

	return AppendEntryRequest{
		EmployeeID:   r.EmployeeID,
		WeekEnding:   r.WeekEnding,
		HoursRegular: regular,
		HoursOT:      ot,
		ProjectCode:  r.ProjectCode,
	}, errs
}

type ImportResponse struct {
	Imported int `json:"imported"`
}
