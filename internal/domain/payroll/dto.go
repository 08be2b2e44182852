package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN REQUEST DTOs ==========

type CreateRunRequest struct {
	WeekEnding string `json:"week_ending" validate:"required,date"`
	Correction bool   `json:"correction,omitempty"`
}

func (r *CreateRunRequest) Validate() error {
	if errs := validator.Collect(r); len(errs) > 0 {
		return errs
	}
	return nil
}

type CalcRunRequest struct {
	RunID string `json:"run_id" validate:"required"`
}

func (r *CalcRunRequest) Validate() error {
	if errs := validator.Collect(r); len(errs) > 0 {
		return errs
	}
	return nil
}

type ApproveRunRequest struct {
	RunID                  string `json:"run_id" validate:"required"`
	Approver               string `json:"approver" validate:"required,max=100"`
	AcknowledgeProvisional bool   `json:"acknowledge_provisional,omitempty"`
}

func (r *ApproveRunRequest) Validate() error {
	errs := validator.Collect(r)
	if r.Approver != "" && validator.IsEmpty(r.Approver) {
		errs = append(errs, validator.ValidationError{Field: "approver", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayRunRequest struct {
	RunID string `json:"run_id" validate:"required"`
}

func (r *PayRunRequest) Validate() error {
	if errs := validator.Collect(r); len(errs) > 0 {
		return errs
	}
	return nil
}

type ListRunsRequest struct {
	WeekEnding string `json:"week_ending" validate:"omitempty,date"`
}

func (r *ListRunsRequest) Validate() error {
	if errs := validator.Collect(r); len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RUN RESPONSE DTOs ==========

type RunResponse struct {
	ID          string     `json:"id"`
	WeekEnding  string     `json:"week_ending"`
	Status      RunStatus  `json:"status"`
	ApprovedBy  *string    `json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	Provisional bool       `json:"provisional"`
	Correction  bool       `json:"correction"`
	Warnings    []string   `json:"warnings"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RunItemResponse struct {
	ID             string          `json:"id"`
	RunID          string          `json:"run_id"`
	EmployeeID     string          `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	Classification string          `json:"classification"`
	DavisBacon     bool            `json:"davis_bacon"`
	HoursRegular   decimal.Decimal `json:"hours_regular"`
	HoursOT        decimal.Decimal `json:"hours_ot"`
	BaseRate       decimal.Decimal `json:"base_rate"`
	FringeRate     decimal.Decimal `json:"fringe_rate"`
	GrossPay       decimal.Decimal `json:"gross_pay"`
	FringePay      decimal.Decimal `json:"fringe_pay"`
	TotalTaxes     decimal.Decimal `json:"total_taxes"`
	Deductions     decimal.Decimal `json:"deductions"`
	NetPay         decimal.Decimal `json:"net_pay"`
	TaxSource      tax.Source      `json:"tax_source"`
	ProjectCodes   []string        `json:"project_codes"`
	AccountNumber  string          `json:"account_number"`
	Breakdown      Breakdown       `json:"breakdown"`
}

type RunDetailResponse struct {
	Run   RunResponse       `json:"run"`
	Items []RunItemResponse `json:"items"`
}

type PayRunResponse struct {
	OK  bool        `json:"ok"`
	Run RunResponse `json:"run"`
}

// ========== EXPORT DTOs ==========

type ExportRunRequest struct {
	RunID string `json:"run_id" validate:"required"`
}

func (r *ExportRunRequest) Validate() error {
	if errs := validator.Collect(r); len(errs) > 0 {
		return errs
	}
	return nil
}

type ExportResponse struct {
	ExportID  string    `json:"export_id"`
	RunID     string    `json:"run_id"`
	Version   int       `json:"version"`
	WH347Path string    `json:"wh347_path"`
	XLSXPath  string    `json:"xlsx_path"`
	NACHAPath string    `json:"nacha_path"`
	CreatedAt time.Time `json:"created_at"`
}

// ========== MAPPERS ==========

func NewRunResponse(run PayrollRun) RunResponse {
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return RunResponse{
		ID:          run.ID,
		WeekEnding:  run.WeekEnding.Format(validator.DateLayout),
		Status:      run.Status,
		ApprovedBy:  run.ApprovedBy,
		ApprovedAt:  run.ApprovedAt,
		PaidAt:      run.PaidAt,
		Provisional: run.Provisional,
		Correction:  run.Correction,
		Warnings:    warnings,
		Version:     run.Version,
		CreatedAt:   run.CreatedAt,
		UpdatedAt:   run.UpdatedAt,
	}
}

func NewRunItemResponse(item RunItem) RunItemResponse {
	codes := item.ProjectCodes
	if codes == nil {
		codes = []string{}
	}
	return RunItemResponse{
		ID:             item.ID,
		RunID:          item.RunID,
		EmployeeID:     item.EmployeeID,
		EmployeeName:   item.EmployeeName,
		Classification: item.Classification,
		DavisBacon:     item.DavisBacon,
		HoursRegular:   item.HoursRegular,
		HoursOT:        item.HoursOT,
		BaseRate:       item.BaseRate,
		FringeRate:     item.FringeRate,
		GrossPay:       item.GrossPay(),
		FringePay:      item.FringePay(),
		TotalTaxes:     item.TotalTaxes(),
		Deductions:     item.Deductions(),
		NetPay:         item.NetPay(),
		TaxSource:      item.Breakdown.TaxSource,
		ProjectCodes:   codes,
		AccountNumber:  employee.MaskAccountNumber(item.Banking.AccountNumber),
		Breakdown:      item.Breakdown,
	}
}

func NewRunDetailResponse(run PayrollRun, items []RunItem) RunDetailResponse {
	resp := RunDetailResponse{
		Run:   NewRunResponse(run),
		Items: make([]RunItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, NewRunItemResponse(item))
	}
	return resp
}

func NewExportResponse(rec ExportRecord) ExportResponse {
	return ExportResponse{
		ExportID:  rec.ID,
		RunID:     rec.RunID,
		Version:   rec.Version,
		WH347Path: rec.WH347Path,
		XLSXPath:  rec.XLSXPath,
		NACHAPath: rec.NACHAPath,
		CreatedAt: rec.CreatedAt,
	}
}
