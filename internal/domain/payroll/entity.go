package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// PayrollRun - One weekly pay run moving forward through RunStatus
type PayrollRun struct {
	ID          string
	WeekEnding  time.Time
	Status      RunStatus
	ApprovedBy  *string
	ApprovedAt  *time.Time
	PaidAt      *time.Time
	Provisional bool // at least one item used degraded withholding
	Correction  bool
	Warnings    []string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RunItem - Calculated pay for one employee in a run.
// Exports are built from these fields alone, so banking is captured at validation time.
type RunItem struct {
	ID             string
	RunID          string
	EmployeeID     string
	EmployeeName   string
	Classification string
	DavisBacon     bool
	HoursRegular   decimal.Decimal
	HoursOT        decimal.Decimal
	BaseRate       decimal.Decimal
	FringeRate     decimal.Decimal
	ProjectCodes   []string
	Breakdown      Breakdown
	Banking        employee.Banking
	CreatedAt      time.Time
}

func (i RunItem) GrossPay() decimal.Decimal   { return i.Breakdown.Gross }
func (i RunItem) FringePay() decimal.Decimal  { return i.Breakdown.Fringe }
func (i RunItem) TotalTaxes() decimal.Decimal { return i.Breakdown.TotalTaxes }
func (i RunItem) Deductions() decimal.Decimal { return i.Breakdown.Posttax }
func (i RunItem) NetPay() decimal.Decimal     { return i.Breakdown.Net }

// Breakdown - Full audit trail of one pay calculation
type Breakdown struct {
	OTRate         decimal.Decimal `json:"ot_rate"`
	GrossRegular   decimal.Decimal `json:"gross_regular"`
	GrossOT        decimal.Decimal `json:"gross_ot"`
	Gross          decimal.Decimal `json:"gross"`
	Pretax         decimal.Decimal `json:"pretax"`
	Taxable        decimal.Decimal `json:"taxable"`
	Taxes          tax.Withholding `json:"taxes"`
	TaxSource      tax.Source      `json:"tax_source"`
	DegradedReason string          `json:"degraded_reason,omitempty"`
	TotalTaxes     decimal.Decimal `json:"total_taxes"`
	Posttax        decimal.Decimal `json:"posttax"`
	Fringe         decimal.Decimal `json:"fringe"`
	Net            decimal.Decimal `json:"net"`
}

// TaxResult returns the withholding outcome recorded in the breakdown
func (b Breakdown) TaxResult() tax.Result {
	return tax.Result{Withholding: b.Taxes, Source: b.TaxSource, Reason: b.DegradedReason}
}

// CalcInput - Everything the pay calculator needs for one employee and week
type CalcInput struct {
	BaseRate     decimal.Decimal
	FringeRate   decimal.Decimal
	DavisBacon   bool
	HoursRegular decimal.Decimal
	HoursOT      decimal.Decimal
	Deductions   employee.Deductions
	Employee     tax.EmployeeInfo
	Work         tax.WorkInfo
	YTD          tax.YTD
}

// ExportRecord - One generated set of run artifacts
type ExportRecord struct {
	ID        string
	RunID     string
	Version   int
	WH347Path string
	XLSXPath  string
	NACHAPath string
	CreatedAt time.Time
}

// Artifact names a file inside an export
type Artifact string

const (
	ArtifactWH347 Artifact = "wh347"
	ArtifactXLSX  Artifact = "xlsx"
	ArtifactNACHA Artifact = "nacha"
)

// Path returns the stored path of the artifact, or false for an unknown name
func (e ExportRecord) Path(a Artifact) (string, bool) {
	switch a {
	case ArtifactWH347:
		return e.WH347Path, true
	case ArtifactXLSX:
		return e.XLSXPath, true
	case ArtifactNACHA:
		return e.NACHAPath, true
	}
	return "", false
}

// RunFilter narrows ListRuns
type RunFilter struct {
	WeekEnding *time.Time
}
