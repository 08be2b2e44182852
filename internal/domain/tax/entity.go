package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Withholding - Statutory taxes for one pay period
type Withholding struct {
	Federal  decimal.Decimal `json:"federal"`
	State    decimal.Decimal `json:"state"`
	Local    decimal.Decimal `json:"local"`
	FICA     decimal.Decimal `json:"fica"`
	Medicare decimal.Decimal `json:"medicare"`
	FUTA     decimal.Decimal `json:"futa"`
	SUTA     decimal.Decimal `json:"suta"`
}

// Total sums every component, rounded to cents
func (w Withholding) Total() decimal.Decimal {
	return decimal.Sum(w.Federal, w.State, w.Local, w.FICA, w.Medicare, w.FUTA, w.SUTA).Round(2)
}

// Rounded returns a copy with each component rounded to cents
func (w Withholding) Rounded() Withholding {
	return Withholding{
		Federal:  w.Federal.Round(2),
		State:    w.State.Round(2),
		Local:    w.Local.Round(2),
		FICA:     w.FICA.Round(2),
		Medicare: w.Medicare.Round(2),
		FUTA:     w.FUTA.Round(2),
		SUTA:     w.SUTA.Round(2),
	}
}

// Source records whether withholding came from the provider or the fallback
type Source string

const (
	SourceComputed Source = "computed"
	SourceDegraded Source = "degraded"
)

// Result - Withholding plus where it came from
type Result struct {
	Withholding
	Source Source
	// Reason is set when Source is SourceDegraded
	Reason string
}

func (r Result) Degraded() bool {
	return r.Source == SourceDegraded
}

// YTD - Year-to-date figures from paid runs before the current week
type YTD struct {
	Gross   decimal.Decimal `json:"gross"`
	Taxable decimal.Decimal `json:"taxable"`
	Taxes   decimal.Decimal `json:"taxes"`
}

type EmployeeInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	DavisBacon     bool   `json:"davis_bacon"`
}

type WorkInfo struct {
	WeekEnding   time.Time       `json:"week_ending"`
	HoursRegular decimal.Decimal `json:"hours_regular"`
	HoursOT      decimal.Decimal `json:"hours_ot"`
	ProjectCodes []string        `json:"project_codes"`
}

// Request - Input passed to a withholding provider
type Request struct {
	Taxable  decimal.Decimal `json:"taxable"`
	YTD      YTD             `json:"ytd"`
	Employee EmployeeInfo    `json:"employee"`
	Work     WorkInfo        `json:"work"`
}

// Validate rejects negative components
func (w Withholding) Validate() error {
	components := map[string]decimal.Decimal{
		"federal": w.Federal, "state": w.State, "local": w.Local,
		"fica": w.FICA, "medicare": w.Medicare, "futa": w.FUTA, "suta": w.SUTA,
	}
	for name, v := range components {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrMalformedResult, name)
		}
	}
	return nil
}
