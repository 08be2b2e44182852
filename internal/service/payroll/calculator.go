package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

var otMultiplier = decimal.RequireFromString("1.5")

// Calculator turns one employee's weekly hours into a pay breakdown.
// Apart from the withholding call it is a pure function of its input.
type Calculator struct {
	provider tax.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCalculator builds a calculator. A nil provider makes every
// withholding degraded.
func NewCalculator(provider tax.Provider, timeout time.Duration, logger *slog.Logger) *Calculator {
	return &Calculator{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Calculate applies the pay formula. Amounts are rounded half-up to cents at
// each step; fringe is excluded from taxable wages and added after taxes.
// An error is returned only when ctx itself is done.
func (c *Calculator) Calculate(ctx context.Context, in payroll.CalcInput) (payroll.Breakdown, error) {
	otRate := in.BaseRate.Mul(otMultiplier)
	grossRegular := in.HoursRegular.Mul(in.BaseRate)
	grossOT := in.HoursOT.Mul(otRate)
	gross := grossRegular.Add(grossOT).Round(2)

	d := in.Deductions
	pretax := decimal.Sum(d.PretaxMedical, d.HSA, gross.Mul(d.Pct401k)).Round(2)
	taxable := decimal.Max(decimal.Zero, gross.Sub(pretax).Round(2))

	result, err := c.withhold(ctx, tax.Request{
		Taxable:  taxable,
		YTD:      in.YTD,
		Employee: in.Employee,
		Work:     in.Work,
	})
	if err != nil {
		return payroll.Breakdown{}, err
	}

	posttax := d.Garnishment.Add(d.MiscPosttax).Round(2)

	fringe := decimal.Zero
	if in.DavisBacon {
		fringe = in.HoursRegular.Add(in.HoursOT).Mul(in.FringeRate).Round(2)
	}

	totalTaxes := result.Total()
	net := gross.Add(fringe).Sub(totalTaxes).Sub(posttax).Round(2)

	return payroll.Breakdown{
		OTRate:         otRate,
		GrossRegular:   grossRegular.Round(2),
		GrossOT:        grossOT.Round(2),
		Gross:          gross,
		Pretax:         pretax,
		Taxable:        taxable,
		Taxes:          result.Withholding,
		TaxSource:      result.Source,
		DegradedReason: result.Reason,
		TotalTaxes:     totalTaxes,
		Posttax:        posttax,
		Fringe:         fringe,
		Net:            net,
	}, nil
}

// withhold calls the provider under a timeout and falls back to the flat-rate
// placeholder when it fails or answers with something unusable.
func (c *Calculator) withhold(ctx context.Context, req tax.Request) (tax.Result, error) {
	if c.provider == nil {
		return c.degrade(req, "no tax provider configured"), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	w, err := c.provider.Calculate(callCtx, req)
	if err == nil {
		err = w.Validate()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tax.Result{}, fmt.Errorf("tax withholding cancelled: %w", ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: timed out after %s", tax.ErrProviderUnavailable, c.timeout)
		}
		return c.degrade(req, err.Error()), nil
	}

	metrics.TaxWithholdingTotal.WithLabelValues(string(tax.SourceComputed)).Inc()
	return tax.Result{Withholding: w.Rounded(), Source: tax.SourceComputed}, nil
}

func (c *Calculator) degrade(req tax.Request, reason string) tax.Result {
	metrics.TaxWithholdingTotal.WithLabelValues(string(tax.SourceDegraded)).Inc()
	c.logger.Warn("Tax withholding degraded to flat-rate fallback",
		"employee_id", req.Employee.ID,
		"week_ending", req.Work.WeekEnding.Format(time.DateOnly),
		"taxable", req.Taxable.StringFixed(2),
		"reason", reason,
	)
	return tax.Result{
		Withholding: tax.Fallback(req.Taxable),
		Source:      tax.SourceDegraded,
		Reason:      reason,
	}
}
