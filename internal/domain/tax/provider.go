package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider computes statutory withholding for one employee and week.
// Implementations return ErrProviderUnavailable or ErrMalformedResult (wrapped) on failure.
type Provider interface {
	Calculate(ctx context.Context, req Request) (Withholding, error)
}

var (
	fallbackFICARate     = decimal.RequireFromString("0.062")
	fallbackMedicareRate = decimal.RequireFromString("0.0145")
	fallbackFederalRate  = decimal.RequireFromString("0.10")
)

// Fallback is the flat-rate placeholder used when no provider result is available.
// It is not a real withholding table and its results must be flagged as degraded.
func Fallback(taxable decimal.Decimal) Withholding {
	return Withholding{
		Federal:  taxable.Mul(fallbackFederalRate).Round(2),
		State:    decimal.Zero,
		Local:    decimal.Zero,
		FICA:     taxable.Mul(fallbackFICARate).Round(2),
		Medicare: taxable.Mul(fallbackMedicareRate).Round(2),
		FUTA:     decimal.Zero,
		SUTA:     decimal.Zero,
	}
}
