package employee

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PAYLOADS ==========

type DeductionsPayload struct {
	PretaxMedical decimal.Decimal `json:"pretax_medical"`
	HSA           decimal.Decimal `json:"hsa"`
	Pct401k       decimal.Decimal `json:"pct_401k"`
	Garnishment   decimal.Decimal `json:"garnishment"`
	MiscPosttax   decimal.Decimal `json:"misc_posttax"`
}

func (p DeductionsPayload) validate(prefix string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"pretax_medical", p.PretaxMedical},
		{"hsa", p.HSA},
		{"garnishment", p.Garnishment},
		{"misc_posttax", p.MiscPosttax},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: prefix + a.field, Message: "must be non-negative"})
		}
	}
	if p.Pct401k.IsNegative() || p.Pct401k.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, validator.ValidationError{Field: prefix + "pct_401k", Message: "must be a fraction between 0 and 1"})
	}

	return errs
}

type BankingPayload struct {
	RoutingNumber string `json:"routing_number" validate:"required,aba_routing"`
	AccountNumber string `json:"account_number" validate:"required,min=4,max=17,alphanum"`
	AccountType   string `json:"account_type,omitempty" validate:"omitempty,oneof=checking savings"`
}

// ========== REQUEST DTOs ==========

type CreateEmployeeRequest struct {
	ID             string            `json:"id,omitempty" validate:"omitempty,max=64"`
	Name           string            `json:"name" validate:"required,max=200"`
	Classification string            `json:"classification" validate:"required,max=100"`
	BaseRate       decimal.Decimal   `json:"base_rate"`
	FringeRate     decimal.Decimal   `json:"fringe_rate"`
	DavisBacon     bool              `json:"davis_bacon"`
	Deductions     DeductionsPayload `json:"deductions"`
	Banking        BankingPayload    `json:"banking"`
}

func (r *CreateEmployeeRequest) Validate() error {
	errs := validator.Collect(r)

	if strings.ContainsAny(r.ID, "/ \t") {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "must not contain slashes or whitespace"})
	}
	if !r.BaseRate.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "base_rate", Message: "must be greater than 0"})
	}
	if r.FringeRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "fringe_rate", Message: "must be non-negative"})
	}
	errs = append(errs, r.Deductions.validate("deductions.")...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateEmployeeRequest struct {
	ID             string             `json:"-"`
	Name           *string            `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Classification *string            `json:"classification,omitempty" validate:"omitempty,min=1,max=100"`
	BaseRate       *decimal.Decimal   `json:"base_rate,omitempty"`
	FringeRate     *decimal.Decimal   `json:"fringe_rate,omitempty"`
	DavisBacon     *bool              `json:"davis_bacon,omitempty"`
	Deductions     *DeductionsPayload `json:"deductions,omitempty"`
	Banking        *BankingPayload    `json:"banking,omitempty"`
}

func (r *UpdateEmployeeRequest) Validate() error {
	errs := validator.Collect(r)

	if r.BaseRate != nil && !r.BaseRate.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "base_rate", Message: "must be greater than 0"})
	}
	if r.FringeRate != nil && r.FringeRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "fringe_rate", Message: "must be non-negative"})
	}
	if r.Deductions != nil {
		errs = append(errs, r.Deductions.validate("deductions.")...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESPONSE DTOs ==========

type BankingResponse struct {
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
}

type EmployeeResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Classification string            `json:"classification"`
	BaseRate       decimal.Decimal   `json:"base_rate"`
	FringeRate     decimal.Decimal   `json:"fringe_rate"`
	DavisBacon     bool              `json:"davis_bacon"`
	Deductions     DeductionsPayload `json:"deductions"`
	Banking        BankingResponse   `json:"banking"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MaskAccountNumber keeps only the last four characters visible
func MaskAccountNumber(account string) string {
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}
