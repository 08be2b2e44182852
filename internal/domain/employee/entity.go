package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee - Compensation and banking configuration used by payroll runs
type Employee struct {
	ID             string
	Name           string
	Classification string
	BaseRate       decimal.Decimal
	FringeRate     decimal.Decimal
	DavisBacon     bool
	Deductions     Deductions
	Banking        Banking
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Deductions - Per pay period deduction settings
type Deductions struct {
	PretaxMedical decimal.Decimal
	HSA           decimal.Decimal
	Pct401k       decimal.Decimal // fraction of gross, 0.05 = 5%
	Garnishment   decimal.Decimal
	MiscPosttax   decimal.Decimal
}

// Banking - Direct deposit destination
type Banking struct {
	RoutingNumber string
	AccountNumber string
	AccountType   AccountType
}

type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)
