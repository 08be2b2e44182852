package export

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// Company is the contractor printed on certified payroll
type Company struct {
	Name    string
	Address string
}

// document is the snapshot every artifact of one export is rendered from
type document struct {
	Run         payroll.PayrollRun
	Items       []payroll.RunItem
	Company     Company
	GeneratedAt time.Time
}

type totals struct {
	HoursRegular decimal.Decimal
	HoursOT      decimal.Decimal
	Gross        decimal.Decimal
	Fringe       decimal.Decimal
	Taxes        decimal.Decimal
	Deductions   decimal.Decimal
	Net          decimal.Decimal
}

func (d document) totals() totals {
	t := totals{
		HoursRegular: decimal.Zero,
		HoursOT:      decimal.Zero,
		Gross:        decimal.Zero,
		Fringe:       decimal.Zero,
		Taxes:        decimal.Zero,
		Deductions:   decimal.Zero,
		Net:          decimal.Zero,
	}
	for _, item := range d.Items {
		t.HoursRegular = t.HoursRegular.Add(item.HoursRegular)
		t.HoursOT = t.HoursOT.Add(item.HoursOT)
		t.Gross = t.Gross.Add(item.GrossPay())
		t.Fringe = t.Fringe.Add(item.FringePay())
		t.Taxes = t.Taxes.Add(item.TotalTaxes())
		t.Deductions = t.Deductions.Add(item.Deductions())
		t.Net = t.Net.Add(item.NetPay())
	}
	return t
}

func projectCodes(item payroll.RunItem) string {
	return strings.Join(item.ProjectCodes, ", ")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
