package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	runSheet     = "Run"
)

var summaryHeaders = []string{
	"Employee ID", "Name", "Classification", "Davis-Bacon", "Project Codes",
	"Hours Regular", "Hours OT", "Base Rate", "OT Rate", "Fringe Rate",
	"Gross Regular", "Gross OT", "Gross", "Pretax", "Taxable",
	"Federal", "State", "Local", "FICA", "Medicare", "FUTA", "SUTA",
	"Total Taxes", "Tax Source", "Posttax", "Fringe", "Net",
}

// renderSummary writes one row per item with the full breakdown, then a totals row
func renderSummary(w io.Writer, doc document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := setRow(f, summarySheet, 1, toAny(summaryHeaders)); err != nil {
		return err
	}

	for i, item := range doc.Items {
		if err := setRow(f, summarySheet, i+2, summaryRow(item)); err != nil {
			return err
		}
	}

	totalRow := len(doc.Items) + 2
	if err := setRow(f, summarySheet, totalRow, totalsRow(doc)); err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(summaryHeaders))
	if err := f.SetCellStyle(summarySheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	totalStart, _ := excelize.CoordinatesToCellName(1, totalRow)
	totalEnd, _ := excelize.CoordinatesToCellName(len(summaryHeaders), totalRow)
	if err := f.SetCellStyle(summarySheet, totalStart, totalEnd, bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}
	if err := f.SetPanes(summarySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return fmt.Errorf("failed to create run sheet: %w", err)
	}
	for i, kv := range runDetails(doc) {
		if err := setRow(f, runSheet, i+1, kv); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func summaryRow(item payroll.RunItem) []any {
	b := item.Breakdown
	return []any{
		item.EmployeeID,
		item.EmployeeName,
		item.Classification,
		item.DavisBacon,
		projectCodes(item),
		num(item.HoursRegular),
		num(item.HoursOT),
		num(item.BaseRate),
		num(b.OTRate),
		num(item.FringeRate),
		num(b.GrossRegular),
		num(b.GrossOT),
		num(b.Gross),
		num(b.Pretax),
		num(b.Taxable),
		num(b.Taxes.Federal),
		num(b.Taxes.State),
		num(b.Taxes.Local),
		num(b.Taxes.FICA),
		num(b.Taxes.Medicare),
		num(b.Taxes.FUTA),
		num(b.Taxes.SUTA),
		num(b.TotalTaxes),
		string(b.TaxSource),
		num(b.Posttax),
		num(b.Fringe),
		num(b.Net),
	}
}

func totalsRow(doc document) []any {
	t := doc.totals()
	row := make([]any, len(summaryHeaders))
	row[0] = "Totals"
	row[5] = num(t.HoursRegular)
	row[6] = num(t.HoursOT)
	row[12] = num(t.Gross)
	row[22] = num(t.Taxes)
	row[24] = num(t.Deductions)
	row[25] = num(t.Fringe)
	row[26] = num(t.Net)
	return row
}

func runDetails(doc document) [][]any {
	rows := [][]any{
		{"Run ID", doc.Run.ID},
		{"Week Ending", doc.Run.WeekEnding.Format(validator.DateLayout)},
		{"Status", string(doc.Run.Status)},
		{"Provisional", doc.Run.Provisional},
		{"Correction", doc.Run.Correction},
		{"Employees", len(doc.Items)},
		{"Generated At", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if len(doc.Run.Warnings) > 0 {
		rows = append(rows, []any{"Warnings", strings.Join(doc.Run.Warnings, "; ")})
	}
	return rows
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// num keeps cents exact for the usual magnitudes while letting Excel sum the column
func num(d decimal.Decimal) float64 {
	return d.Round(4).InexactFloat64()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
