package export

import (
	"fmt"
	"io"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/jung-kurt/gofpdf"
)

const complianceStatement = "The undersigned certifies that the payroll above is correct and complete, " +
	"that the wage rates paid are not less than the applicable prevailing wage rates, " +
	"and that fringe benefits were paid to each Davis-Bacon laborer or mechanic as listed."

type wh347Column struct {
	title string
	width float64
	align string
}

var wh347Columns = []wh347Column{
	{"Name", 42, "L"},
	{"Classification", 30, "L"},
	{"Projects", 30, "L"},
	{"Reg Hrs", 15, "R"},
	{"OT Hrs", 15, "R"},
	{"Rate", 16, "R"},
	{"Gross", 22, "R"},
	{"Fringe", 20, "R"},
	{"Taxes", 22, "R"},
	{"Deductions", 22, "R"},
	{"Net", 22, "R"},
}

// renderWH347 writes the certified payroll report as a landscape PDF
func renderWH347(w io.Writer, doc document) error {
	pdf := gofpdf.New("L", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Certified Payroll "+doc.Run.WeekEnding.Format(validator.DateLayout), false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Run %s - page %d", doc.Run.ID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Certified Payroll Report (WH-347)")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr("Contractor: "+doc.Company.Name))
	pdf.Ln(5)
	if doc.Company.Address != "" {
		pdf.Cell(0, 6, tr("Address: "+doc.Company.Address))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, "Week ending: "+doc.Run.WeekEnding.Format(validator.DateLayout))
	pdf.Ln(5)
	status := string(doc.Run.Status)
	if doc.Run.Provisional {
		status += " (provisional withholding)"
	}
	pdf.Cell(0, 6, fmt.Sprintf("Payroll run: %s   Status: %s", doc.Run.ID, status))
	pdf.Ln(9)

	writeWH347Header(pdf)

	pdf.SetFont("Helvetica", "", 8)
	for _, item := range doc.Items {
		if pdf.GetY() > 185 {
			pdf.AddPage()
			writeWH347Header(pdf)
			pdf.SetFont("Helvetica", "", 8)
		}
		name := item.EmployeeName
		if item.DavisBacon {
			name += " *"
		}
		writeWH347Row(pdf, tr, []string{
			name,
			item.Classification,
			projectCodes(item),
			item.HoursRegular.StringFixed(2),
			item.HoursOT.StringFixed(2),
			money(item.BaseRate),
			money(item.GrossPay()),
			money(item.FringePay()),
			money(item.TotalTaxes()),
			money(item.Deductions()),
			money(item.NetPay()),
		})
	}

	t := doc.totals()
	pdf.SetFont("Helvetica", "B", 8)
	writeWH347Row(pdf, tr, []string{
		"Totals", "", "",
		t.HoursRegular.StringFixed(2),
		t.HoursOT.StringFixed(2),
		"",
		money(t.Gross),
		money(t.Fringe),
		money(t.Taxes),
		money(t.Deductions),
		money(t.Net),
	})

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Cell(0, 5, "* Davis-Bacon covered employee; fringe paid in cash.")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 6, "Statement of Compliance")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, complianceStatement, "", "L", false)
	pdf.Ln(10)
	pdf.Cell(90, 6, "Signature: ______________________________")
	pdf.Cell(0, 6, "Date: ________________")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render certified payroll: %w", err)
	}
	return pdf.Output(w)
}

func writeWH347Header(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range wh347Columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func writeWH347Row(pdf *gofpdf.Fpdf, tr func(string) string, values []string) {
	for i, c := range wh347Columns {
		pdf.CellFormat(c.width, 6, tr(values[i]), "1", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)
}
