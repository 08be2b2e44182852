package export

import (
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/nacha"
)

// renderACH writes the direct-deposit file crediting each item's net pay
func renderACH(w io.Writer, doc document, originator nacha.Originator) error {
	entries := make([]nacha.Entry, 0, len(doc.Items))
	for _, item := range doc.Items {
		entries = append(entries, nacha.Entry{
			IndividualID:  achIndividualID(item.EmployeeID),
			Name:          item.EmployeeName,
			RoutingNumber: item.Banking.RoutingNumber,
			AccountNumber: item.Banking.AccountNumber,
			Savings:       item.Banking.AccountType == employee.AccountTypeSavings,
			Amount:        item.NetPay(),
		})
	}

	file := nacha.File{
		Originator:       originator,
		EntryDescription: "PAYROLL",
		DescriptiveDate:  doc.Run.WeekEnding,
		EffectiveDate:    nextBusinessDay(doc.GeneratedAt),
		CreatedAt:        doc.GeneratedAt,
		Entries:          entries,
	}
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write ACH file: %w", err)
	}
	return nil
}

// achIndividualID fits an employee id into the 15-character entry field.
// An id that cannot be written verbatim becomes '#' plus a base-36 FNV-1a hash.
// Verbatim ids never contain '#', so the two forms cannot collide.
func achIndividualID(employeeID string) string {
	if len(employeeID) <= 15 && employeeID == strings.ToUpper(employeeID) && isPrintableASCII(employeeID) && !strings.Contains(employeeID, "#") {
		return employeeID
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(employeeID))
	return "#" + strings.ToUpper(strconv.FormatUint(h.Sum64(), 36))
}

func isPrintableASCII(s string) bool {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}

func nextBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
