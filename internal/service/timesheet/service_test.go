package timesheet

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var week = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, employeeIDs ...string) timesheet.TimesheetService {
	t.Helper()
	employeeRepo := memory.NewEmployeeRepository()
	for _, id := range employeeIDs {
		_, err := employeeRepo.Create(context.Background(), employee.Employee{ID: id, Name: "Employee " + id})
		require.NoError(t, err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTimesheetService(memory.NewTimesheetRepository(), employeeRepo, logger)
}

func appendEntry(t *testing.T, svc timesheet.TimesheetService, employeeID, weekEnding, regular, ot, project string) {
	t.Helper()
	_, err := svc.AppendEntry(context.Background(), timesheet.AppendEntryRequest{
		EmployeeID:   employeeID,
		WeekEnding:   weekEnding,
		HoursRegular: decimal.RequireFromString(regular),
		HoursOT:      decimal.RequireFromString(ot),
		ProjectCode:  project,
	})
	require.NoError(t, err)
}

func TestTimesheetService_Aggregate_SumsEntries(t *testing.T) {
	svc := newTestService(t, "E-1", "E-2")

	appendEntry(t, svc, "E-1", "2024-06-07", "20", "0", "P-200")
	appendEntry(t, svc, "E-1", "2024-06-07", "20", "2.5", "P-100")
	appendEntry(t, svc, "E-1", "2024-06-07", "0", "1", "P-200")
	appendEntry(t, svc, "E-2", "2024-06-07", "32", "0", "")
	appendEntry(t, svc, "E-1", "2024-06-14", "40", "0", "P-300")

	agg, err := svc.Aggregate(context.Background(), week)
	require.NoError(t, err)

	require.Len(t, agg.Totals, 2)
	e1 := agg.Totals["E-1"]
	assert.Equal(t, "40", e1.HoursRegular.String())
	assert.Equal(t, "3.5", e1.HoursOT.String())
	assert.Equal(t, []string{"P-100", "P-200"}, e1.ProjectCodes)

	e2 := agg.Totals["E-2"]
	assert.Equal(t, "32", e2.HoursRegular.String())
	assert.True(t, e2.HoursOT.IsZero())
	assert.Empty(t, e2.ProjectCodes)

	assert.Equal(t, []string{"E-1", "E-2"}, agg.EmployeeIDs())
	assert.Empty(t, agg.Skipped)
}

func TestTimesheetService_Aggregate_SkipsUnknownEmployees(t *testing.T) {
	svc := newTestService(t, "E-1")

	appendEntry(t, svc, "E-1", "2024-06-07", "40", "0", "")
	appendEntry(t, svc, "GHOST", "2024-06-07", "8", "0", "")

	agg, err := svc.Aggregate(context.Background(), week)
	require.NoError(t, err)

	assert.Len(t, agg.Totals, 1)
	require.Len(t, agg.Skipped, 1)
	assert.Equal(t, "GHOST", agg.Skipped[0].EmployeeID)
	assert.NotEmpty(t, agg.Skipped[0].EntryID)
}

func TestTimesheetService_AppendEntry_Validation(t *testing.T) {
	svc := newTestService(t, "E-1")

	_, err := svc.AppendEntry(context.Background(), timesheet.AppendEntryRequest{
		EmployeeID:   "E-1",
		WeekEnding:   "June 7",
		HoursRegular: decimal.RequireFromString("-4"),
		HoursOT:      decimal.Zero,
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	details := verrs.ToMap()
	assert.Contains(t, details, "week_ending")
	assert.Contains(t, details, "hours_regular")
}

func TestTimesheetService_ImportCSV(t *testing.T) {
	svc := newTestService(t, "E-1", "E-2")

	csv := strings.Join([]string{
		"employee_id,week_ending,hours_regular,hours_ot,project_code",
		"E-1,2024-06-07,20,,P-100",
		"E-1,2024-06-07,20,4,P-100",
		"E-2,2024-06-07,38.5,0,",
	}, "\n")

	resp, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Imported)

	entries, err := svc.ListEntries(context.Background(), timesheet.ListEntriesRequest{WeekEnding: "2024-06-07"})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	agg, err := svc.Aggregate(context.Background(), week)
	require.NoError(t, err)
	assert.Equal(t, "40", agg.Totals["E-1"].HoursRegular.String())
	assert.Equal(t, "4", agg.Totals["E-1"].HoursOT.String())
}

func TestTimesheetService_ImportCSV_RejectsWholeFileOnBadRow(t *testing.T) {
	svc := newTestService(t, "E-1")

	csv := strings.Join([]string{
		"employee_id,week_ending,hours_regular,hours_ot,project_code",
		"E-1,2024-06-07,20,0,P-100",
		"E-1,2024-13-07,abc,0,P-100",
	}, "\n")

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	details := verrs.ToMap()
	assert.Contains(t, details, "line 3: week_ending")
	assert.Contains(t, details, "line 3: hours_regular")

	entries, err := svc.ListEntries(context.Background(), timesheet.ListEntriesRequest{WeekEnding: "2024-06-07"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
