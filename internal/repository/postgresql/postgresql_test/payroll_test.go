package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var week = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func runItem(id, employeeID, gross, taxable, taxes string) payroll.RunItem {
	return payroll.RunItem{
		ID:           id,
		EmployeeID:   employeeID,
		EmployeeName: "Employee " + employeeID,
		HoursRegular: dec("40"),
		HoursOT:      dec("0"),
		BaseRate:     dec("25"),
		FringeRate:   dec("0"),
		ProjectCodes: []string{"P-1"},
		Breakdown: payroll.Breakdown{
			Gross:      dec(gross),
			Taxable:    dec(taxable),
			Taxes:      tax.Fallback(dec(taxable)),
			TaxSource:  tax.SourceDegraded,
			TotalTaxes: dec(taxes),
			Net:        dec(gross).Sub(dec(taxes)),
		},
		Banking: employee.Banking{RoutingNumber: "021000021", AccountNumber: "12345678", AccountType: employee.AccountTypeChecking},
	}
}

func TestEmployeeRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewEmployeeRepository(setup.DB)

	created, err := repo.Create(ctx, employee.Employee{
		ID: "E-1", Name: "Ada Lovelace", BaseRate: dec("25"), FringeRate: dec("5"), DavisBacon: true,
		Deductions: employee.Deductions{PretaxMedical: dec("35"), Pct401k: dec("0.05")},
		Banking:    employee.Banking{RoutingNumber: "021000021", AccountNumber: "12345678", AccountType: employee.AccountTypeSavings},
	})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, employee.Employee{ID: "E-1", Name: "Dup", BaseRate: dec("1")})
	assert.ErrorIs(t, err, employee.ErrEmployeeIDExists)

	got, err := repo.GetByID(ctx, "E-1")
	require.NoError(t, err)
	assert.True(t, dec("0.05").Equal(got.Deductions.Pct401k))
	assert.Equal(t, employee.AccountTypeSavings, got.Banking.AccountType)

	got.BaseRate = dec("30")
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(updated.BaseRate))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestTimesheetRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewTimesheetRepository(setup.DB)

	_, err := repo.Append(ctx, timesheet.Entry{ID: "t-1", EmployeeID: "E-1", WeekEnding: week, HoursRegular: dec("20"), HoursOT: dec("0")})
	require.NoError(t, err)
	err = repo.AppendBatch(ctx, []timesheet.Entry{
		{ID: "t-2", EmployeeID: "E-1", WeekEnding: week, HoursRegular: dec("20"), HoursOT: dec("1")},
		{ID: "t-3", EmployeeID: "E-2", WeekEnding: week.AddDate(0, 0, 7), HoursRegular: dec("8"), HoursOT: dec("0")},
	})
	require.NoError(t, err)

	entries, err := repo.ListByWeek(ctx, week)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t-1", entries[0].ID)
	assert.Equal(t, "t-2", entries[1].ID)

	// a duplicate id fails the whole batch
	err = repo.AppendBatch(ctx, []timesheet.Entry{
		{ID: "t-4", EmployeeID: "E-1", WeekEnding: week, HoursRegular: dec("1"), HoursOT: dec("0")},
		{ID: "t-1", EmployeeID: "E-1", WeekEnding: week, HoursRegular: dec("1"), HoursOT: dec("0")},
	})
	assert.Error(t, err)
	entries, err = repo.ListByWeek(ctx, week)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPayrollRepository_RunLifecycle(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)

	run, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-1", WeekEnding: week, Status: payroll.RunStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Version)
	assert.True(t, week.Equal(run.WeekEnding))

	_, err = repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-2", WeekEnding: week, Status: payroll.RunStatusDraft})
	assert.ErrorIs(t, err, payroll.ErrRunAlreadyExists)

	_, err = repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-3", WeekEnding: week, Status: payroll.RunStatusDraft, Correction: true})
	require.NoError(t, err)

	stale := run
	run.Status = payroll.RunStatusValidated
	run.Warnings = []string{"entry skipped"}
	run, err = repo.SaveValidatedRun(ctx, run, []payroll.RunItem{
		runItem("i-1", "E-1", "1000", "1000", "100"),
		runItem("i-2", "E-2", "500", "500", "50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, run.Version)
	assert.Equal(t, []string{"entry skipped"}, run.Warnings)

	run, err = repo.SaveValidatedRun(ctx, run, []payroll.RunItem{runItem("i-3", "E-1", "1100", "1100", "110")})
	require.NoError(t, err)

	items, err := repo.ListItems(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i-3", items[0].ID)
	assert.Equal(t, "1100", items[0].Breakdown.Gross.String())
	assert.Equal(t, tax.SourceDegraded, items[0].Breakdown.TaxSource)

	_, err = repo.SaveValidatedRun(ctx, stale, nil)
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)
	items, err = repo.ListItems(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = repo.UpdateRun(ctx, payroll.PayrollRun{ID: "missing", Version: 1, Status: payroll.RunStatusPaid})
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)

	filtered, err := repo.ListRuns(ctx, payroll.RunFilter{WeekEnding: &week})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestPayrollRepository_GetYTD(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)

	save := func(id string, weekEnding time.Time, status payroll.RunStatus, items ...payroll.RunItem) {
		run, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: id, WeekEnding: weekEnding, Status: payroll.RunStatusDraft, Correction: true})
		require.NoError(t, err)
		run.Status = status
		_, err = repo.SaveValidatedRun(ctx, run, items)
		require.NoError(t, err)
	}

	save("paid-1", week.AddDate(0, 0, -14), payroll.RunStatusPaid, runItem("a1", "a", "1000", "900", "100"))
	save("paid-2", week.AddDate(0, 0, -7), payroll.RunStatusPaid, runItem("a2", "a", "500", "450", "50"))
	save("approved", week.AddDate(0, 0, -21), payroll.RunStatusApproved, runItem("a3", "a", "999", "999", "99"))
	save("last-year", time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), payroll.RunStatusPaid, runItem("a4", "a", "888", "888", "88"))

	ytd, err := repo.GetYTD(ctx, "a", week)
	require.NoError(t, err)
	assert.Equal(t, "1500", ytd.Gross.String())
	assert.Equal(t, "1350", ytd.Taxable.String())
	assert.Equal(t, "150", ytd.Taxes.String())
}

func TestPayrollRepository_Exports(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)

	_, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-1", WeekEnding: week, Status: payroll.RunStatusDraft})
	require.NoError(t, err)

	v, err := repo.NextExportVersion(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = repo.CreateExport(ctx, payroll.ExportRecord{ID: "x-1", RunID: "run-1", Version: 1, WH347Path: "a", XLSXPath: "b", NACHAPath: "c"})
	require.NoError(t, err)
	_, err = repo.CreateExport(ctx, payroll.ExportRecord{ID: "x-2", RunID: "run-1", Version: 1, WH347Path: "a", XLSXPath: "b", NACHAPath: "c"})
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)

	rec, err := repo.GetExport(ctx, "run-1", "x-1")
	require.NoError(t, err)
	assert.Equal(t, "c", rec.NACHAPath)

	_, err = repo.GetExport(ctx, "run-1", "x-2")
	assert.ErrorIs(t, err, payroll.ErrExportNotFound)
}
