package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var week = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

func item(employeeID string, gross, taxable, taxes string) payroll.RunItem {
	return payroll.RunItem{
		ID:           employeeID + "-item",
		EmployeeID:   employeeID,
		EmployeeName: "Employee " + employeeID,
		Breakdown: payroll.Breakdown{
			Gross:      decimal.RequireFromString(gross),
			Taxable:    decimal.RequireFromString(taxable),
			TotalTaxes: decimal.RequireFromString(taxes),
		},
	}
}

func TestPayrollRepository_CreateRun_DuplicateWeek(t *testing.T) {
	ctx := context.Background()
	repo := NewPayrollRepository()

	first, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-1", WeekEnding: week, Status: payroll.RunStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	_, err = repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-2", WeekEnding: week, Status: payroll.RunStatusDraft})
	assert.ErrorIs(t, err, payroll.ErrRunAlreadyExists)

	correction, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-3", WeekEnding: week, Status: payroll.RunStatusDraft, Correction: true})
	require.NoError(t, err)
	assert.True(t, correction.Correction)
}

func TestPayrollRepository_UpdateRun_VersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewPayrollRepository()

	run, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-1", WeekEnding: week, Status: payroll.RunStatusDraft})
	require.NoError(t, err)

	stale := run
	run.Status = payroll.RunStatusValidated
	updated, err := repo.UpdateRun(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	stale.Status = payroll.RunStatusApproved
	_, err = repo.UpdateRun(ctx, stale)
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)

	got, err := repo.GetRunByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusValidated, got.Status)

	_, err = repo.UpdateRun(ctx, payroll.PayrollRun{ID: "missing", Version: 1})
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestPayrollRepository_SaveValidatedRun_ReplacesItems(t *testing.T) {
	ctx := context.Background()
	repo := NewPayrollRepository()

	run, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-1", WeekEnding: week, Status: payroll.RunStatusDraft})
	require.NoError(t, err)

	run.Status = payroll.RunStatusValidated
	run, err = repo.SaveValidatedRun(ctx, run, []payroll.RunItem{item("a", "100", "100", "10"), item("b", "200", "200", "20")})
	require.NoError(t, err)

	run, err = repo.SaveValidatedRun(ctx, run, []payroll.RunItem{item("a", "150", "150", "15")})
	require.NoError(t, err)
	assert.Equal(t, 3, run.Version)

	items, err := repo.ListItems(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].EmployeeID)
	assert.Equal(t, "run-1", items[0].RunID)

	// stale version leaves items untouched
	stale := run
	stale.Version = 1
	_, err = repo.SaveValidatedRun(ctx, stale, nil)
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)
	items, err = repo.ListItems(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestPayrollRepository_GetYTD(t *testing.T) {
	ctx := context.Background()
	repo := NewPayrollRepository()

	save := func(id string, weekEnding time.Time, status payroll.RunStatus, items ...payroll.RunItem) {
		run, err := repo.CreateRun(ctx, payroll.PayrollRun{ID: id, WeekEnding: weekEnding, Status: payroll.RunStatusDraft, Correction: true})
		require.NoError(t, err)
		run.Status = status
		_, err = repo.SaveValidatedRun(ctx, run, items)
		require.NoError(t, err)
	}

	save("paid-1", week.AddDate(0, 0, -14), payroll.RunStatusPaid, item("a", "1000", "900", "100"))
	save("paid-2", week.AddDate(0, 0, -7), payroll.RunStatusPaid, item("a", "500", "450", "50"), item("b", "700", "700", "70"))
	save("approved", week.AddDate(0, 0, -21), payroll.RunStatusApproved, item("a", "999", "999", "99"))
	save("last-year", time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), payroll.RunStatusPaid, item("a", "888", "888", "88"))
	save("current", week, payroll.RunStatusPaid, item("a", "777", "777", "77"))

	ytd, err := repo.GetYTD(ctx, "a", week)
	require.NoError(t, err)
	assert.Equal(t, "1500", ytd.Gross.String())
	assert.Equal(t, "1350", ytd.Taxable.String())
	assert.Equal(t, "150", ytd.Taxes.String())
}

func TestPayrollRepository_Exports(t *testing.T) {
	ctx := context.Background()
	repo := NewPayrollRepository()

	v, err := repo.NextExportVersion(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = repo.CreateExport(ctx, payroll.ExportRecord{ID: "exp-1", RunID: "run-1", Version: 1})
	require.NoError(t, err)
	_, err = repo.CreateExport(ctx, payroll.ExportRecord{ID: "exp-dup", RunID: "run-1", Version: 1})
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)

	v, err = repo.NextExportVersion(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = repo.CreateExport(ctx, payroll.ExportRecord{ID: "exp-2", RunID: "run-1", Version: 2})
	require.NoError(t, err)

	list, err := repo.ListExports(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "exp-2", list[0].ID)

	_, err = repo.GetExport(ctx, "run-1", "nope")
	assert.ErrorIs(t, err, payroll.ErrExportNotFound)
}
