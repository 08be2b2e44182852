package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// payrollRepository applies every multi-step write under one mutex, which
// gives SaveValidatedRun the same all-or-nothing result as a transaction
type payrollRepository struct {
	mu      sync.RWMutex
	runs    map[string]payroll.PayrollRun
	items   map[string][]payroll.RunItem
	exports map[string][]payroll.ExportRecord
}

func NewPayrollRepository() payroll.PayrollRepository {
	return &payrollRepository{
		runs:    make(map[string]payroll.PayrollRun),
		items:   make(map[string][]payroll.RunItem),
		exports: make(map[string][]payroll.ExportRecord),
	}
}

// ========== RUNS ==========

func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !run.Correction {
		for _, existing := range r.runs {
			if !existing.Correction && existing.WeekEnding.Equal(run.WeekEnding) {
				return payroll.PayrollRun{}, payroll.ErrRunAlreadyExists
			}
		}
	}

	now := time.Now().UTC()
	run.Version = 1
	run.CreatedAt = now
	run.UpdatedAt = now
	r.runs[run.ID] = cloneRun(run)
	return cloneRun(run), nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string) (payroll.PayrollRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return cloneRun(run), nil
}

func (r *payrollRepository) ListRuns(ctx context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]payroll.PayrollRun, 0, len(r.runs))
	for _, run := range r.runs {
		if filter.WeekEnding != nil && !run.WeekEnding.Equal(*filter.WeekEnding) {
			continue
		}
		result = append(result, cloneRun(run))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].WeekEnding.Equal(result[j].WeekEnding) {
			return result[i].WeekEnding.After(result[j].WeekEnding)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *payrollRepository) UpdateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updateRunLocked(run)
}

func (r *payrollRepository) updateRunLocked(run payroll.PayrollRun) (payroll.PayrollRun, error) {
	existing, ok := r.runs[run.ID]
	if !ok {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	if existing.Version != run.Version {
		return payroll.PayrollRun{}, payroll.ErrConcurrentModification
	}

	run.Version++
	run.CreatedAt = existing.CreatedAt
	run.UpdatedAt = time.Now().UTC()
	r.runs[run.ID] = cloneRun(run)
	return cloneRun(run), nil
}

// ========== ITEMS ==========

func (r *payrollRepository) SaveValidatedRun(ctx context.Context, run payroll.PayrollRun, items []payroll.RunItem) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated, err := r.updateRunLocked(run)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	now := time.Now().UTC()
	replaced := make([]payroll.RunItem, 0, len(items))
	for _, item := range items {
		item.RunID = run.ID
		item.CreatedAt = now
		replaced = append(replaced, cloneItem(item))
	}
	r.items[run.ID] = replaced

	return updated, nil
}

func (r *payrollRepository) ListItems(ctx context.Context, runID string) ([]payroll.RunItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]payroll.RunItem, 0, len(r.items[runID]))
	for _, item := range r.items[runID] {
		result = append(result, cloneItem(item))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeName == result[j].EmployeeName {
			return result[i].EmployeeID < result[j].EmployeeID
		}
		return result[i].EmployeeName < result[j].EmployeeName
	})
	return result, nil
}

func (r *payrollRepository) GetYTD(ctx context.Context, employeeID string, weekEnding time.Time) (tax.YTD, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ytd := tax.YTD{Gross: decimal.Zero, Taxable: decimal.Zero, Taxes: decimal.Zero}
	for _, run := range r.runs {
		if run.Status != payroll.RunStatusPaid ||
			run.WeekEnding.Year() != weekEnding.Year() ||
			!run.WeekEnding.Before(weekEnding) {
			continue
		}
		for _, item := range r.items[run.ID] {
			if item.EmployeeID != employeeID {
				continue
			}
			ytd.Gross = ytd.Gross.Add(item.Breakdown.Gross)
			ytd.Taxable = ytd.Taxable.Add(item.Breakdown.Taxable)
			ytd.Taxes = ytd.Taxes.Add(item.Breakdown.TotalTaxes)
		}
	}
	return ytd, nil
}

// ========== EXPORTS ==========

func (r *payrollRepository) NextExportVersion(ctx context.Context, runID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	next := 1
	for _, rec := range r.exports[runID] {
		if rec.Version >= next {
			next = rec.Version + 1
		}
	}
	return next, nil
}

func (r *payrollRepository) CreateExport(ctx context.Context, record payroll.ExportRecord) (payroll.ExportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.exports[record.RunID] {
		if rec.Version == record.Version {
			return payroll.ExportRecord{}, fmt.Errorf("export version %d of run %s: %w", record.Version, record.RunID, payroll.ErrConcurrentModification)
		}
	}

	record.CreatedAt = time.Now().UTC()
	r.exports[record.RunID] = append(r.exports[record.RunID], record)
	return record, nil
}

func (r *payrollRepository) GetExport(ctx context.Context, runID, exportID string) (payroll.ExportRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.exports[runID] {
		if rec.ID == exportID {
			return rec, nil
		}
	}
	return payroll.ExportRecord{}, payroll.ErrExportNotFound
}

func (r *payrollRepository) ListExports(ctx context.Context, runID string) ([]payroll.ExportRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := slices.Clone(r.exports[runID])
	sort.Slice(result, func(i, j int) bool { return result[i].Version > result[j].Version })
	return result, nil
}

func cloneRun(run payroll.PayrollRun) payroll.PayrollRun {
	run.Warnings = slices.Clone(run.Warnings)
	if run.ApprovedBy != nil {
		v := *run.ApprovedBy
		run.ApprovedBy = &v
	}
	if run.ApprovedAt != nil {
		v := *run.ApprovedAt
		run.ApprovedAt = &v
	}
	if run.PaidAt != nil {
		v := *run.PaidAt
		run.PaidAt = &v
	}
	return run
}

func cloneItem(item payroll.RunItem) payroll.RunItem {
	item.ProjectCodes = slices.Clone(item.ProjectCodes)
	return item
}
