package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
)

type PayrollRepository interface {
	// Runs
	// CreateRun returns ErrRunAlreadyExists when a non-correction run exists for the week
	CreateRun(ctx context.Context, run PayrollRun) (PayrollRun, error)
	GetRunByID(ctx context.Context, id string) (PayrollRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]PayrollRun, error)
	// UpdateRun stores status fields if run.Version still matches, returning the run with
	// its version incremented, or ErrConcurrentModification
	UpdateRun(ctx context.Context, run PayrollRun) (PayrollRun, error)

	// Items
	// SaveValidatedRun replaces every item of the run and updates the run in one transaction
	SaveValidatedRun(ctx context.Context, run PayrollRun, items []RunItem) (PayrollRun, error)
	ListItems(ctx context.Context, runID string) ([]RunItem, error)

	// GetYTD sums the employee's items in paid runs of the same year before weekEnding
	GetYTD(ctx context.Context, employeeID string, weekEnding time.Time) (tax.YTD, error)

	// Exports
	NextExportVersion(ctx context.Context, runID string) (int, error)
	CreateExport(ctx context.Context, record ExportRecord) (ExportRecord, error)
	GetExport(ctx context.Context, runID, exportID string) (ExportRecord, error)
	ListExports(ctx context.Context, runID string) ([]ExportRecord, error)
}
