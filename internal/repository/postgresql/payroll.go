package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const runColumns = `
	id, week_ending, status, approved_by, approved_at, paid_at,
	provisional, correction, warnings, version, created_at, updated_at`

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var run payroll.PayrollRun
	err := row.Scan(
		&run.ID, &run.WeekEnding, &run.Status, &run.ApprovedBy, &run.ApprovedAt, &run.PaidAt,
		&run.Provisional, &run.Correction, &run.Warnings, &run.Version, &run.CreatedAt, &run.UpdatedAt,
	)
	return run, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ========== RUNS ==========

func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_runs (id, week_ending, status, provisional, correction, warnings, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		RETURNING` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.ID, run.WeekEnding, run.Status, run.Provisional, run.Correction, nonNil(run.Warnings),
	))
	if err != nil {
		if isUniqueViolation(err, "uq_payroll_runs_week") {
			return payroll.PayrollRun{}, payroll.ErrRunAlreadyExists
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to insert payroll run: %w", err)
	}

	return created, nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + runColumns + ` FROM payroll_runs WHERE id = $1`

	run, err := scanRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}

	return run, nil
}

func (r *payrollRepository) ListRuns(ctx context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + runColumns + `
		FROM payroll_runs
		WHERE ($1::date IS NULL OR week_ending = $1::date)
		ORDER BY week_ending DESC, created_at DESC
	`

	rows, err := q.Query(ctx, query, filter.WeekEnding)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *payrollRepository) UpdateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			status = $3, approved_by = $4, approved_at = $5, paid_at = $6,
			provisional = $7, warnings = $8,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + runColumns

	updated, err := scanRun(q.QueryRow(ctx, query,
		run.ID, run.Version, run.Status, run.ApprovedBy, run.ApprovedAt, run.PaidAt,
		run.Provisional, nonNil(run.Warnings),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// tell a missing run apart from a stale version
			if _, getErr := r.GetRunByID(ctx, run.ID); errors.Is(getErr, payroll.ErrRunNotFound) {
				return payroll.PayrollRun{}, payroll.ErrRunNotFound
			}
			return payroll.PayrollRun{}, payroll.ErrConcurrentModification
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to update payroll run: %w", err)
	}

	return updated, nil
}

// ========== ITEMS ==========

func (r *payrollRepository) SaveValidatedRun(ctx context.Context, run payroll.PayrollRun, items []payroll.RunItem) (payroll.PayrollRun, error) {
	var saved payroll.PayrollRun

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		var err error
		// the version check happens first so a stale writer never touches items
		saved, err = r.UpdateRun(ctx, run)
		if err != nil {
			return err
		}

		q := GetQuerier(ctx, r.db)
		if _, err := q.Exec(ctx, `DELETE FROM run_items WHERE run_id = $1`, run.ID); err != nil {
			return fmt.Errorf("failed to delete run items: %w", err)
		}

		if len(items) == 0 {
			return nil
		}

		query := `
			INSERT INTO run_items (
				id, run_id, employee_id, employee_name, classification, davis_bacon,
				hours_regular, hours_ot, base_rate, fringe_rate, project_codes,
				gross_pay, taxable, total_taxes, net_pay, tax_source, breakdown,
				routing_number, account_number, account_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		`

		batch := &pgx.Batch{}
		for _, item := range items {
			b := item.Breakdown
			batch.Queue(query,
				item.ID, run.ID, item.EmployeeID, item.EmployeeName, item.Classification, item.DavisBacon,
				item.HoursRegular, item.HoursOT, item.BaseRate, item.FringeRate, nonNil(item.ProjectCodes),
				b.Gross, b.Taxable, b.TotalTaxes, b.Net, b.TaxSource, b,
				item.Banking.RoutingNumber, item.Banking.AccountNumber, item.Banking.AccountType,
			)
		}

		results := q.SendBatch(ctx, batch)
		for _, item := range items {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert run item for employee %s: %w", item.EmployeeID, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	return saved, nil
}

func (r *payrollRepository) ListItems(ctx context.Context, runID string) ([]payroll.RunItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, run_id, employee_id, employee_name, classification, davis_bacon,
			hours_regular, hours_ot, base_rate, fringe_rate, project_codes, breakdown,
			routing_number, account_number, account_type, created_at
		FROM run_items
		WHERE run_id = $1
		ORDER BY employee_name, employee_id
	`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run items: %w", err)
	}
	defer rows.Close()

	var items []payroll.RunItem
	for rows.Next() {
		var item payroll.RunItem
		err := rows.Scan(
			&item.ID, &item.RunID, &item.EmployeeID, &item.EmployeeName, &item.Classification, &item.DavisBacon,
			&item.HoursRegular, &item.HoursOT, &item.BaseRate, &item.FringeRate, &item.ProjectCodes, &item.Breakdown,
			&item.Banking.RoutingNumber, &item.Banking.AccountNumber, &item.Banking.AccountType, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *payrollRepository) GetYTD(ctx context.Context, employeeID string, weekEnding time.Time) (tax.YTD, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(i.gross_pay), 0), COALESCE(SUM(i.taxable), 0), COALESCE(SUM(i.total_taxes), 0)
		FROM run_items i
		JOIN payroll_runs r ON r.id = i.run_id
		WHERE i.employee_id = $1
			AND r.status = $2
			AND r.week_ending < $3
			AND r.week_ending >= date_trunc('year', $3::date)
	`

	var ytd tax.YTD
	err := q.QueryRow(ctx, query, employeeID, payroll.RunStatusPaid, weekEnding).Scan(&ytd.Gross, &ytd.Taxable, &ytd.Taxes)
	if err != nil {
		return tax.YTD{}, fmt.Errorf("failed to sum year-to-date totals: %w", err)
	}

	return ytd, nil
}

// ========== EXPORTS ==========

func (r *payrollRepository) NextExportVersion(ctx context.Context, runID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var next int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM payroll_exports WHERE run_id = $1`, runID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to get next export version: %w", err)
	}
	return next, nil
}

const exportColumns = `id, run_id, version, wh347_path, xlsx_path, nacha_path, created_at`

func scanExport(row pgx.Row) (payroll.ExportRecord, error) {
	var rec payroll.ExportRecord
	err := row.Scan(&rec.ID, &rec.RunID, &rec.Version, &rec.WH347Path, &rec.XLSXPath, &rec.NACHAPath, &rec.CreatedAt)
	return rec, err
}

func (r *payrollRepository) CreateExport(ctx context.Context, record payroll.ExportRecord) (payroll.ExportRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_exports (id, run_id, version, wh347_path, xlsx_path, nacha_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + exportColumns

	created, err := scanExport(q.QueryRow(ctx, query,
		record.ID, record.RunID, record.Version, record.WH347Path, record.XLSXPath, record.NACHAPath,
	))
	if err != nil {
		if isUniqueViolation(err, "payroll_exports_run_id_version_key") {
			return payroll.ExportRecord{}, fmt.Errorf("export version %d of run %s: %w", record.Version, record.RunID, payroll.ErrConcurrentModification)
		}
		return payroll.ExportRecord{}, fmt.Errorf("failed to insert export: %w", err)
	}

	return created, nil
}

func (r *payrollRepository) GetExport(ctx context.Context, runID, exportID string) (payroll.ExportRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + exportColumns + ` FROM payroll_exports WHERE run_id = $1 AND id = $2`

	rec, err := scanExport(q.QueryRow(ctx, query, runID, exportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.ExportRecord{}, payroll.ErrExportNotFound
		}
		return payroll.ExportRecord{}, fmt.Errorf("failed to get export: %w", err)
	}
	return rec, nil
}

func (r *payrollRepository) ListExports(ctx context.Context, runID string) ([]payroll.ExportRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + exportColumns + ` FROM payroll_exports WHERE run_id = $1 ORDER BY version DESC`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var records []payroll.ExportRecord
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
