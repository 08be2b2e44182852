package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type timesheetRepositoryImpl struct {
	db *database.DB
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepositoryImpl{db: db}
}

const insertTimesheetEntry = `
	INSERT INTO timesheet_entries (id, employee_id, week_ending, hours_regular, hours_ot, project_code)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at`

func (r *timesheetRepositoryImpl) Append(ctx context.Context, entry timesheet.Entry) (timesheet.Entry, error) {
	q := GetQuerier(ctx, r.db)

	err := q.QueryRow(ctx, insertTimesheetEntry,
		entry.ID, entry.EmployeeID, entry.WeekEnding, entry.HoursRegular, entry.HoursOT, entry.ProjectCode,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return timesheet.Entry{}, fmt.Errorf("failed to insert timesheet entry: %w", err)
	}

	return entry, nil
}

// AppendBatch sends every insert in one pgx batch inside a transaction
func (r *timesheetRepositoryImpl) AppendBatch(ctx context.Context, entries []timesheet.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(insertTimesheetEntry, e.ID, e.EmployeeID, e.WeekEnding, e.HoursRegular, e.HoursOT, e.ProjectCode)
		}

		results := q.SendBatch(ctx, batch)
		for i := range entries {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert timesheet entry %d: %w", i+1, err)
			}
		}
		return results.Close()
	})
}

func (r *timesheetRepositoryImpl) ListByWeek(ctx context.Context, weekEnding time.Time) ([]timesheet.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, week_ending, hours_regular, hours_ot, project_code, created_at
		FROM timesheet_entries
		WHERE week_ending = $1
		ORDER BY seq
	`

	rows, err := q.Query(ctx, query, weekEnding)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheet entries: %w", err)
	}
	defer rows.Close()

	var entries []timesheet.Entry
	for rows.Next() {
		var e timesheet.Entry
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.WeekEnding, &e.HoursRegular, &e.HoursOT, &e.ProjectCode, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timesheet entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
