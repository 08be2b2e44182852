package timesheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TimesheetServiceImpl struct {
	timesheetRepo timesheet.TimesheetRepository
	employeeRepo  employee.EmployeeRepository
	logger        *slog.Logger
}

func NewTimesheetService(
	timesheetRepo timesheet.TimesheetRepository,
	employeeRepo employee.EmployeeRepository,
	logger *slog.Logger,
) timesheet.TimesheetService {
	return &TimesheetServiceImpl{
		timesheetRepo: timesheetRepo,
		employeeRepo:  employeeRepo,
		logger:        logger,
	}
}

// AppendEntry accepts hours for employees that are not registered yet; they are
// reported again when a run aggregates the week.
func (s *TimesheetServiceImpl) AppendEntry(ctx context.Context, req timesheet.AppendEntryRequest) (timesheet.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.EntryResponse{}, err
	}

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID); err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			return timesheet.EntryResponse{}, fmt.Errorf("failed to check employee: %w", err)
		}
		s.logger.Warn("Timesheet entry recorded for unregistered employee",
			"employee_id", req.EmployeeID,
			"week_ending", req.WeekEnding,
		)
	}

	entry, err := s.timesheetRepo.Append(ctx, newEntry(req))
	if err != nil {
		return timesheet.EntryResponse{}, fmt.Errorf("failed to append timesheet entry: %w", err)
	}

	return mapToEntryResponse(entry), nil
}

func (s *TimesheetServiceImpl) ImportCSV(ctx context.Context, r io.Reader) (timesheet.ImportResponse, error) {
	var rows []timesheet.ImportRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return timesheet.ImportResponse{}, validator.ValidationErrors{
			{Field: "file", Message: fmt.Sprintf("unreadable CSV: %v", err)},
		}
	}
	if len(rows) == 0 {
		return timesheet.ImportResponse{}, validator.ValidationErrors{
			{Field: "file", Message: "contains no rows"},
		}
	}

	var errs validator.ValidationErrors
	entries := make([]timesheet.Entry, 0, len(rows))
	for i, row := range rows {
		req, rowErrs := row.Parse(i + 2)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		entries = append(entries, newEntry(req))
	}
	if len(errs) > 0 {
		return timesheet.ImportResponse{}, errs
	}

	if err := s.timesheetRepo.AppendBatch(ctx, entries); err != nil {
		return timesheet.ImportResponse{}, fmt.Errorf("failed to import timesheet entries: %w", err)
	}

	s.logger.Info("Timesheet entries imported", "count", len(entries))
	return timesheet.ImportResponse{Imported: len(entries)}, nil
}

func (s *TimesheetServiceImpl) ListEntries(ctx context.Context, req timesheet.ListEntriesRequest) ([]timesheet.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	weekEnding, _ := validator.IsValidDate(req.WeekEnding)

	entries, err := s.timesheetRepo.ListByWeek(ctx, weekEnding)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheet entries: %w", err)
	}

	result := make([]timesheet.EntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, mapToEntryResponse(entry))
	}
	return result, nil
}

// Aggregate sums hours per registered employee. Entries for unknown employees
// are left out of the totals and reported in Skipped.
func (s *TimesheetServiceImpl) Aggregate(ctx context.Context, weekEnding time.Time) (timesheet.Aggregation, error) {
	entries, err := s.timesheetRepo.ListByWeek(ctx, weekEnding)
	if err != nil {
		return timesheet.Aggregation{}, fmt.Errorf("failed to list timesheet entries: %w", err)
	}

	employees, err := s.employeeRepo.List(ctx)
	if err != nil {
		return timesheet.Aggregation{}, fmt.Errorf("failed to list employees: %w", err)
	}
	registered := make(map[string]struct{}, len(employees))
	for _, e := range employees {
		registered[e.ID] = struct{}{}
	}

	result := timesheet.Aggregation{
		WeekEnding: weekEnding,
		Totals:     make(map[string]timesheet.Hours),
	}
	projects := make(map[string]map[string]struct{})

	for _, entry := range entries {
		if _, ok := registered[entry.EmployeeID]; !ok {
			result.Skipped = append(result.Skipped, timesheet.SkippedEntry{EntryID: entry.ID, EmployeeID: entry.EmployeeID})
			metrics.TimesheetEntriesSkippedTotal.Inc()
			s.logger.Warn("Timesheet entry skipped: employee not registered",
				"entry_id", entry.ID,
				"employee_id", entry.EmployeeID,
				"week_ending", weekEnding.Format(validator.DateLayout),
			)
			continue
		}

		hours, ok := result.Totals[entry.EmployeeID]
		if !ok {
			hours = timesheet.Hours{
				EmployeeID:   entry.EmployeeID,
				HoursRegular: decimal.Zero,
				HoursOT:      decimal.Zero,
			}
			projects[entry.EmployeeID] = make(map[string]struct{})
		}
		hours.HoursRegular = hours.HoursRegular.Add(entry.HoursRegular)
		hours.HoursOT = hours.HoursOT.Add(entry.HoursOT)
		if entry.ProjectCode != "" {
			projects[entry.EmployeeID][entry.ProjectCode] = struct{}{}
		}
		result.Totals[entry.EmployeeID] = hours
	}

	for id, hours := range result.Totals {
		codes := make([]string, 0, len(projects[id]))
		for code := range projects[id] {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		hours.ProjectCodes = codes
		result.Totals[id] = hours
	}

	return result, nil
}

func newEntry(req timesheet.AppendEntryRequest) timesheet.Entry {
	weekEnding, _ := validator.IsValidDate(req.WeekEnding)
	return timesheet.Entry{
		ID:           uuid.Must(uuid.NewV7()).String(),
		EmployeeID:   req.EmployeeID,
		WeekEnding:   weekEnding,
		HoursRegular: req.HoursRegular,
		HoursOT:      req.HoursOT,
		ProjectCode:  req.ProjectCode,
	}
}

func mapToEntryResponse(entry timesheet.Entry) timesheet.EntryResponse {
	return timesheet.EntryResponse{
		ID:           entry.ID,
		EmployeeID:   entry.EmployeeID,
		WeekEnding:   entry.WeekEnding.Format(validator.DateLayout),
		HoursRegular: entry.HoursRegular,
		HoursOT:      entry.HoursOT,
		ProjectCode:  entry.ProjectCode,
		CreatedAt:    entry.CreatedAt,
	}
}
