package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/google/uuid"
)

type PayrollServiceImpl struct {
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	timesheets   timesheet.TimesheetService
	calculator   *Calculator
	locker       lock.Locker
	logger       *slog.Logger
	now          func() time.Time
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	timesheets timesheet.TimesheetService,
	calculator *Calculator,
	locker lock.Locker,
	logger *slog.Logger,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		timesheets:   timesheets,
		calculator:   calculator,
		locker:       locker,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ========== LIFECYCLE ==========

func (s *PayrollServiceImpl) CreateRun(ctx context.Context, req payroll.CreateRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}
	weekEnding, _ := validator.IsValidDate(req.WeekEnding)

	run, err := s.payrollRepo.CreateRun(ctx, payroll.PayrollRun{
		ID:         uuid.Must(uuid.NewV7()).String(),
		WeekEnding: weekEnding,
		Status:     payroll.RunStatusDraft,
		Correction: req.Correction,
	})
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to create payroll run: %w", err)
	}

	metrics.RunsCreatedTotal.WithLabelValues(strconv.FormatBool(run.Correction)).Inc()
	s.logger.Info("Payroll run created", "run_id", run.ID, "week_ending", req.WeekEnding, "correction", run.Correction)

	return payroll.NewRunResponse(run), nil
}

// ValidateRun recalculates every item of the run from the week's timesheets.
// Items are replaced, never appended, so repeated calls leave one item per employee.
func (s *PayrollServiceImpl) ValidateRun(ctx context.Context, req payroll.CalcRunRequest) (payroll.RunDetailResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunDetailResponse{}, err
	}

	unlock, err := s.locker.Lock(ctx, req.RunID)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to lock payroll run: %w", err)
	}
	defer unlock()

	run, err := s.payrollRepo.GetRunByID(ctx, req.RunID)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	if !run.Status.CanTransitionTo(payroll.RunStatusValidated) {
		return payroll.RunDetailResponse{}, payroll.ErrInvalidTransition
	}

	agg, err := s.timesheets.Aggregate(ctx, run.WeekEnding)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to aggregate timesheets: %w", err)
	}

	warnings := make([]string, 0, len(agg.Skipped))
	for _, skipped := range agg.Skipped {
		warnings = append(warnings, fmt.Sprintf("timesheet entry %s skipped: employee %s is not registered", skipped.EntryID, skipped.EmployeeID))
	}

	items := make([]payroll.RunItem, 0, len(agg.Totals))
	degraded := 0
	for _, employeeID := range agg.EmployeeIDs() {
		item, err := s.calculateItem(ctx, run, agg.Totals[employeeID])
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				warnings = append(warnings, fmt.Sprintf("employee %s was removed during validation", employeeID))
				continue
			}
			return payroll.RunDetailResponse{}, err
		}
		if item.Breakdown.TaxResult().Degraded() {
			degraded++
		}
		items = append(items, item)
	}

	run.Status = payroll.RunStatusValidated
	run.Provisional = degraded > 0
	run.Warnings = warnings

	saved, err := s.payrollRepo.SaveValidatedRun(ctx, run, items)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to save validated payroll run: %w", err)
	}

	metrics.RunTransitionsTotal.WithLabelValues(string(payroll.RunStatusValidated)).Inc()
	if saved.Provisional {
		s.logger.Warn("Payroll run validated as provisional",
			"run_id", saved.ID,
			"items", len(items),
			"degraded_items", degraded,
		)
	} else {
		s.logger.Info("Payroll run validated", "run_id", saved.ID, "items", len(items), "warnings", len(warnings))
	}

	stored, err := s.payrollRepo.ListItems(ctx, saved.ID)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to list run items: %w", err)
	}

	return payroll.NewRunDetailResponse(saved, stored), nil
}

func (s *PayrollServiceImpl) calculateItem(ctx context.Context, run payroll.PayrollRun, hours timesheet.Hours) (payroll.RunItem, error) {
	emp, err := s.employeeRepo.GetByID(ctx, hours.EmployeeID)
	if err != nil {
		return payroll.RunItem{}, fmt.Errorf("failed to get employee %s: %w", hours.EmployeeID, err)
	}

	ytd, err := s.payrollRepo.GetYTD(ctx, emp.ID, run.WeekEnding)
	if err != nil {
		return payroll.RunItem{}, fmt.Errorf("failed to get year-to-date totals: %w", err)
	}

	breakdown, err := s.calculator.Calculate(ctx, payroll.CalcInput{
		BaseRate:     emp.BaseRate,
		FringeRate:   emp.FringeRate,
		DavisBacon:   emp.DavisBacon,
		HoursRegular: hours.HoursRegular,
		HoursOT:      hours.HoursOT,
		Deductions:   emp.Deductions,
		Employee: tax.EmployeeInfo{
			ID:             emp.ID,
			Name:           emp.Name,
			Classification: emp.Classification,
			DavisBacon:     emp.DavisBacon,
		},
		Work: tax.WorkInfo{
			WeekEnding:   run.WeekEnding,
			HoursRegular: hours.HoursRegular,
			HoursOT:      hours.HoursOT,
			ProjectCodes: hours.ProjectCodes,
		},
		YTD: ytd,
	})
	if err != nil {
		return payroll.RunItem{}, fmt.Errorf("failed to calculate pay for employee %s: %w", emp.ID, err)
	}

	return payroll.RunItem{
		ID:             uuid.Must(uuid.NewV7()).String(),
		RunID:          run.ID,
		EmployeeID:     emp.ID,
		EmployeeName:   emp.Name,
		Classification: emp.Classification,
		DavisBacon:     emp.DavisBacon,
		HoursRegular:   hours.HoursRegular,
		HoursOT:        hours.HoursOT,
		BaseRate:       emp.BaseRate,
		FringeRate:     emp.FringeRate,
		ProjectCodes:   hours.ProjectCodes,
		Breakdown:      breakdown,
		Banking:        emp.Banking,
	}, nil
}

// ApproveRun requires a validated run. Provisional runs need an explicit acknowledgement.
func (s *PayrollServiceImpl) ApproveRun(ctx context.Context, req payroll.ApproveRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}

	unlock, err := s.locker.Lock(ctx, req.RunID)
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to lock payroll run: %w", err)
	}
	defer unlock()

	run, err := s.payrollRepo.GetRunByID(ctx, req.RunID)
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to get payroll run: %w", err)
	}

	switch {
	case run.Status == payroll.RunStatusDraft:
		return payroll.RunResponse{}, payroll.ErrRunNotValidated
	case !run.Status.CanTransitionTo(payroll.RunStatusApproved):
		return payroll.RunResponse{}, payroll.ErrInvalidTransition
	case run.Provisional && !req.AcknowledgeProvisional:
		return payroll.RunResponse{}, payroll.ErrProvisionalNotAcknowledged
	}

	now := s.now()
	approver := strings.TrimSpace(req.Approver)
	run.Status = payroll.RunStatusApproved
	run.ApprovedBy = &approver
	run.ApprovedAt = &now

	updated, err := s.payrollRepo.UpdateRun(ctx, run)
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to approve payroll run: %w", err)
	}

	metrics.RunTransitionsTotal.WithLabelValues(string(payroll.RunStatusApproved)).Inc()
	s.logger.Info("Payroll run approved", "run_id", updated.ID, "approved_by", approver, "provisional", updated.Provisional)

	return payroll.NewRunResponse(updated), nil
}

// PayRun marks an approved run as paid. Any other status is rejected and left unchanged.
func (s *PayrollServiceImpl) PayRun(ctx context.Context, req payroll.PayRunRequest) (payroll.PayRunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayRunResponse{}, err
	}

	unlock, err := s.locker.Lock(ctx, req.RunID)
	if err != nil {
		return payroll.PayRunResponse{}, fmt.Errorf("failed to lock payroll run: %w", err)
	}
	defer unlock()

	run, err := s.payrollRepo.GetRunByID(ctx, req.RunID)
	if err != nil {
		return payroll.PayRunResponse{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	if run.Status != payroll.RunStatusApproved {
		return payroll.PayRunResponse{}, payroll.ErrRunNotApproved
	}

	now := s.now()
	run.Status = payroll.RunStatusPaid
	run.PaidAt = &now

	updated, err := s.payrollRepo.UpdateRun(ctx, run)
	if err != nil {
		return payroll.PayRunResponse{}, fmt.Errorf("failed to pay payroll run: %w", err)
	}

	metrics.RunTransitionsTotal.WithLabelValues(string(payroll.RunStatusPaid)).Inc()
	s.logger.Info("Payroll run paid", "run_id", updated.ID)

	return payroll.PayRunResponse{OK: true, Run: payroll.NewRunResponse(updated)}, nil
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) GetRun(ctx context.Context, id string) (payroll.RunDetailResponse, error) {
	run, err := s.payrollRepo.GetRunByID(ctx, id)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to get payroll run: %w", err)
	}

	items, err := s.payrollRepo.ListItems(ctx, id)
	if err != nil {
		return payroll.RunDetailResponse{}, fmt.Errorf("failed to list run items: %w", err)
	}

	return payroll.NewRunDetailResponse(run, items), nil
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, req payroll.ListRunsRequest) ([]payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var filter payroll.RunFilter
	if req.WeekEnding != "" {
		weekEnding, _ := validator.IsValidDate(req.WeekEnding)
		filter.WeekEnding = &weekEnding
	}

	runs, err := s.payrollRepo.ListRuns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs: %w", err)
	}

	result := make([]payroll.RunResponse, 0, len(runs))
	for _, run := range runs {
		result = append(result, payroll.NewRunResponse(run))
	}
	return result, nil
}
