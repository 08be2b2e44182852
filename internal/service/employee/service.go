package employee

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/google/uuid"
)

type EmployeeServiceImpl struct {
	employeeRepo employee.EmployeeRepository
}

func NewEmployeeService(employeeRepo employee.EmployeeRepository) employee.EmployeeService {
	return &EmployeeServiceImpl{employeeRepo: employeeRepo}
}

func (s *EmployeeServiceImpl) CreateEmployee(ctx context.Context, req employee.CreateEmployeeRequest) (employee.EmployeeResponse, error) {
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	id := req.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	created, err := s.employeeRepo.Create(ctx, employee.Employee{
		ID:             id,
		Name:           req.Name,
		Classification: req.Classification,
		BaseRate:       req.BaseRate,
		FringeRate:     req.FringeRate,
		DavisBacon:     req.DavisBacon,
		Deductions:     mapToDeductions(req.Deductions),
		Banking:        mapToBanking(req.Banking),
	})
	if err != nil {
		return employee.EmployeeResponse{}, fmt.Errorf("failed to create employee: %w", err)
	}

	return mapToEmployeeResponse(created), nil
}

func (s *EmployeeServiceImpl) UpdateEmployee(ctx context.Context, req employee.UpdateEmployeeRequest) (employee.EmployeeResponse, error) {
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	existing, err := s.employeeRepo.GetByID(ctx, req.ID)
	if err != nil {
		return employee.EmployeeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Classification != nil {
		existing.Classification = *req.Classification
	}
	if req.BaseRate != nil {
		existing.BaseRate = *req.BaseRate
	}
	if req.FringeRate != nil {
		existing.FringeRate = *req.FringeRate
	}
	if req.DavisBacon != nil {
		existing.DavisBacon = *req.DavisBacon
	}
	if req.Deductions != nil {
		existing.Deductions = mapToDeductions(*req.Deductions)
	}
	if req.Banking != nil {
		existing.Banking = mapToBanking(*req.Banking)
	}

	updated, err := s.employeeRepo.Update(ctx, existing)
	if err != nil {
		return employee.EmployeeResponse{}, fmt.Errorf("failed to update employee: %w", err)
	}

	return mapToEmployeeResponse(updated), nil
}

func (s *EmployeeServiceImpl) GetEmployee(ctx context.Context, id string) (employee.EmployeeResponse, error) {
	e, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return employee.EmployeeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return mapToEmployeeResponse(e), nil
}

func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context) ([]employee.EmployeeResponse, error) {
	employees, err := s.employeeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	result := make([]employee.EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		result = append(result, mapToEmployeeResponse(e))
	}
	return result, nil
}

// ========== MAPPERS ==========

func mapToDeductions(p employee.DeductionsPayload) employee.Deductions {
	return employee.Deductions{
		PretaxMedical: p.PretaxMedical,
		HSA:           p.HSA,
		Pct401k:       p.Pct401k,
		Garnishment:   p.Garnishment,
		MiscPosttax:   p.MiscPosttax,
	}
}

func mapToBanking(p employee.BankingPayload) employee.Banking {
	accountType := employee.AccountType(p.AccountType)
	if accountType == "" {
		accountType = employee.AccountTypeChecking
	}
	return employee.Banking{
		RoutingNumber: p.RoutingNumber,
		AccountNumber: p.AccountNumber,
		AccountType:   accountType,
	}
}

func mapToEmployeeResponse(e employee.Employee) employee.EmployeeResponse {
	return employee.EmployeeResponse{
		ID:             e.ID,
		Name:           e.Name,
		Classification: e.Classification,
		BaseRate:       e.BaseRate,
		FringeRate:     e.FringeRate,
		DavisBacon:     e.DavisBacon,
		Deductions: employee.DeductionsPayload{
			PretaxMedical: e.Deductions.PretaxMedical,
			HSA:           e.Deductions.HSA,
			Pct401k:       e.Deductions.Pct401k,
			Garnishment:   e.Deductions.Garnishment,
			MiscPosttax:   e.Deductions.MiscPosttax,
		},
		Banking: employee.BankingResponse{
			RoutingNumber: e.Banking.RoutingNumber,
			AccountNumber: employee.MaskAccountNumber(e.Banking.AccountNumber),
			AccountType:   string(e.Banking.AccountType),
		},
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
