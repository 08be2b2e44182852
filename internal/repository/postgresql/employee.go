package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, name, classification, base_rate, fringe_rate, davis_bacon,
	pretax_medical, hsa, pct_401k, garnishment, misc_posttax,
	routing_number, account_number, account_type, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.Name, &e.Classification, &e.BaseRate, &e.FringeRate, &e.DavisBacon,
		&e.Deductions.PretaxMedical, &e.Deductions.HSA, &e.Deductions.Pct401k,
		&e.Deductions.Garnishment, &e.Deductions.MiscPosttax,
		&e.Banking.RoutingNumber, &e.Banking.AccountNumber, &e.Banking.AccountType,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employees (
			id, name, classification, base_rate, fringe_rate, davis_bacon,
			pretax_medical, hsa, pct_401k, garnishment, misc_posttax,
			routing_number, account_number, account_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING` + employeeColumns

	d, b := newEmployee.Deductions, newEmployee.Banking
	created, err := scanEmployee(q.QueryRow(ctx, query,
		newEmployee.ID, newEmployee.Name, newEmployee.Classification,
		newEmployee.BaseRate, newEmployee.FringeRate, newEmployee.DavisBacon,
		d.PretaxMedical, d.HSA, d.Pct401k, d.Garnishment, d.MiscPosttax,
		b.RoutingNumber, b.AccountNumber, b.AccountType,
	))
	if err != nil {
		if isUniqueViolation(err, "employees_pkey") {
			return employee.Employee{}, employee.ErrEmployeeIDExists
		}
		return employee.Employee{}, fmt.Errorf("failed to insert employee: %w", err)
	}

	return created, nil
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Update(ctx context.Context, updated employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees SET
			name = $2, classification = $3, base_rate = $4, fringe_rate = $5, davis_bacon = $6,
			pretax_medical = $7, hsa = $8, pct_401k = $9, garnishment = $10, misc_posttax = $11,
			routing_number = $12, account_number = $13, account_type = $14,
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + employeeColumns

	d, b := updated.Deductions, updated.Banking
	saved, err := scanEmployee(q.QueryRow(ctx, query,
		updated.ID, updated.Name, updated.Classification,
		updated.BaseRate, updated.FringeRate, updated.DavisBacon,
		d.PretaxMedical, d.HSA, d.Pct401k, d.Garnishment, d.MiscPosttax,
		b.RoutingNumber, b.AccountNumber, b.AccountType,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to update employee with id %s: %w", updated.ID, err)
	}

	return saved, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + employeeColumns + ` FROM employees WHERE id = $1`

	e, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}

	return e, nil
}

// List implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) List(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + employeeColumns + ` FROM employees ORDER BY name, id`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}
