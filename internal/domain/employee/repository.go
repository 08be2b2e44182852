package employee

import "context"

type EmployeeRepository interface {
	Create(ctx context.Context, newEmployee Employee) (Employee, error)
	Update(ctx context.Context, updated Employee) (Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)
	// List returns employees ordered by name
	List(ctx context.Context) ([]Employee, error)
}
