package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// EmployeeRepository manages employees and their department memberships.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	// Reserve marks an available employee busy. A busy employee yields ErrConflict.
	Reserve(ctx context.Context, id string) error
	// Release marks the employees available again.
	Release(ctx context.Context, ids ...string) error
}

type employeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository builds the repository.
func NewEmployeeRepository(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{pool: pool}
}

func (r *employeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	const query = `
        INSERT INTO employees (tenant_id, name, company, approval_level_id, available, role)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	const memberQuery = `
        INSERT INTO employee_departments (employee_id, department_id) VALUES ($1,$2)`
	db := conn(ctx, r.pool)
	if err := db.QueryRow(ctx, query,
		employee.TenantID,
		employee.Name,
		employee.Company,
		employee.ApprovalLevelID,
		employee.Available,
		employee.Role,
	).Scan(&employee.ID, &employee.CreatedAt); err != nil {
		return err
	}
	for _, deptID := range employee.DepartmentIDs {
		if _, err := db.Exec(ctx, memberQuery, employee.ID, deptID); err != nil {
			return err
		}
	}
	return nil
}

func (r *employeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `
        SELECT e.id, e.tenant_id, e.name, e.company, e.approval_level_id, e.available, e.role, e.created_at,
               COALESCE(array_agg(ed.department_id::text) FILTER (WHERE ed.department_id IS NOT NULL), '{}')
        FROM employees e
        LEFT JOIN employee_departments ed ON ed.employee_id = e.id
        WHERE e.id=$1
        GROUP BY e.id`
	var employee domain.Employee
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&employee.ID,
		&employee.TenantID,
		&employee.Name,
		&employee.Company,
		&employee.ApprovalLevelID,
		&employee.Available,
		&employee.Role,
		&employee.CreatedAt,
		&employee.DepartmentIDs,
	); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) Reserve(ctx context.Context, id string) error {
	const query = `UPDATE employees SET available=FALSE WHERE id=$1 AND available=TRUE`
	err := expectOne(conn(ctx, r.pool).Exec(ctx, query, id))
	if err == ErrConflict {
		if _, getErr := r.GetByID(ctx, id); getErr == pgx.ErrNoRows {
			return pgx.ErrNoRows
		}
	}
	return err
}

func (r *employeeRepository) Release(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE employees SET available=TRUE WHERE id = ANY($1::uuid[])`
	_, err := conn(ctx, r.pool).Exec(ctx, query, ids)
	return err
}
