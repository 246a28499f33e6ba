package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (tenant_id, name)
        VALUES ($1,$2)
        RETURNING id, created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query, dept.TenantID, dept.Name).
		Scan(&dept.ID, &dept.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *departmentRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Department, error) {
	const query = `
        SELECT id, tenant_id, name, created_at
        FROM departments WHERE tenant_id=$1 ORDER BY name`
	rows, err := conn(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.TenantID, &dept.Name, &dept.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
