package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// ApprovalLevelRepository stores the approval ladder of each tenant.
type ApprovalLevelRepository interface {
	Create(ctx context.Context, level *domain.ApprovalLevel) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalLevel, error)
	// ListByTenant returns every level of the tenant ordered by amount then insertion order.
	ListByTenant(ctx context.Context, tenantID string) ([]domain.ApprovalLevel, error)
}

type approvalLevelRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalLevelRepository builds the repository.
func NewApprovalLevelRepository(pool *pgxpool.Pool) ApprovalLevelRepository {
	return &approvalLevelRepository{pool: pool}
}

func (r *approvalLevelRepository) Create(ctx context.Context, level *domain.ApprovalLevel) error {
	const query = `
        INSERT INTO approval_levels (tenant_id, name, amount, company)
        VALUES ($1,$2,$3,$4)
        RETURNING id, seq, created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		level.TenantID,
		level.Name,
		level.Amount,
		level.Company,
	).Scan(&level.ID, &level.Seq, &level.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *approvalLevelRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalLevel, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `
        SELECT id, tenant_id, name, amount, company, seq, created_at
        FROM approval_levels WHERE id=$1`
	var level domain.ApprovalLevel
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&level.ID,
		&level.TenantID,
		&level.Name,
		&level.Amount,
		&level.Company,
		&level.Seq,
		&level.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *approvalLevelRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.ApprovalLevel, error) {
	const query = `
        SELECT id, tenant_id, name, amount, company, seq, created_at
        FROM approval_levels WHERE tenant_id=$1 ORDER BY amount, seq`
	rows, err := conn(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalLevel
	for rows.Next() {
		var level domain.ApprovalLevel
		if err := rows.Scan(
			&level.ID,
			&level.TenantID,
			&level.Name,
			&level.Amount,
			&level.Company,
			&level.Seq,
			&level.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, level)
	}
	return result, rows.Err()
}
