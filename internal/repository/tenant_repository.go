package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// TenantRepository persists tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	// MarkInitialized flips the initialized flag once; a second call returns ErrConflict.
	MarkInitialized(ctx context.Context, id string, at time.Time) error
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository builds the repository.
func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO tenants (name) VALUES ($1)
        RETURNING id, initialized, created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query, tenant.Name).
		Scan(&tenant.ID, &tenant.Initialized, &tenant.CreatedAt)
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `
        SELECT id, name, initialized, initialized_at, created_at
        FROM tenants WHERE id=$1`
	var tenant domain.Tenant
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Initialized,
		&tenant.InitializedAt,
		&tenant.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) MarkInitialized(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE tenants SET initialized=TRUE, initialized_at=$2
        WHERE id=$1 AND initialized=FALSE`
	err := expectOne(conn(ctx, r.pool).Exec(ctx, query, id, at))
	if err == ErrConflict {
		if _, getErr := r.GetByID(ctx, id); getErr == pgx.ErrNoRows {
			return pgx.ErrNoRows
		}
	}
	return err
}
