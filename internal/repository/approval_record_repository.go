package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// ApprovalRecordRepository appends approval decisions. Records are never updated or deleted.
type ApprovalRecordRepository interface {
	// Append stores a decision. A second decision at the same level yields ErrConflict.
	Append(ctx context.Context, record *domain.ApprovalRecord) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ApprovalRecord, error)
}

type approvalRecordRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRecordRepository builds repository.
func NewApprovalRecordRepository(pool *pgxpool.Pool) ApprovalRecordRepository {
	return &approvalRecordRepository{pool: pool}
}

func (r *approvalRecordRepository) Append(ctx context.Context, record *domain.ApprovalRecord) error {
	const query = `
        INSERT INTO approval_records (ticket_id, approval_level_id, approver_id, result, decided_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		record.TicketID,
		record.ApprovalLevelID,
		record.ApproverID,
		record.Result,
		record.DecidedAt,
	).Scan(&record.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *approvalRecordRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ApprovalRecord, error) {
	const query = `
        SELECT id, ticket_id, approval_level_id, approver_id, result, decided_at
        FROM approval_records WHERE ticket_id=$1 ORDER BY decided_at ASC, id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalRecord
	for rows.Next() {
		var record domain.ApprovalRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.ApprovalLevelID,
			&record.ApproverID,
			&record.Result,
			&record.DecidedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
