package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Every state change is a
// conditional update that returns ErrConflict when the ticket is no longer in
// the expected state.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)

	// AdvanceApproval moves a ticket still waiting at fromLevelID to next. A nil
	// next with approvedAt set completes the chain.
	AdvanceApproval(ctx context.Context, id, fromLevelID string, next *string, approverID string, approvedAt *time.Time) error
	MarkRejected(ctx context.Context, id, fromLevelID, approverID string, at time.Time) error
	AssignReceiver(ctx context.Context, id, receiverID string, at time.Time) error
	MarkFinished(ctx context.Context, id, receiverID string, at time.Time) error

	ListPending(ctx context.Context, tenantID, levelID string, limit, offset int) ([]domain.Ticket, error)
	ListAvailable(ctx context.Context, tenantID string, departmentIDs []string, limit, offset int) ([]domain.Ticket, error)
	ListByCreator(ctx context.Context, creatorID string) ([]domain.Ticket, error)
	ListByReceiver(ctx context.Context, receiverID string) ([]domain.Ticket, error)
	// ListCreatedBefore returns tenant tickets created at or before t without funds or departments.
	ListCreatedBefore(ctx context.Context, tenantID string, t time.Time) ([]domain.Ticket, error)
}

const ticketColumns = `
        t.id, t.tenant_id, t.creator_id, t.company, t.title, t.reason, t.address, t.amount,
        t.current_approval_level_id, t.last_approver_id, t.receiver_id,
        t.created_at, t.approved_at, t.received_at, t.finished_at, t.rejected_at,
        (SELECT MIN(ar.decided_at) FROM approval_records ar WHERE ar.ticket_id = t.id)`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tenant_id, creator_id, company, title, reason, address, amount,
            current_approval_level_id, created_at, approved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	const fundQuery = `INSERT INTO ticket_funds (ticket_id, position, reason, amount) VALUES ($1,$2,$3,$4)`
	const deptQuery = `INSERT INTO ticket_departments (ticket_id, department_id) VALUES ($1,$2)`

	db := conn(ctx, r.pool)
	if err := db.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.CreatorID,
		ticket.Company,
		ticket.Title,
		ticket.Reason,
		ticket.Address,
		ticket.Amount,
		ticket.CurrentApprovalLevelID,
		ticket.CreatedAt,
		ticket.ApprovedAt,
	).Scan(&ticket.ID); err != nil {
		return err
	}
	for i, fund := range ticket.Funds {
		if _, err := db.Exec(ctx, fundQuery, ticket.ID, i, fund.Reason, fund.Amount); err != nil {
			return err
		}
	}
	for _, deptID := range ticket.DepartmentIDs {
		if _, err := db.Exec(ctx, deptQuery, ticket.ID, deptID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `SELECT` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	db := conn(ctx, r.pool)
	ticket, err := scanTicket(db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{*ticket}
	if err := loadTicketDetails(ctx, db, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) AdvanceApproval(ctx context.Context, id, fromLevelID string, next *string, approverID string, approvedAt *time.Time) error {
	const query = `
        UPDATE tickets SET current_approval_level_id=$3, last_approver_id=$4, approved_at=$5
        WHERE id=$1 AND current_approval_level_id=$2 AND approved_at IS NULL AND rejected_at IS NULL`
	return expectOne(conn(ctx, r.pool).Exec(ctx, query, id, fromLevelID, next, approverID, approvedAt))
}

func (r *ticketRepository) MarkRejected(ctx context.Context, id, fromLevelID, approverID string, at time.Time) error {
	const query = `
        UPDATE tickets SET last_approver_id=$3, rejected_at=$4
        WHERE id=$1 AND current_approval_level_id=$2 AND approved_at IS NULL AND rejected_at IS NULL`
	return expectOne(conn(ctx, r.pool).Exec(ctx, query, id, fromLevelID, approverID, at))
}

func (r *ticketRepository) AssignReceiver(ctx context.Context, id, receiverID string, at time.Time) error {
	const query = `
        UPDATE tickets SET receiver_id=$2, received_at=$3
        WHERE id=$1 AND receiver_id IS NULL AND approved_at IS NOT NULL AND rejected_at IS NULL`
	return expectOne(conn(ctx, r.pool).Exec(ctx, query, id, receiverID, at))
}

func (r *ticketRepository) MarkFinished(ctx context.Context, id, receiverID string, at time.Time) error {
	const query = `
        UPDATE tickets SET finished_at=$3
        WHERE id=$1 AND receiver_id=$2 AND finished_at IS NULL AND rejected_at IS NULL`
	return expectOne(conn(ctx, r.pool).Exec(ctx, query, id, receiverID, at))
}

func (r *ticketRepository) ListPending(ctx context.Context, tenantID, levelID string, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT` + ticketColumns + `
        FROM tickets t
        WHERE t.tenant_id=$1 AND t.current_approval_level_id=$2
          AND t.approved_at IS NULL AND t.rejected_at IS NULL
        ORDER BY t.created_at ASC, t.id ASC
        LIMIT $3 OFFSET $4`
	return r.list(ctx, true, query, tenantID, levelID, limit, offset)
}

func (r *ticketRepository) ListAvailable(ctx context.Context, tenantID string, departmentIDs []string, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT` + ticketColumns + `
        FROM tickets t
        WHERE t.tenant_id=$1 AND t.approved_at IS NOT NULL AND t.receiver_id IS NULL AND t.rejected_at IS NULL
          AND (NOT EXISTS (SELECT 1 FROM ticket_departments td WHERE td.ticket_id = t.id)
               OR EXISTS (SELECT 1 FROM ticket_departments td
                          WHERE td.ticket_id = t.id AND td.department_id = ANY($2::uuid[])))
        ORDER BY t.approved_at ASC, t.id ASC
        LIMIT $3 OFFSET $4`
	if departmentIDs == nil {
		departmentIDs = []string{}
	}
	return r.list(ctx, true, query, tenantID, departmentIDs, limit, offset)
}

func (r *ticketRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Ticket, error) {
	const query = `SELECT` + ticketColumns + ` FROM tickets t WHERE t.creator_id=$1 ORDER BY t.created_at DESC`
	return r.list(ctx, true, query, creatorID)
}

func (r *ticketRepository) ListByReceiver(ctx context.Context, receiverID string) ([]domain.Ticket, error) {
	const query = `SELECT` + ticketColumns + ` FROM tickets t WHERE t.receiver_id=$1 ORDER BY t.received_at DESC`
	return r.list(ctx, true, query, receiverID)
}

func (r *ticketRepository) ListCreatedBefore(ctx context.Context, tenantID string, at time.Time) ([]domain.Ticket, error) {
	const query = `SELECT` + ticketColumns + ` FROM tickets t WHERE t.tenant_id=$1 AND t.created_at <= $2`
	return r.list(ctx, false, query, tenantID, at)
}

func (r *ticketRepository) list(ctx context.Context, details bool, query string, args ...any) ([]domain.Ticket, error) {
	db := conn(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if details {
		if err := loadTicketDetails(ctx, db, tickets); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.CreatorID,
		&ticket.Company,
		&ticket.Title,
		&ticket.Reason,
		&ticket.Address,
		&ticket.Amount,
		&ticket.CurrentApprovalLevelID,
		&ticket.LastApproverID,
		&ticket.ReceiverID,
		&ticket.CreatedAt,
		&ticket.ApprovedAt,
		&ticket.ReceivedAt,
		&ticket.FinishedAt,
		&ticket.RejectedAt,
		&ticket.FirstDecisionAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// loadTicketDetails fills funds and required departments for tickets in place.
func loadTicketDetails(ctx context.Context, db DBTX, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, len(tickets))
	index := make(map[string]int, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
		index[tickets[i].ID] = i
	}

	const fundQuery = `
        SELECT ticket_id, reason, amount FROM ticket_funds
        WHERE ticket_id = ANY($1::uuid[]) ORDER BY ticket_id, position`
	rows, err := db.Query(ctx, fundQuery, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var ticketID string
		var fund domain.Fund
		if err := rows.Scan(&ticketID, &fund.Reason, &fund.Amount); err != nil {
			rows.Close()
			return err
		}
		i := index[ticketID]
		tickets[i].Funds = append(tickets[i].Funds, fund)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const deptQuery = `
        SELECT ticket_id, department_id FROM ticket_departments
        WHERE ticket_id = ANY($1::uuid[]) ORDER BY ticket_id, department_id`
	rows, err = db.Query(ctx, deptQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ticketID, deptID string
		if err := rows.Scan(&ticketID, &deptID); err != nil {
			return err
		}
		i := index[ticketID]
		tickets[i].DepartmentIDs = append(tickets[i].DepartmentIDs, deptID)
	}
	return rows.Err()
}
