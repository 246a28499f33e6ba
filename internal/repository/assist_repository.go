package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// AssistRepository persists assists, their department requirements and participants.
type AssistRepository interface {
	Create(ctx context.Context, assist *domain.Assist) error
	GetByID(ctx context.Context, id string) (*domain.Assist, error)
	// IncrementRequirement adds one person to an open, unfilled requirement of an
	// open assist and closes the requirement when it reaches its total.
	IncrementRequirement(ctx context.Context, assistID, departmentID string) error
	// AddParticipant returns ErrConflict when the employee already joined.
	AddParticipant(ctx context.Context, assistID, employeeID string, at time.Time) error
	Close(ctx context.Context, assistID string, at time.Time) error
	CountOpenByTicket(ctx context.Context, ticketID string) (int, error)
	ListOpenForDepartments(ctx context.Context, tenantID string, departmentIDs []string) ([]domain.Assist, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Assist, error)
	ListByParticipant(ctx context.Context, employeeID string) ([]domain.Assist, error)
}

const assistColumns = `a.id, a.tenant_id, a.ticket_id, a.submitter_id, a.state, a.created_at, a.closed_at`

type assistRepository struct {
	pool *pgxpool.Pool
}

// NewAssistRepository builds the repository.
func NewAssistRepository(pool *pgxpool.Pool) AssistRepository {
	return &assistRepository{pool: pool}
}

func (r *assistRepository) Create(ctx context.Context, assist *domain.Assist) error {
	const query = `
        INSERT INTO assists (tenant_id, ticket_id, submitter_id, state, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	const reqQuery = `
        INSERT INTO assist_requirements (assist_id, department_id, total_num, current_num, state)
        VALUES ($1,$2,$3,$4,$5)`
	db := conn(ctx, r.pool)
	if err := db.QueryRow(ctx, query,
		assist.TenantID,
		assist.TicketID,
		assist.SubmitterID,
		assist.State,
		assist.CreatedAt,
	).Scan(&assist.ID); err != nil {
		return err
	}
	for i := range assist.Requirements {
		req := &assist.Requirements[i]
		req.AssistID = assist.ID
		if _, err := db.Exec(ctx, reqQuery, assist.ID, req.DepartmentID, req.Total, req.Current, req.State); err != nil {
			return err
		}
	}
	return nil
}

func (r *assistRepository) GetByID(ctx context.Context, id string) (*domain.Assist, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `SELECT ` + assistColumns + ` FROM assists a WHERE a.id=$1`
	db := conn(ctx, r.pool)
	assist, err := scanAssist(db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	assists := []domain.Assist{*assist}
	if err := loadAssistDetails(ctx, db, assists); err != nil {
		return nil, err
	}
	return &assists[0], nil
}

func (r *assistRepository) IncrementRequirement(ctx context.Context, assistID, departmentID string) error {
	const query = `
        UPDATE assist_requirements
        SET current_num = current_num + 1,
            state = CASE WHEN current_num + 1 >= total_num THEN 'closed' ELSE 'open' END
        WHERE assist_id=$1 AND department_id=$2 AND state='open' AND current_num < total_num
          AND EXISTS (SELECT 1 FROM assists a WHERE a.id=$1 AND a.state='open')`
	return expectOne(conn(ctx, r.pool).Exec(ctx, query, assistID, departmentID))
}

func (r *assistRepository) AddParticipant(ctx context.Context, assistID, employeeID string, at time.Time) error {
	const query = `
        INSERT INTO assist_participants (assist_id, employee_id, joined_at)
        VALUES ($1,$2,$3)`
	_, err := conn(ctx, r.pool).Exec(ctx, query, assistID, employeeID, at)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *assistRepository) Close(ctx context.Context, assistID string, at time.Time) error {
	const query = `UPDATE assists SET state='closed', closed_at=$2 WHERE id=$1 AND state='open'`
	const reqQuery = `UPDATE assist_requirements SET state='closed' WHERE assist_id=$1`
	db := conn(ctx, r.pool)
	if err := expectOne(db.Exec(ctx, query, assistID, at)); err != nil {
		return err
	}
	_, err := db.Exec(ctx, reqQuery, assistID)
	return err
}

func (r *assistRepository) CountOpenByTicket(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assists WHERE ticket_id=$1 AND state='open'`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(&count)
	return count, err
}

func (r *assistRepository) ListOpenForDepartments(ctx context.Context, tenantID string, departmentIDs []string) ([]domain.Assist, error) {
	const query = `SELECT ` + assistColumns + `
        FROM assists a
        WHERE a.tenant_id=$1 AND a.state='open'
          AND EXISTS (SELECT 1 FROM assist_requirements ar
                      WHERE ar.assist_id = a.id AND ar.state='open' AND ar.department_id = ANY($2::uuid[]))
        ORDER BY a.created_at ASC`
	if departmentIDs == nil {
		departmentIDs = []string{}
	}
	return r.list(ctx, query, tenantID, departmentIDs)
}

func (r *assistRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Assist, error) {
	const query = `SELECT ` + assistColumns + ` FROM assists a WHERE a.submitter_id=$1 ORDER BY a.created_at DESC`
	return r.list(ctx, query, submitterID)
}

func (r *assistRepository) ListByParticipant(ctx context.Context, employeeID string) ([]domain.Assist, error) {
	const query = `SELECT ` + assistColumns + `
        FROM assists a
        JOIN assist_participants p ON p.assist_id = a.id
        WHERE p.employee_id=$1 ORDER BY a.created_at DESC`
	return r.list(ctx, query, employeeID)
}

func (r *assistRepository) list(ctx context.Context, query string, args ...any) ([]domain.Assist, error) {
	db := conn(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var assists []domain.Assist
	for rows.Next() {
		assist, err := scanAssist(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		assists = append(assists, *assist)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadAssistDetails(ctx, db, assists); err != nil {
		return nil, err
	}
	return assists, nil
}

func scanAssist(row pgx.Row) (*domain.Assist, error) {
	var assist domain.Assist
	if err := row.Scan(
		&assist.ID,
		&assist.TenantID,
		&assist.TicketID,
		&assist.SubmitterID,
		&assist.State,
		&assist.CreatedAt,
		&assist.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &assist, nil
}

func loadAssistDetails(ctx context.Context, db DBTX, assists []domain.Assist) error {
	if len(assists) == 0 {
		return nil
	}
	ids := make([]string, len(assists))
	index := make(map[string]int, len(assists))
	for i := range assists {
		ids[i] = assists[i].ID
		index[assists[i].ID] = i
	}

	const reqQuery = `
        SELECT assist_id, department_id, total_num, current_num, state
        FROM assist_requirements WHERE assist_id = ANY($1::uuid[]) ORDER BY assist_id, department_id`
	rows, err := db.Query(ctx, reqQuery, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var req domain.AssistRequirement
		if err := rows.Scan(&req.AssistID, &req.DepartmentID, &req.Total, &req.Current, &req.State); err != nil {
			rows.Close()
			return err
		}
		i := index[req.AssistID]
		assists[i].Requirements = append(assists[i].Requirements, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const partQuery = `
        SELECT assist_id, employee_id FROM assist_participants
        WHERE assist_id = ANY($1::uuid[]) ORDER BY assist_id, joined_at`
	rows, err = db.Query(ctx, partQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var assistID, employeeID string
		if err := rows.Scan(&assistID, &employeeID); err != nil {
			return err
		}
		i := index[assistID]
		assists[i].ParticipantIDs = append(assists[i].ParticipantIDs, employeeID)
	}
	return rows.Err()
}
