package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestCheckID(t *testing.T) {
	assert.NoError(t, checkID(uuid.NewString()))
	for _, id := range []string{"", "abc", "42", "3fa85f64-5717-4562-b3fc"} {
		assert.ErrorIs(t, checkID(id), pgx.ErrNoRows, id)
	}
}

// A nil pool proves the lookup never reaches the database.
func TestGetByIDMalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()

	_, err := NewTicketRepository(nil).GetByID(ctx, "abc")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = NewAssistRepository(nil).GetByID(ctx, "abc")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = NewEmployeeRepository(nil).GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = NewTenantRepository(nil).GetByID(ctx, "tenant-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = NewApprovalLevelRepository(nil).GetByID(ctx, "lead")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
