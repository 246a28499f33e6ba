package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := &domain.Tenant{Name: "acme"}
	require.NoError(t, s.Tenants().Create(ctx, tenant))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Departments().Create(ctx, &domain.Department{TenantID: tenant.ID, Name: "it"}))
		require.NoError(t, s.Tenants().MarkInitialized(ctx, tenant.ID, time.Now()))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	depts, err := s.Departments().ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, depts)
	got, err := s.Tenants().GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, got.Initialized)
}

func TestWithTxCancelledContextRollsBack(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	err := s.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Tenants().Create(txCtx, &domain.Tenant{ID: "t1", Name: "acme"}))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Tenants().GetByID(context.Background(), "t1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestAssignReceiverIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	ticket := &domain.Ticket{TenantID: "t", CreatorID: "c", Amount: 10, CreatedAt: now, ApprovedAt: &now}
	require.NoError(t, s.Tickets().Create(ctx, ticket))

	require.NoError(t, s.Tickets().AssignReceiver(ctx, ticket.ID, "e1", now))
	assert.ErrorIs(t, s.Tickets().AssignReceiver(ctx, ticket.ID, "e2", now), repository.ErrConflict)

	got, err := s.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReceiverID)
	assert.Equal(t, "e1", *got.ReceiverID)
}

func TestIncrementRequirementSaturates(t *testing.T) {
	ctx := context.Background()
	s := New()
	assist := &domain.Assist{TenantID: "t", State: domain.AssistOpen, Requirements: []domain.AssistRequirement{
		{DepartmentID: "it", Total: 1, State: domain.AssistOpen},
	}}
	require.NoError(t, s.Assists().Create(ctx, assist))

	require.NoError(t, s.Assists().IncrementRequirement(ctx, assist.ID, "it"))
	assert.ErrorIs(t, s.Assists().IncrementRequirement(ctx, assist.ID, "it"), repository.ErrConflict)

	got, err := s.Assists().GetByID(ctx, assist.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Requirements[0].Current)
	assert.Equal(t, domain.AssistClosed, got.Requirements[0].State)
}

func TestFirstDecisionDerivedFromRecords(t *testing.T) {
	ctx := context.Background()
	s := New()
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	level := "lvl"
	ticket := &domain.Ticket{TenantID: "t", CreatorID: "c", Amount: 10, CreatedAt: created, CurrentApprovalLevelID: &level}
	require.NoError(t, s.Tickets().Create(ctx, ticket))

	got, _ := s.Tickets().GetByID(ctx, ticket.ID)
	assert.Nil(t, got.FirstDecisionAt)

	decided := created.Add(time.Hour)
	require.NoError(t, s.Records().Append(ctx, &domain.ApprovalRecord{
		TicketID: ticket.ID, ApprovalLevelID: level, ApproverID: "a", Result: domain.ApprovalApproved, DecidedAt: decided,
	}))
	got, _ = s.Tickets().GetByID(ctx, ticket.ID)
	require.NotNil(t, got.FirstDecisionAt)
	assert.Equal(t, decided, *got.FirstDecisionAt)
	assert.Equal(t, domain.StateApproving, got.StateAt(decided))
}
