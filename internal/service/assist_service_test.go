package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

type assistScene struct {
	*fixture
	ticket     *domain.Ticket
	receiver   string
	it         string
	facilities string
}

func newAssistScene(t *testing.T) *assistScene {
	f := newFixture(t)
	level := f.level("manager", 1000, "")
	s := &assistScene{fixture: f, it: f.department("it"), facilities: f.department("facilities")}
	f.initialized()
	creator := f.employee("creator")
	approver := f.employee("approver", seat(level))
	s.receiver = f.employee("receiver")

	s.ticket = f.create(creator, 300)
	_, err := f.tickets.Approve(f.ctx, f.as(approver), s.ticket.ID)
	require.NoError(t, err)
	_, err = f.tickets.Take(f.ctx, f.as(s.receiver), s.ticket.ID)
	require.NoError(t, err)
	return s
}

func TestCreateAssistOnlyByReceiver(t *testing.T) {
	s := newAssistScene(t)
	other := s.employee("other")

	_, err := s.assists.CreateAssist(s.ctx, s.as(other), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: 1}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: 0}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	assist, err := s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: 2}})
	require.NoError(t, err)
	assert.Equal(t, domain.AssistOpen, assist.State)
	require.Len(t, assist.Requirements, 1)
	assert.Equal(t, 0, assist.Requirements[0].Current)
}

func TestJoinAssistSaturatesRequirement(t *testing.T) {
	s := newAssistScene(t)
	assist, err := s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{
		{DepartmentID: s.it, Total: 1},
		{DepartmentID: s.facilities, Total: 2},
	})
	require.NoError(t, err)

	first := s.employee("first", inDepartments(s.it))
	second := s.employee("second", inDepartments(s.it))
	both := s.employee("both", inDepartments(s.it, s.facilities))
	outsider := s.employee("outsider")

	joined, err := s.assists.JoinAssist(s.ctx, s.as(first), assist.ID)
	require.NoError(t, err)
	assert.Contains(t, joined.ParticipantIDs, first)
	assert.False(t, s.as(first).Employee.Available)

	_, err = s.assists.JoinAssist(s.ctx, s.as(second), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "it requirement is full")

	joined, err = s.assists.JoinAssist(s.ctx, s.as(both), assist.ID)
	require.NoError(t, err)
	for _, req := range joined.Requirements {
		switch req.DepartmentID {
		case s.it:
			assert.Equal(t, 1, req.Current)
			assert.Equal(t, domain.AssistClosed, req.State)
		case s.facilities:
			assert.Equal(t, 1, req.Current)
			assert.Equal(t, domain.AssistOpen, req.State)
		}
	}

	_, err = s.assists.JoinAssist(s.ctx, s.as(both), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	_, err = s.assists.JoinAssist(s.ctx, s.as(outsider), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestSubmitterCannotJoinOwnAssist(t *testing.T) {
	s := newAssistScene(t)
	assist, err := s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: 1}})
	require.NoError(t, err)

	_, err = s.assists.JoinAssist(s.ctx, s.as(s.receiver), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestCloseAssistReleasesParticipants(t *testing.T) {
	s := newAssistScene(t)
	assist, err := s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: 3}})
	require.NoError(t, err)
	helper := s.employee("helper", inDepartments(s.it))
	late := s.employee("late", inDepartments(s.it))
	_, err = s.assists.JoinAssist(s.ctx, s.as(helper), assist.ID)
	require.NoError(t, err)

	_, err = s.assists.CloseAssist(s.ctx, s.as(helper), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	closed, err := s.assists.CloseAssist(s.ctx, s.as(s.receiver), assist.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssistClosed, closed.State)
	assert.NotNil(t, closed.ClosedAt)
	assert.True(t, s.as(helper).Employee.Available)

	_, err = s.assists.JoinAssist(s.ctx, s.as(late), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	_, err = s.assists.CloseAssist(s.ctx, s.as(s.receiver), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestBusyEmployeeCannotJoin(t *testing.T) {
	s := newAssistScene(t)
	assist, err := s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: 2}})
	require.NoError(t, err)
	busy := s.employee("busy", inDepartments(s.it))
	require.NoError(t, s.store.Employees().Reserve(s.ctx, busy))

	_, err = s.assists.JoinAssist(s.ctx, s.as(busy), assist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	current, err := s.store.Assists().GetByID(s.ctx, assist.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Requirements[0].Current, "failed join must not consume a place")
	assert.Empty(t, current.ParticipantIDs)
}

func TestConcurrentJoinsNeverOverfillRequirement(t *testing.T) {
	s := newAssistScene(t)
	const total = 2
	assist, err := s.assists.CreateAssist(s.ctx, s.as(s.receiver), s.ticket.ID, []RequirementInput{{DepartmentID: s.it, Total: total}})
	require.NoError(t, err)

	const joiners = 6
	identities := make([]domain.Identity, joiners)
	for i := range identities {
		identities[i] = s.as(s.employee("joiner", inDepartments(s.it)))
	}

	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i := range identities {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.assists.JoinAssist(context.Background(), identities[i], assist.ID)
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "loser got %v", err)
	}
	assert.Equal(t, total, joined)

	got, err := s.store.Assists().GetByID(s.ctx, assist.ID)
	require.NoError(t, err)
	require.Len(t, got.Requirements, 1)
	assert.Equal(t, total, got.Requirements[0].Current)
	assert.Equal(t, domain.AssistClosed, got.Requirements[0].State)
	assert.Len(t, got.ParticipantIDs, total)
}
