package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

// normalize clamps the page to the configured sizes.
func (p Page) normalize(policy config.WorkflowConfig) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = policy.DefaultPageSize
	}
	if policy.MaxPageSize > 0 && p.Size > policy.MaxPageSize {
		p.Size = policy.MaxPageSize
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// storeError translates repository errors. conflict is the message used when a
// conditional write lost.
func storeError(err error, resource, conflict string) error {
	var de *apperrors.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &de):
		return de
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(conflict, nil)
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperrors.NewInternalError(err)
	}
}

// requireIdentity rejects calls without a resolved employee and tenant.
func requireIdentity(id domain.Identity) error {
	if id.Employee == nil || id.Tenant == nil {
		return apperrors.NewUnauthorized("identity required")
	}
	if id.Employee.TenantID != id.Tenant.ID {
		return apperrors.NewForbidden("employee does not belong to tenant")
	}
	return nil
}

// publisher stamps and dispatches events. Dispatch failures are logged only.
type publisher struct {
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func orReal(c clock.Clock) clock.Clock {
	if c == nil {
		return clock.Real()
	}
	return c
}
