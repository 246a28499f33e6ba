package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/cache"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// ApprovalCatalog resolves approval chains from a tenant's configured levels.
type ApprovalCatalog struct {
	levels   repository.ApprovalLevelRepository
	cache    cache.LevelCache
	fallback config.CompanyFallback
	logger   *zap.Logger
}

// CatalogDependencies bundles collaborators for the catalog.
type CatalogDependencies struct {
	LevelRepo repository.ApprovalLevelRepository
	Cache     cache.LevelCache
	Fallback  config.CompanyFallback
	Logger    *zap.Logger
}

// NewApprovalCatalog constructs the catalog.
func NewApprovalCatalog(deps CatalogDependencies) *ApprovalCatalog {
	c := &ApprovalCatalog{
		levels:   deps.LevelRepo,
		cache:    deps.Cache,
		fallback: deps.Fallback,
		logger:   deps.Logger,
	}
	if c.cache == nil {
		c.cache = cache.Nop{}
	}
	if c.fallback == "" {
		c.fallback = config.FallbackSpecificThenDefault
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Levels returns every level of the tenant, ordered by amount then insertion order.
func (c *ApprovalCatalog) Levels(ctx context.Context, tenantID string) ([]domain.ApprovalLevel, error) {
	levels, ok, err := c.cache.Get(ctx, tenantID)
	if err != nil {
		c.logger.Warn("approval level cache read failed", zap.String("system_id", tenantID), zap.Error(err))
	}
	if ok {
		return levels, nil
	}
	levels, err = c.levels.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	// An empty list may be read just before Initialize commits; caching it
	// would hide the new levels for the whole TTL.
	if len(levels) == 0 {
		return levels, nil
	}
	if err := c.cache.Set(ctx, tenantID, levels); err != nil {
		c.logger.Warn("approval level cache write failed", zap.String("system_id", tenantID), zap.Error(err))
	}
	return levels, nil
}

// Invalidate drops the cached levels of the tenant.
func (c *ApprovalCatalog) Invalidate(ctx context.Context, tenantID string) {
	if err := c.cache.Invalidate(ctx, tenantID); err != nil {
		c.logger.Warn("approval level cache invalidation failed", zap.String("system_id", tenantID), zap.Error(err))
	}
}

// Level returns one level of the tenant.
func (c *ApprovalCatalog) Level(ctx context.Context, tenantID, levelID string) (*domain.ApprovalLevel, error) {
	levels, err := c.Levels(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range levels {
		if levels[i].ID == levelID {
			return &levels[i], nil
		}
	}
	return nil, apperrors.NewNotFound("approval level", map[string]any{"id": levelID})
}

// NextLevel returns the level above threshold for company, or nil when the chain is exhausted.
func (c *ApprovalCatalog) NextLevel(ctx context.Context, tenantID string, company *string, threshold int64) (*domain.ApprovalLevel, error) {
	levels, err := c.Levels(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return NextLevel(levels, company, threshold, c.fallback), nil
}

// ScopeLevels selects the levels that apply to company under policy.
func ScopeLevels(levels []domain.ApprovalLevel, company *string, policy config.CompanyFallback) []domain.ApprovalLevel {
	var defaults, specific []domain.ApprovalLevel
	for _, level := range levels {
		switch {
		case level.IsDefault():
			defaults = append(defaults, level)
		case company != nil && level.InScope(company):
			specific = append(specific, level)
		}
	}
	if policy == config.FallbackDefaultOnly || len(specific) == 0 {
		return defaults
	}
	return specific
}

// NextLevel picks the level with the smallest amount strictly greater than
// threshold, preferring the lowest Seq on equal amounts.
func NextLevel(levels []domain.ApprovalLevel, company *string, threshold int64, policy config.CompanyFallback) *domain.ApprovalLevel {
	var best *domain.ApprovalLevel
	scoped := ScopeLevels(levels, company, policy)
	for i := range scoped {
		level := &scoped[i]
		if level.Amount <= threshold {
			continue
		}
		if best == nil || level.Amount < best.Amount || (level.Amount == best.Amount && level.Seq < best.Seq) {
			best = level
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// LevelInput describes one configured level.
type LevelInput struct {
	Name   string
	Amount int64
}

// ValidateLevels checks one scope of levels. requireOne rejects an empty scope.
func ValidateLevels(scope string, levels []LevelInput, requireOne bool) error {
	if requireOne && len(levels) == 0 {
		return apperrors.NewValidationError("at least one approval level is required", map[string]any{"scope": scope})
	}
	seen := make(map[int64]struct{}, len(levels))
	for i, level := range levels {
		if strings.TrimSpace(level.Name) == "" {
			return apperrors.NewValidationError("approval level name required", map[string]any{"scope": scope, "index": i})
		}
		if level.Amount <= 0 {
			return apperrors.NewValidationError("approval level amount must be positive", map[string]any{"scope": scope, "index": i})
		}
		if _, dup := seen[level.Amount]; dup {
			return apperrors.NewValidationError("approval level amounts must be distinct", map[string]any{"scope": scope, "amount": level.Amount})
		}
		seen[level.Amount] = struct{}{}
	}
	return nil
}
