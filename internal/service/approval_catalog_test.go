package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func catalogLevels() []domain.ApprovalLevel {
	return []domain.ApprovalLevel{
		{ID: "d500", Amount: 500, Seq: 1},
		{ID: "d5000", Amount: 5000, Seq: 2},
		{ID: "a2000", Amount: 2000, Company: strPtr("Acme"), Seq: 3},
		{ID: "a9000", Amount: 9000, Company: strPtr("Acme"), Seq: 4},
	}
}

func TestNextLevel(t *testing.T) {
	levels := catalogLevels()
	cases := []struct {
		name      string
		company   *string
		threshold int64
		policy    config.CompanyFallback
		want      string
	}{
		{"default first", nil, 0, config.FallbackSpecificThenDefault, "d500"},
		{"default next", nil, 500, config.FallbackSpecificThenDefault, "d5000"},
		{"default exhausted", nil, 5000, config.FallbackSpecificThenDefault, ""},
		{"company override", strPtr("Acme"), 0, config.FallbackSpecificThenDefault, "a2000"},
		{"company next", strPtr("Acme"), 2000, config.FallbackSpecificThenDefault, "a9000"},
		{"unknown company falls back", strPtr("Globex"), 0, config.FallbackSpecificThenDefault, "d500"},
		{"default only ignores company", strPtr("Acme"), 0, config.FallbackDefaultOnly, "d500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextLevel(levels, tc.company, tc.threshold, tc.policy)
			if tc.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.ID)
		})
	}
}

func TestNextLevelPrefersEarlierSeqOnTie(t *testing.T) {
	levels := []domain.ApprovalLevel{
		{ID: "late", Amount: 100, Seq: 7},
		{ID: "early", Amount: 100, Seq: 3},
	}
	got := NextLevel(levels, nil, 0, config.FallbackSpecificThenDefault)
	require.NotNil(t, got)
	assert.Equal(t, "early", got.ID)
}

type countingLevels struct {
	levels []domain.ApprovalLevel
	calls  int
}

func (c *countingLevels) Create(context.Context, *domain.ApprovalLevel) error { return nil }

func (c *countingLevels) GetByID(context.Context, string) (*domain.ApprovalLevel, error) {
	return nil, nil
}

func (c *countingLevels) ListByTenant(context.Context, string) ([]domain.ApprovalLevel, error) {
	c.calls++
	return c.levels, nil
}

type mapCache struct {
	entries map[string][]domain.ApprovalLevel
}

func (m *mapCache) Get(_ context.Context, tenantID string) ([]domain.ApprovalLevel, bool, error) {
	levels, ok := m.entries[tenantID]
	return levels, ok, nil
}

func (m *mapCache) Set(_ context.Context, tenantID string, levels []domain.ApprovalLevel) error {
	m.entries[tenantID] = levels
	return nil
}

func (m *mapCache) Invalidate(_ context.Context, tenantID string) error {
	delete(m.entries, tenantID)
	return nil
}

func TestCatalogReadsThroughCache(t *testing.T) {
	repo := &countingLevels{levels: catalogLevels()}
	catalog := NewApprovalCatalog(CatalogDependencies{LevelRepo: repo, Cache: &mapCache{entries: map[string][]domain.ApprovalLevel{}}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := catalog.Levels(ctx, "t1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.calls)

	catalog.Invalidate(ctx, "t1")
	level, err := catalog.Level(ctx, "t1", "a2000")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), level.Amount)
	assert.Equal(t, 2, repo.calls)

	_, err = catalog.Level(ctx, "t1", "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCatalogDoesNotCacheEmptyLevels(t *testing.T) {
	repo := &countingLevels{}
	cache := &mapCache{entries: map[string][]domain.ApprovalLevel{}}
	catalog := NewApprovalCatalog(CatalogDependencies{LevelRepo: repo, Cache: cache})
	ctx := context.Background()

	levels, err := catalog.Levels(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, levels)
	assert.NotContains(t, cache.entries, "t1")

	repo.levels = catalogLevels()
	levels, err = catalog.Levels(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, levels, len(catalogLevels()))
	assert.Equal(t, 2, repo.calls)
	assert.Contains(t, cache.entries, "t1")
}

func TestValidateLevels(t *testing.T) {
	assert.NoError(t, ValidateLevels("default", []LevelInput{{Name: "a", Amount: 1}, {Name: "b", Amount: 2}}, true))
	assert.Error(t, ValidateLevels("default", nil, true))
	assert.NoError(t, ValidateLevels("default", nil, false))
	assert.Error(t, ValidateLevels("default", []LevelInput{{Name: "a", Amount: 1}, {Name: "b", Amount: 1}}, true))
}
