package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

func validInitialize() InitializeInput {
	return InitializeInput{
		Departments:   []string{"it", "facilities"},
		DefaultLevels: []LevelInput{{Name: "lead", Amount: 500}, {Name: "director", Amount: 5000}},
		CompanyLevels: map[string][]LevelInput{"Acme": {{Name: "acme", Amount: 2000}}},
	}
}

func TestInitializeTenant(t *testing.T) {
	f := newFixture(t)
	adminID := f.employee("admin", admin())

	result, err := f.tenants.Initialize(f.ctx, f.as(adminID), validInitialize())
	require.NoError(t, err)
	assert.Len(t, result.Departments, 2)
	assert.Len(t, result.Levels, 3)
	assert.True(t, f.as(adminID).Tenant.Initialized)

	_, err = f.tenants.Initialize(f.ctx, f.as(adminID), validInitialize())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	depts, err := f.tenants.Departments(f.ctx, f.as(adminID))
	require.NoError(t, err)
	assert.Len(t, depts, 2)

	defaults, err := f.tenants.LevelsForCompany(f.ctx, f.as(adminID), "")
	require.NoError(t, err)
	require.Len(t, defaults, 2)
	assert.Equal(t, int64(500), defaults[0].Amount)

	acme, err := f.tenants.LevelsForCompany(f.ctx, f.as(adminID), "Acme")
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, int64(2000), acme[0].Amount)

	_, err = f.tenants.LevelsForCompany(f.ctx, f.as(adminID), "Globex")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestInitializeRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	plain := f.employee("plain")

	_, err := f.tenants.Initialize(f.ctx, f.as(plain), validInitialize())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestInitializeValidation(t *testing.T) {
	cases := map[string]func(*InitializeInput){
		"no default levels":     func(in *InitializeInput) { in.DefaultLevels = nil },
		"duplicate amount":      func(in *InitializeInput) { in.DefaultLevels = append(in.DefaultLevels, LevelInput{Name: "x", Amount: 500}) },
		"non-positive amount":   func(in *InitializeInput) { in.DefaultLevels[0].Amount = 0 },
		"duplicate department":  func(in *InitializeInput) { in.Departments = []string{"it", "it"} },
		"blank company":         func(in *InitializeInput) { in.CompanyLevels = map[string][]LevelInput{" ": {{Name: "x", Amount: 1}}} },
		"empty company ladder":  func(in *InitializeInput) { in.CompanyLevels = map[string][]LevelInput{"Acme": nil} },
		"unnamed level":         func(in *InitializeInput) { in.DefaultLevels[1].Name = "" },
		"blank department name": func(in *InitializeInput) { in.Departments = []string{""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			adminID := f.employee("admin", admin())
			input := validInitialize()
			mutate(&input)

			_, err := f.tenants.Initialize(f.ctx, f.as(adminID), input)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
			assert.False(t, f.as(adminID).Tenant.Initialized)
		})
	}
}

func TestInitializedTenantAcceptsTickets(t *testing.T) {
	f := newFixture(t)
	adminID := f.employee("admin", admin())
	_, err := f.tenants.Initialize(f.ctx, f.as(adminID), validInitialize())
	require.NoError(t, err)

	ticket := f.create(adminID, 100)
	require.NotNil(t, ticket.CurrentApprovalLevelID)
}
