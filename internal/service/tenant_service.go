package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// TenantService sets up a tenant's departments and approval ladder.
type TenantService struct {
	tx          repository.TxManager
	tenants     repository.TenantRepository
	departments repository.DepartmentRepository
	levels      repository.ApprovalLevelRepository
	catalog     *ApprovalCatalog
	clock       clock.Clock
	logger      *zap.Logger
}

// TenantDependencies bundles collaborators for the tenant service.
type TenantDependencies struct {
	TxManager      repository.TxManager
	TenantRepo     repository.TenantRepository
	DepartmentRepo repository.DepartmentRepository
	LevelRepo      repository.ApprovalLevelRepository
	Catalog        *ApprovalCatalog
	Clock          clock.Clock
	Logger         *zap.Logger
}

// InitializeInput is the one-time configuration of a tenant.
type InitializeInput struct {
	Departments   []string
	DefaultLevels []LevelInput
	CompanyLevels map[string][]LevelInput
}

// InitializeResult lists what Initialize created.
type InitializeResult struct {
	Departments []domain.Department
	Levels      []domain.ApprovalLevel
}

// NewTenantService constructs the service.
func NewTenantService(deps TenantDependencies) *TenantService {
	return &TenantService{
		tx:          deps.TxManager,
		tenants:     deps.TenantRepo,
		departments: deps.DepartmentRepo,
		levels:      deps.LevelRepo,
		catalog:     deps.Catalog,
		clock:       orReal(deps.Clock),
		logger:      orNop(deps.Logger),
	}
}

// Initialize creates departments and approval levels and marks the tenant ready
// for tickets. It runs once per tenant and requires at least one default level.
func (s *TenantService) Initialize(ctx context.Context, id domain.Identity, input InitializeInput) (*InitializeResult, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if id.Employee.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if err := validateInitialize(input); err != nil {
		return nil, err
	}
	tenantID := id.TenantID()

	current, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, storeError(err, "tenant", "")
	}
	if current.Initialized {
		return nil, apperrors.NewConflict("tenant is already initialized", nil)
	}

	result := &InitializeResult{}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		result.Departments = result.Departments[:0]
		result.Levels = result.Levels[:0]
		for _, name := range input.Departments {
			dept := &domain.Department{TenantID: tenantID, Name: strings.TrimSpace(name)}
			if err := s.departments.Create(ctx, dept); err != nil {
				return storeError(err, "department", "department already exists")
			}
			result.Departments = append(result.Departments, *dept)
		}
		if err := s.createLevels(ctx, tenantID, nil, input.DefaultLevels, result); err != nil {
			return err
		}
		companies := make([]string, 0, len(input.CompanyLevels))
		for company := range input.CompanyLevels {
			companies = append(companies, company)
		}
		sort.Strings(companies)
		for _, company := range companies {
			name := strings.TrimSpace(company)
			if err := s.createLevels(ctx, tenantID, &name, input.CompanyLevels[company], result); err != nil {
				return err
			}
		}
		return s.tenants.MarkInitialized(ctx, tenantID, s.clock.Now())
	})
	if err != nil {
		return nil, storeError(err, "tenant", "tenant is already initialized")
	}
	s.catalog.Invalidate(ctx, tenantID)

	s.logger.Info("tenant initialized",
		zap.String("system_id", tenantID),
		zap.String("employee_id", id.Employee.ID),
		zap.Int("departments", len(result.Departments)),
		zap.Int("levels", len(result.Levels)))
	return result, nil
}

func (s *TenantService) createLevels(ctx context.Context, tenantID string, company *string, inputs []LevelInput, result *InitializeResult) error {
	for _, in := range inputs {
		level := &domain.ApprovalLevel{
			TenantID: tenantID,
			Name:     strings.TrimSpace(in.Name),
			Amount:   in.Amount,
			Company:  company,
		}
		if err := s.levels.Create(ctx, level); err != nil {
			return storeError(err, "approval level", "approval level amounts must be distinct")
		}
		result.Levels = append(result.Levels, *level)
	}
	return nil
}

func validateInitialize(input InitializeInput) error {
	if err := ValidateLevels("default", input.DefaultLevels, true); err != nil {
		return err
	}
	for company, levels := range input.CompanyLevels {
		if strings.TrimSpace(company) == "" {
			return apperrors.NewValidationError("company name required", nil)
		}
		if err := ValidateLevels(company, levels, true); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(input.Departments))
	for _, name := range input.Departments {
		name = strings.TrimSpace(name)
		if name == "" {
			return apperrors.NewValidationError("department name required", nil)
		}
		if seen[name] {
			return apperrors.NewValidationError("duplicate department", map[string]any{"name": name})
		}
		seen[name] = true
	}
	return nil
}

// LevelsForCompany returns the levels configured specifically for company, or
// the default levels when company is empty.
func (s *TenantService) LevelsForCompany(ctx context.Context, id domain.Identity, company string) ([]domain.ApprovalLevel, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	levels, err := s.catalog.Levels(ctx, id.TenantID())
	if err != nil {
		return nil, err
	}
	var scope *string
	if c := strings.TrimSpace(company); c != "" {
		scope = &c
	}
	out := []domain.ApprovalLevel{}
	for _, level := range levels {
		if level.InScope(scope) {
			out = append(out, level)
		}
	}
	if scope != nil && len(out) == 0 {
		return nil, apperrors.NewNotFound("approval levels for company", map[string]any{"company": company})
	}
	return out, nil
}

// Departments lists the tenant's departments.
func (s *TenantService) Departments(ctx context.Context, id domain.Identity) ([]domain.Department, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	depts, err := s.departments.ListByTenant(ctx, id.TenantID())
	if err != nil {
		return nil, storeError(err, "department", "")
	}
	if depts == nil {
		depts = []domain.Department{}
	}
	return depts, nil
}
