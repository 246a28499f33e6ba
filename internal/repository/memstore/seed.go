package memstore

import (
	"context"
	"time"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// Demo holds the identifiers created by SeedDemo.
type Demo struct {
	TenantID    string
	Departments map[string]string
	Levels      map[string]string
	Employees   map[string]string
}

// SeedDemo creates an initialized tenant with a small approval ladder and staff
// so the API is usable without Postgres.
func SeedDemo(ctx context.Context, s *Store, now time.Time) (*Demo, error) {
	demo := &Demo{
		Departments: map[string]string{},
		Levels:      map[string]string{},
		Employees:   map[string]string{},
	}
	err := s.WithTx(ctx, func(ctx context.Context) error {
		tenant := &domain.Tenant{Name: "demo"}
		if err := s.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		demo.TenantID = tenant.ID

		for _, name := range []string{"Facilities", "IT"} {
			dept := &domain.Department{TenantID: tenant.ID, Name: name}
			if err := s.Departments().Create(ctx, dept); err != nil {
				return err
			}
			demo.Departments[name] = dept.ID
		}

		acme := "Acme"
		levels := []domain.ApprovalLevel{
			{Name: "lead", Amount: 500},
			{Name: "director", Amount: 5000},
			{Name: "cfo", Amount: 100000},
			{Name: "acme-manager", Amount: 1000, Company: &acme},
		}
		for i := range levels {
			levels[i].TenantID = tenant.ID
			if err := s.Levels().Create(ctx, &levels[i]); err != nil {
				return err
			}
			demo.Levels[levels[i].Name] = levels[i].ID
		}

		seat := func(name string) *string {
			id := demo.Levels[name]
			return &id
		}
		employees := []domain.Employee{
			{Name: "admin", Role: domain.RoleAdmin},
			{Name: "lead", ApprovalLevelID: seat("lead")},
			{Name: "director", ApprovalLevelID: seat("director")},
			{Name: "cfo", ApprovalLevelID: seat("cfo")},
			{Name: "acme-manager", Company: &acme, ApprovalLevelID: seat("acme-manager")},
			{Name: "acme-clerk", Company: &acme},
			{Name: "fixer", DepartmentIDs: []string{demo.Departments["Facilities"]}},
			{Name: "helper", DepartmentIDs: []string{demo.Departments["Facilities"], demo.Departments["IT"]}},
		}
		for i := range employees {
			employees[i].TenantID = tenant.ID
			employees[i].Available = true
			if err := s.Employees().Create(ctx, &employees[i]); err != nil {
				return err
			}
			demo.Employees[employees[i].Name] = employees[i].ID
		}

		return s.Tenants().MarkInitialized(ctx, tenant.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return demo, nil
}
