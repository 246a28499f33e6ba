package dto

import "time"

// LevelRequest defines one approval level.
type LevelRequest struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// InitializeTenantRequest configures a tenant once.
type InitializeTenantRequest struct {
	Departments   []string                  `json:"departments"`
	DefaultLevels []LevelRequest            `json:"default_levels"`
	CompanyLevels map[string][]LevelRequest `json:"company_levels"`
}

// DepartmentResponse describes a department.
type DepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ApprovalLevelResponse describes an approval level.
type ApprovalLevelResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Company   *string   `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

// InitializeTenantResponse lists what was created.
type InitializeTenantResponse struct {
	Departments []DepartmentResponse    `json:"departments"`
	Levels      []ApprovalLevelResponse `json:"levels"`
}
