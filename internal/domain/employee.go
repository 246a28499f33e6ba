package domain

import "time"

// Role grants access to administrative operations.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Employee belongs to one tenant, any number of departments and holds at most one approval seat.
type Employee struct {
	ID              string
	TenantID        string
	Name            string
	Company         *string
	ApprovalLevelID *string
	Available       bool
	Role            Role
	DepartmentIDs   []string
	CreatedAt       time.Time
}

// HasSeat reports whether the employee may sign at levelID.
func (e *Employee) HasSeat(levelID string) bool {
	return e.ApprovalLevelID != nil && *e.ApprovalLevelID == levelID
}

// InAnyDepartment reports whether the employee belongs to one of ids.
func (e *Employee) InAnyDepartment(ids []string) bool {
	for _, id := range ids {
		for _, own := range e.DepartmentIDs {
			if own == id {
				return true
			}
		}
	}
	return false
}
