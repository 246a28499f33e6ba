package domain

import "time"

// ApprovalLevel is one rung of a tenant's approval ladder. Amount is the largest ticket
// amount the level may authorize. A nil Company marks a tenant-wide default level.
type ApprovalLevel struct {
	ID        string
	TenantID  string
	Name      string
	Amount    int64
	Company   *string
	Seq       int64
	CreatedAt time.Time
}

// IsDefault reports whether the level is tenant-wide.
func (l ApprovalLevel) IsDefault() bool {
	return l.Company == nil
}

// InScope reports whether the level belongs to company (nil meaning the default scope).
func (l ApprovalLevel) InScope(company *string) bool {
	if company == nil {
		return l.Company == nil
	}
	return l.Company != nil && *l.Company == *company
}
