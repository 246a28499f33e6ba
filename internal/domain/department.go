package domain

import "time"

// Department is a tenant-owned organizational unit that fulfils tickets.
type Department struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}
