package domain

import "time"

// Tenant is an isolated organization ("system"). Every other entity is scoped to one.
type Tenant struct {
	ID            string
	Name          string
	Initialized   bool
	InitializedAt *time.Time
	CreatedAt     time.Time
}
