package domain

// Identity is the acting employee together with the tenant every operation is scoped to.
type Identity struct {
	Employee *Employee
	Tenant   *Tenant
}

// TenantID returns the tenant the caller acts in.
func (i Identity) TenantID() string {
	if i.Tenant == nil {
		return ""
	}
	return i.Tenant.ID
}

// Owns reports whether tenantID is the caller's tenant.
func (i Identity) Owns(tenantID string) bool {
	return i.Tenant != nil && i.Tenant.ID == tenantID
}
