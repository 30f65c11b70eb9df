package domain

// TenantTypeOrganisation marks a tenant that holds accounting data.
const TenantTypeOrganisation = "ORGANISATION"

// Tenant is an organisation the credential has been granted access to.
type Tenant struct {
	ID   string
	Type string
	Name string
}

// FirstOrganisation returns the first tenant of type ORGANISATION.
func FirstOrganisation(tenants []Tenant) (Tenant, bool) {
	for _, t := range tenants {
		if t.Type == TenantTypeOrganisation {
			return t, true
		}
	}
	return Tenant{}, false
}
