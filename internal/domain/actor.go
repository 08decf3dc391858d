package domain

// Role is the closed set of actor kinds known to the helpdesk.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r belongs to the support side.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Actor is the verified caller of a command. It is supplied by the identity
// layer per request and never persisted.
type Actor struct {
	ID        string
	Role      Role
	CompanyID string
}
