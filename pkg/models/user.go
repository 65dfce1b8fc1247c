package models

// UserRole represents user role type
type UserRole string

const (
	RolePassenger UserRole = "passenger"
	RoleDriver    UserRole = "driver"
	RoleAdmin     UserRole = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// CanPushLocation reports whether the role may publish vehicle positions.
func (r UserRole) CanPushLocation() bool {
	return r == RoleDriver || r == RoleAdmin
}
