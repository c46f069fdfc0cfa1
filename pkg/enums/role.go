package enums

import "fmt"

// Role is the back-office role carried on every authenticated request.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleVendor     Role = "vendor"
	RoleWarehouse  Role = "warehouse"
	RoleAccountant Role = "accountant"
	RoleCustomer   Role = "customer"
)

var validRoles = []Role{
	RoleAdmin,
	RoleVendor,
	RoleWarehouse,
	RoleAccountant,
	RoleCustomer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to an employee rather than a customer.
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RoleCustomer
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
