package enums

// UserRole is the account-level role used for authorization.
type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleAdmin    UserRole = "ADMIN"
)

var userRoles = []UserRole{UserRoleCustomer, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return known(r, userRoles) }

// ParseUserRole ignores case and surrounding whitespace.
func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, userRoles, true)
}
