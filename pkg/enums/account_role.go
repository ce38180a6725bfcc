package enums

import "fmt"

// AccountRole represents a platform-level permissions role.
type AccountRole string

const (
	AccountRoleAdmin    AccountRole = "admin"
	AccountRoleIssuer   AccountRole = "issuer"
	AccountRoleDeployer AccountRole = "deployer"
	AccountRoleTrader   AccountRole = "trader"
	AccountRoleSystem   AccountRole = "system"
)

var validAccountRoles = []AccountRole{
	AccountRoleAdmin,
	AccountRoleIssuer,
	AccountRoleDeployer,
	AccountRoleTrader,
	AccountRoleSystem,
}

// String implements fmt.Stringer.
func (r AccountRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AccountRole.
func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAccountRole converts raw input into an AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
