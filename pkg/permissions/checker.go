// Package permissions matches permission strings with wildcard support:
// "*" grants everything and "supply.*" grants every supply action.
package permissions

import "strings"

// Supply service permissions.
const (
	SupplyRead   = "supply.read"
	SupplyEdit   = "supply.edit"
	SupplyAlerts = "supply.alerts.read"
)

// HasPermission checks if the user's permissions include the required permission.
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, ".*"); ok && strings.HasPrefix(required, prefix+".") {
			return true
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}
