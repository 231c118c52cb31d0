// internal/app/system/roles/roles.go

// Package roles defines the fixed system role tiers and their total order.
//
// The tier order user < manager < admin < superadmin backs every "minimum
// role" and "include higher roles" check. It is a pure ordered enumeration;
// nothing mutates it at runtime.
package roles

// System roles, lowest tier first.
const (
	User       = "user"
	Manager    = "manager"
	Admin      = "admin"
	SuperAdmin = "superadmin"
)

// Ordered lists the roles in ascending tier order.
var Ordered = []string{User, Manager, Admin, SuperAdmin}

var rank = map[string]int{
	User:       0,
	Manager:    1,
	Admin:      2,
	SuperAdmin: 3,
}

// IsValid reports whether role is a recognized system role.
func IsValid(role string) bool {
	_, ok := rank[role]
	return ok
}

// Compare returns a negative value if a ranks below b, zero if equal, and a
// positive value if a ranks above b. Unknown roles rank below every known
// role.
func Compare(a, b string) int {
	return rankOf(a) - rankOf(b)
}

// AtLeast reports whether role is at or above min in the tier order.
// Unknown roles never satisfy any minimum.
func AtLeast(role, min string) bool {
	if !IsValid(role) || !IsValid(min) {
		return false
	}
	return rank[role] >= rank[min]
}

// From returns the set of roles at or above the given role, in ascending
// order. Returns nil for an unknown role.
func From(role string) []string {
	r, ok := rank[role]
	if !ok {
		return nil
	}
	return Ordered[r:]
}

func rankOf(role string) int {
	if r, ok := rank[role]; ok {
		return r
	}
	return -1
}
