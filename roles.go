package authkit

// roleHierarchy orders roles by privilege. Unknown roles rank below
// everything.
var roleHierarchy = map[UserRole]int{
	RoleUser:  0,
	RoleAdmin: 1,
}

// ValidRole checks if the role is one of the predefined valid roles
func ValidRole(r UserRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// ParseRole safely parses a string into a known role
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, ValidRole(role)
}

// RoleAtLeast checks if the role meets the minimum required level
func RoleAtLeast(r, minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// AllRoles returns the predefined roles in hierarchical order
func AllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}
