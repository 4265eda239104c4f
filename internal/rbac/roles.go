package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleViewer can read mirrored resources and reports.
	RoleViewer = "viewer"
	// RoleOperator can additionally mutate: attach/detach, import, delete.
	RoleOperator = "operator"
	// RoleAdmin bypasses all role checks.
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
