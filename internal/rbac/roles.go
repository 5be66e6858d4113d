package rbac

// Role names carried in operator tokens. Keep these stable.
const (
	RoleOwner      = "owner"
	RoleOperator   = "operator"
	RoleViewer     = "viewer"
	RoleSuperAdmin = "super_admin"
)

// ReadRoles may list and fetch providers; WriteRoles may also mutate them.
var (
	ReadRoles  = []string{RoleOwner, RoleOperator, RoleViewer}
	WriteRoles = []string{RoleOwner, RoleOperator}
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
