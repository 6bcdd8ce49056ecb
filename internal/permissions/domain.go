package permissions

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Capability names, dot-namespaced by module.
const (
	RoleViewAll = "role.view.all"
	RoleView    = "role.view"
	RoleCreate  = "role.create"
	RoleUpdate  = "role.update"
	RoleDelete  = "role.delete"

	UserViewAll = "user.view.all"
	UserView    = "user.view"
	UserCreate  = "user.create"
	UserUpdate  = "user.update"
	UserDelete  = "user.delete"
	UserACL     = "user.acl"
)

// Registry returns every capability known at provisioning time.
func Registry() []string {
	return []string{
		RoleViewAll,
		RoleView,
		RoleCreate,
		RoleUpdate,
		RoleDelete,
		UserViewAll,
		UserView,
		UserCreate,
		UserUpdate,
		UserDelete,
		UserACL,
	}
}

// UserRegistry returns the user-module subset of the registry.
func UserRegistry() []string {
	return []string{UserViewAll, UserView, UserCreate, UserUpdate, UserDelete, UserACL}
}
