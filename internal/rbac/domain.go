package rbac

// Grant is one permission row reachable by a user, either granted directly
// or inherited through a role. The same permission can appear twice (once
// per path); the resolver deduplicates by id before mapping to names.
type Grant struct {
	PermissionID int64
	Name         string
}
