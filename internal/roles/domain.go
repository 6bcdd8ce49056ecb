package roles

import (
	"time"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
)

// Seeded role ids. The first three roles created at provisioning are system
// roles and cannot be deleted; SuperAdmin additionally cannot be assigned
// through the generic role-assignment path.
const (
	SuperAdminID int64 = 1
	AdminID      int64 = 2
	UserID       int64 = 3
)

// SystemRoleIDs lists roles the mutation protocol refuses to delete.
var SystemRoleIDs = []int64{SuperAdminID, AdminID, UserID}

// UnassignableRoleIDs lists roles excluded from generic assignment.
var UnassignableRoleIDs = []int64{SuperAdminID}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64                    `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Permissions []permissions.Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// IsSystemRole reports whether id denotes a system role.
func IsSystemRole(id int64) bool {
	for _, sys := range SystemRoleIDs {
		if id == sys {
			return true
		}
	}
	return false
}

// IsUnassignable reports whether id is excluded from generic assignment.
func IsUnassignable(id int64) bool {
	for _, blocked := range UnassignableRoleIDs {
		if id == blocked {
			return true
		}
	}
	return false
}
