package cache

import (
	"strconv"
	"time"
)

// Cached view keys and lifetimes. The user view tolerates a long lifetime
// because every mutation that touches a user deletes it; the paginated
// listing is only invalidated on create/remove/login-date updates, so its
// TTL bounds the staleness window for per-user edits.
const (
	userKeyPrefix = "user:"
	// UserTTL bounds the single user view.
	UserTTL = 24 * time.Hour

	userPermissionsKeyPrefix = "user-permissions:"
	// UserPermissionsTTL bounds the effective permission view.
	UserPermissionsTTL = time.Hour

	userListKeyPrefix = "user-paginated"
	// UserListTTL bounds the paginated listing view.
	UserListTTL = 10 * time.Minute
)

// UserKey returns the cache key of the single user view.
func UserKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// UserPermissionsKey returns the cache key of a user's effective permissions.
func UserPermissionsKey(id int64) string {
	return userPermissionsKeyPrefix + strconv.FormatInt(id, 10)
}

// UserListKey returns the cache key of one paginated listing, keyed by the
// serialized query parameters so each filter/sort/page combination caches
// independently.
func UserListKey(serializedParams string) string {
	return userListKeyPrefix + "-" + serializedParams
}

// UserListPattern matches every paginated listing entry.
func UserListPattern() string {
	return userListKeyPrefix + "*"
}
