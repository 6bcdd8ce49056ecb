package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the operation targets a protected entity.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or invalid access token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrPasswordMismatch occurs when the supplied current password does not match.
	ErrPasswordMismatch = errors.New("password or current password is incorrect")
	// ErrSystemRoleImmutable occurs on an attempt to delete a system role.
	ErrSystemRoleImmutable = errors.New("system roles cannot be deleted")
	// ErrDuplicateEmail occurs when a user email is already taken.
	ErrDuplicateEmail = errors.New("email already in use")
)
