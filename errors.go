package permkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for PermKit operations.
var (
	// ErrRoleNotFound is returned when a role ID does not exist.
	ErrRoleNotFound = errors.New("permkit: role not found")

	// ErrOverrideNotFound is returned when an override ID does not exist.
	ErrOverrideNotFound = errors.New("permkit: override not found")

	// ErrInvalidOverride is returned when an override fails write-time
	// validation (wrong target cardinality, allow/deny key conflicts,
	// unknown permission names).
	ErrInvalidOverride = errors.New("permkit: invalid override")

	// ErrCannotManageRole is returned when an actor lacks the permission or
	// the rank to mutate a role.
	ErrCannotManageRole = errors.New("permkit: cannot manage role")

	// ErrUnauthorized is returned when a user doesn't have the required
	// permission for an action.
	ErrUnauthorized = errors.New("permkit: unauthorized")

	// ErrRoleAlreadyAssigned is returned when assigning a role the user
	// already holds.
	ErrRoleAlreadyAssigned = errors.New("permkit: role already assigned")

	// ErrRoleNotAssigned is returned when unassigning a role the user does
	// not hold.
	ErrRoleNotAssigned = errors.New("permkit: role not assigned")

	// ErrNoUserID is returned when user ID is not found in context.
	ErrNoUserID = errors.New("permkit: no user ID in context")

	// ErrNoActorID is returned when actor ID is not found in context for a
	// gated mutation.
	ErrNoActorID = errors.New("permkit: no actor ID in context")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("permkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err       error  // Underlying sentinel error
	Message   string // Additional context
	ServerID  string // Server involved (if applicable)
	ChannelID string // Channel involved (if applicable)
	RoleID    string // Role involved (if applicable)
	UserID    string // User involved (if applicable)
	ActorID   string // Actor who triggered the error (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithServer adds server information to the error.
func (e *Error) WithServer(serverID string) *Error {
	e.ServerID = serverID
	return e
}

// WithChannel adds channel information to the error.
func (e *Error) WithChannel(channelID string) *Error {
	e.ChannelID = channelID
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(roleID string) *Error {
	e.RoleID = roleID
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// IsUnauthorized checks if an error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsCannotManageRole checks if an error is due to lacking rank or the
// manageRoles gate.
func IsCannotManageRole(err error) bool {
	return errors.Is(err, ErrCannotManageRole)
}

// IsInvalidOverride checks if an error is due to a malformed override.
func IsInvalidOverride(err error) bool {
	return errors.Is(err, ErrInvalidOverride)
}

// IsRoleNotFound checks if an error is due to a missing role.
func IsRoleNotFound(err error) bool {
	return errors.Is(err, ErrRoleNotFound)
}
