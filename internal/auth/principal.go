package auth

import "helpdesk_backend/internal/models"

// Principal is the request-scoped identity threaded explicitly through
// handlers and services. There is no ambient per-request auth state.
type Principal struct {
	UserID string
	Role   models.UserRole
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.UserRoleAdmin
}

// IsModerator reports whether the principal holds the moderator role.
func (p Principal) IsModerator() bool {
	return p.Role == models.UserRoleModerator
}

// IsEndUser reports whether the principal is a plain end user.
func (p Principal) IsEndUser() bool {
	return p.Role == models.UserRoleUser
}
