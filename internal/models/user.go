package models

import "strings"

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "user":
		return RoleUser, true
	}
	return "", false
}

type User struct {
	Username        string `json:"username"`
	PasswordHash    string `json:"-"`
	Role            Role   `json:"role"`
	NotificationURL string `json:"notificationUrl,omitempty"`
	// TokenVersion is signed into issued tokens as their jti. It changes
	// when the username or password changes, revoking earlier tokens.
	TokenVersion string `json:"-"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserPatch struct {
	Username     *string
	PasswordHash *string
	Role         *Role
}
