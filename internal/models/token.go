package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an issued access token.
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the verified caller attached to a request.
type Identity struct {
	Username  string
	Role      Role
	ExpiresAt time.Time
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
