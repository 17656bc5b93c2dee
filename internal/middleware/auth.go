package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
)

const (
	ContextUsername = "username"
	ContextRole     = "role"
	contextIdentity = "identity"
)

type TokenVerifier interface {
	ParseToken(token string) (*models.Claims, error)
}

// UserLookup resolves the current state of a token's subject.
type UserLookup interface {
	GetUser(username string) (models.User, error)
}

type AuthConfig struct {
	Verifier TokenVerifier
	// Users, when set, rejects tokens of deleted users and tokens whose jti
	// no longer matches the user's token version, and takes the role from
	// the stored user rather than the token.
	Users UserLookup
}

func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := cfg.Verifier.ParseToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		identity := models.Identity{Username: claims.Username, Role: claims.Role}
		if claims.ExpiresAt != nil {
			identity.ExpiresAt = claims.ExpiresAt.Time
		}

		if cfg.Users != nil {
			user, err := cfg.Users.GetUser(claims.Username)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
				return
			}
			if claims.ID != user.TokenVersion {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
				return
			}
			identity.Username = user.Username
			identity.Role = user.Role
		}

		c.Set(ContextUsername, identity.Username)
		c.Set(ContextRole, string(identity.Role))
		c.Set(contextIdentity, identity)
		c.Next()
	}
}

func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": string(role) + " role required for this operation"})
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, exists := c.Get(contextIdentity)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}
