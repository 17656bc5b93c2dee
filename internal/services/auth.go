package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlirezaEivazi/Manage-Works/internal/config"
	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/store"
	"github.com/AlirezaEivazi/Manage-Works/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type RegistrationRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthService interface {
	Register(req RegistrationRequest) (models.User, error)
	Login(req LoginRequest) (string, models.User, error)
	GenerateToken(user models.User) (string, time.Time, error)
	ParseToken(token string) (*models.Claims, error)
}

type AuthServiceImpl struct {
	store  *store.Store
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(st *store.Store, cfg config.AuthConfig) *AuthServiceImpl {
	return &AuthServiceImpl{
		store:  st,
		secret: cfg.JWTSecret,
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// Register creates a regular user. Admins are only created through the admin API.
func (s *AuthServiceImpl) Register(req RegistrationRequest) (models.User, error) {
	hash, err := hashRequired(req.Password)
	if err != nil {
		return models.User{}, err
	}
	return s.store.CreateUser(models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
}

func (s *AuthServiceImpl) Login(req LoginRequest) (string, models.User, error) {
	user, err := s.store.GetUser(strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return "", models.User{}, ErrInvalidCredentials
	}

	token, _, err := s.GenerateToken(user)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

func (s *AuthServiceImpl) GenerateToken(user models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := models.Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        user.TokenVersion,
			Subject:   user.Username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthServiceImpl) ParseToken(token string) (*models.Claims, error) {
	claims := &models.Claims{}
	err := utils.ParseJWTInto(token, s.secret, claims,
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Username == "" {
		return nil, errors.New("token carries no username")
	}
	return claims, nil
}

func hashRequired(password string) (string, error) {
	if password == "" {
		return "", &store.ValidationError{Reason: "password is required"}
	}
	return utils.HashPassword(password)
}
