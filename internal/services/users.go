package services

import (
	"log"
	"strings"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/notify"
	"github.com/AlirezaEivazi/Manage-Works/internal/store"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type NotificationURLRequest struct {
	URL string `json:"url"`
}

type UserService interface {
	ListUsers() []models.User
	CreateUser(req CreateUserRequest) (models.User, error)
	UpdateUser(username string, req UpdateUserRequest) (models.User, error)
	DeleteUser(username string) (int, error)
	GetNotificationURL(username string) (string, error)
	SetNotificationURL(username, url string) error
}

type UserServiceImpl struct {
	store *store.Store
}

func NewUserService(st *store.Store) *UserServiceImpl {
	return &UserServiceImpl{store: st}
}

func (s *UserServiceImpl) ListUsers() []models.User {
	return s.store.ListUsers()
}

func (s *UserServiceImpl) CreateUser(req CreateUserRequest) (models.User, error) {
	role := models.RoleUser
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			return models.User{}, &store.ValidationError{Reason: "invalid role " + req.Role}
		}
		role = parsed
	}

	hash, err := hashRequired(req.Password)
	if err != nil {
		return models.User{}, err
	}
	return s.store.CreateUser(models.User{Username: req.Username, PasswordHash: hash, Role: role})
}

func (s *UserServiceImpl) UpdateUser(username string, req UpdateUserRequest) (models.User, error) {
	patch := models.UserPatch{Username: req.Username}

	if req.Password != nil {
		hash, err := hashRequired(*req.Password)
		if err != nil {
			return models.User{}, err
		}
		patch.PasswordHash = &hash
	}
	if req.Role != nil {
		role, ok := models.ParseRole(*req.Role)
		if !ok {
			return models.User{}, &store.ValidationError{Reason: "invalid role " + *req.Role}
		}
		patch.Role = &role
	}

	return s.store.UpdateUser(username, patch)
}

// DeleteUser removes the user and reports how many of their tasks went with them.
func (s *UserServiceImpl) DeleteUser(username string) (int, error) {
	removed, err := s.store.DeleteUser(username)
	if err != nil {
		return 0, err
	}
	log.Printf("🗑️ User %s deleted with %d tasks", username, removed)
	return removed, nil
}

func (s *UserServiceImpl) GetNotificationURL(username string) (string, error) {
	user, err := s.store.GetUser(username)
	if err != nil {
		return "", err
	}
	return user.NotificationURL, nil
}

// SetNotificationURL stores an http(s) callback URL. An empty value clears it.
func (s *UserServiceImpl) SetNotificationURL(username, url string) error {
	url = strings.TrimSpace(url)
	if url != "" {
		if err := notify.ValidateURL(url); err != nil {
			return &store.ValidationError{Reason: err.Error()}
		}
	}
	return s.store.SetNotificationURL(username, url)
}
