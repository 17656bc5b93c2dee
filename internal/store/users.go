package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
)

func (s *Store) CreateUser(u models.User) (models.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return models.User{}, invalid("username is required")
	}
	if u.PasswordHash == "" {
		return models.User{}, invalid("password is required")
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	role, ok := models.ParseRole(string(u.Role))
	if !ok {
		return models.User{}, invalid("invalid role %q", u.Role)
	}
	u.Role = role

	version, err := newTokenVersion()
	if err != nil {
		return models.User{}, err
	}
	u.TokenVersion = version

	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(u.Username)
	if _, exists := s.users[key]; exists {
		return models.User{}, invalid("username already exists")
	}
	stored := u
	s.users[key] = &stored
	return stored, nil
}

func (s *Store) GetUser(username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userKey(username)]
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return *u, nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		return userKey(users[i].Username) < userKey(users[j].Username)
	})
	return users
}

func (s *Store) AdminCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminCountLocked()
}

func (s *Store) adminCountLocked() int {
	n := 0
	for _, u := range s.users {
		if u.IsAdmin() {
			n++
		}
	}
	return n
}

// UpdateUser applies patch to the named user. A rename rewrites the owner of
// every task the user owns before the lock is released.
func (s *Store) UpdateUser(username string, patch models.UserPatch) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey := userKey(username)
	u, ok := s.users[oldKey]
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}

	newName := u.Username
	if patch.Username != nil {
		newName = strings.TrimSpace(*patch.Username)
		if newName == "" {
			return models.User{}, invalid("username is required")
		}
		if k := userKey(newName); k != oldKey {
			if _, taken := s.users[k]; taken {
				return models.User{}, invalid("username already exists")
			}
		}
	}
	if patch.PasswordHash != nil && *patch.PasswordHash == "" {
		return models.User{}, invalid("password is required")
	}
	var role models.Role
	if patch.Role != nil {
		parsed, valid := models.ParseRole(string(*patch.Role))
		if !valid {
			return models.User{}, invalid("invalid role %q", *patch.Role)
		}
		if u.IsAdmin() && parsed != models.RoleAdmin && s.adminCountLocked() == 1 {
			return models.User{}, invalid("cannot demote the last admin")
		}
		role = parsed
	}

	oldName := u.Username
	if patch.PasswordHash != nil || newName != oldName {
		version, err := newTokenVersion()
		if err != nil {
			return models.User{}, err
		}
		u.TokenVersion = version
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		u.Role = role
	}
	if newName != oldName {
		u.Username = newName
		delete(s.users, oldKey)
		s.users[userKey(newName)] = u
		for _, t := range s.tasks {
			if strings.EqualFold(t.OwnerUsername, oldName) {
				t.OwnerUsername = newName
			}
		}
	}
	return *u, nil
}

// DeleteUser removes the user and every task they own.
func (s *Store) DeleteUser(username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(username)
	u, ok := s.users[key]
	if !ok {
		return 0, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if u.IsAdmin() && s.adminCountLocked() == 1 {
		return 0, invalid("cannot delete the last admin")
	}

	delete(s.users, key)
	removed := s.removeTasksLocked(func(t *models.Task) bool {
		return strings.EqualFold(t.OwnerUsername, u.Username)
	})
	return removed, nil
}

func newTokenVersion() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate token version: %w", err)
	}
	return id.String(), nil
}

func (s *Store) SetNotificationURL(username, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userKey(username)]
	if !ok {
		return fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	u.NotificationURL = strings.TrimSpace(url)
	return nil
}
