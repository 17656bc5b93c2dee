package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
)

// ErrNotFound is returned (wrapped) when the addressed entity does not exist
// or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// ValidationError carries a reason that is safe to show to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Store holds users, categories and tasks in process memory. A single lock
// guards all three collections so cascades are observed atomically.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	categories []*models.Category
	tasks      []*models.Task
	now        func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		users: make(map[string]*models.User),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns entity counts for monitoring.
func (s *Store) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"users":      len(s.users),
		"categories": len(s.categories),
		"tasks":      len(s.tasks),
	}
}

func userKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func copyTask(t *models.Task) models.Task {
	out := *t
	if t.DeadLine != nil {
		d := *t.DeadLine
		out.DeadLine = &d
	}
	return out
}
