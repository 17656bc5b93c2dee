package store

import (
	"fmt"
	"strings"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/gofrs/uuid"
)

// CreateTask stores a new task for an existing owner. ID and CreatedAt are
// always assigned here.
func (s *Store) CreateTask(t models.Task) (models.Task, error) {
	t.Text = strings.TrimSpace(t.Text)
	if t.Text == "" {
		return models.Task{}, invalid("task text is required")
	}
	t.Category = strings.TrimSpace(t.Category)

	id, err := uuid.NewV4()
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to generate task id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[userKey(t.OwnerUsername)]
	if !ok {
		return models.Task{}, invalid("owner %q does not exist", t.OwnerUsername)
	}

	t.ID = id
	t.OwnerUsername = owner.Username
	t.CreatedAt = s.now().UTC()
	stored := copyTask(&t)
	s.tasks = append(s.tasks, &stored)
	return copyTask(&stored), nil
}

func (s *Store) GetTask(id uuid.UUID) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, t := s.taskByIDLocked(id)
	if t == nil {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return copyTask(t), nil
}

// ListTasks returns a consistent snapshot of every task in creation order.
func (s *Store) ListTasks() []models.Task {
	return s.filterTasks(func(*models.Task) bool { return true })
}

func (s *Store) TasksByOwner(username string) []models.Task {
	return s.filterTasks(func(t *models.Task) bool {
		return strings.EqualFold(t.OwnerUsername, username)
	})
}

func (s *Store) TasksByCategory(name string) []models.Task {
	return s.filterTasks(func(t *models.Task) bool {
		return t.Category == name
	})
}

// UpdateTask edits a task owned by owner. Tasks of other users are reported
// as not found.
func (s *Store) UpdateTask(owner string, id uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return models.Task{}, invalid("task text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.ownedTaskLocked(owner, id)
	if err != nil {
		return models.Task{}, err
	}

	if patch.Text != nil {
		t.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.IsDone != nil {
		t.IsDone = *patch.IsDone
	}
	if patch.Category != nil {
		t.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Color != nil {
		t.Color = *patch.Color
	}
	switch {
	case patch.ClearDeadLine:
		t.DeadLine = nil
	case patch.DeadLine != nil:
		d := *patch.DeadLine
		t.DeadLine = &d
	}
	return copyTask(t), nil
}

func (s *Store) ToggleTask(owner string, id uuid.UUID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.ownedTaskLocked(owner, id)
	if err != nil {
		return models.Task{}, err
	}
	t.IsDone = !t.IsDone
	return copyTask(t), nil
}

func (s *Store) DeleteTask(owner string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedTaskLocked(owner, id); err != nil {
		return err
	}
	s.removeTasksLocked(func(t *models.Task) bool { return t.ID == id })
	return nil
}

func (s *Store) filterTasks(keep func(*models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0)
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, copyTask(t))
		}
	}
	return out
}

func (s *Store) ownedTaskLocked(owner string, id uuid.UUID) (*models.Task, error) {
	_, t := s.taskByIDLocked(id)
	if t == nil || !strings.EqualFold(t.OwnerUsername, owner) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (s *Store) taskByIDLocked(id uuid.UUID) (int, *models.Task) {
	for i, t := range s.tasks {
		if t.ID == id {
			return i, t
		}
	}
	return -1, nil
}

// removeTasksLocked drops every task matching drop and returns the count.
func (s *Store) removeTasksLocked(drop func(*models.Task) bool) int {
	kept := s.tasks[:0]
	removed := 0
	for _, t := range s.tasks {
		if drop(t) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = kept
	return removed
}
