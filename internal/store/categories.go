package store

import (
	"fmt"
	"strings"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/gofrs/uuid"
)

func (s *Store) CreateCategory(name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, invalid("category name is required")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to generate category id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categoryByNameLocked(name) != nil {
		return models.Category{}, invalid("category already exists")
	}
	c := &models.Category{ID: id, Name: name}
	s.categories = append(s.categories, c)
	return *c, nil
}

func (s *Store) GetCategory(id uuid.UUID) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, c := s.categoryByIDLocked(id)
	if c == nil {
		return models.Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return *c, nil
}

func (s *Store) ListCategories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	return out
}

func (s *Store) CategoryExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoryByNameLocked(name) != nil
}

// RenameCategory renames the category and retags every task carrying the old
// name in the same critical section.
func (s *Store) RenameCategory(id uuid.UUID, newName string) (models.Category, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return models.Category{}, invalid("category name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, c := s.categoryByIDLocked(id)
	if c == nil {
		return models.Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if other := s.categoryByNameLocked(newName); other != nil && other.ID != id {
		return models.Category{}, invalid("category already exists")
	}

	oldName := c.Name
	c.Name = newName
	for _, t := range s.tasks {
		if t.Category == oldName {
			t.Category = newName
		}
	}
	return *c, nil
}

// DeleteCategory removes the category together with every task tagged with it.
// It returns the number of tasks removed.
func (s *Store) DeleteCategory(id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, c := s.categoryByIDLocked(id)
	if c == nil {
		return 0, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}

	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)
	removed := s.removeTasksLocked(func(t *models.Task) bool {
		return t.Category == c.Name
	})
	return removed, nil
}

// PruneStaleCategories clears category names on tasks that reference no
// existing category and returns how many tasks were touched.
func (s *Store) PruneStaleCategories() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for _, t := range s.tasks {
		if t.Category != "" && s.categoryByNameLocked(t.Category) == nil {
			t.Category = ""
			pruned++
		}
	}
	return pruned
}

func (s *Store) categoryByIDLocked(id uuid.UUID) (int, *models.Category) {
	for i, c := range s.categories {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

func (s *Store) categoryByNameLocked(name string) *models.Category {
	for _, c := range s.categories {
		if c.Name == name {
			return c
		}
	}
	return nil
}
