package services

import (
	"log"

	"github.com/gofrs/uuid"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/store"
)

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type CategoryService interface {
	ListCategories() []models.Category
	CreateCategory(req CategoryRequest) (models.Category, error)
	RenameCategory(id uuid.UUID, req CategoryRequest) (models.Category, error)
	DeleteCategory(id uuid.UUID) (int, error)
	PruneStaleReferences() int
}

type CategoryServiceImpl struct {
	store *store.Store
}

func NewCategoryService(st *store.Store) *CategoryServiceImpl {
	return &CategoryServiceImpl{store: st}
}

func (s *CategoryServiceImpl) ListCategories() []models.Category {
	return s.store.ListCategories()
}

func (s *CategoryServiceImpl) CreateCategory(req CategoryRequest) (models.Category, error) {
	return s.store.CreateCategory(req.Name)
}

func (s *CategoryServiceImpl) RenameCategory(id uuid.UUID, req CategoryRequest) (models.Category, error) {
	return s.store.RenameCategory(id, req.Name)
}

// DeleteCategory removes the category together with every task tagged with it.
func (s *CategoryServiceImpl) DeleteCategory(id uuid.UUID) (int, error) {
	removed, err := s.store.DeleteCategory(id)
	if err != nil {
		return 0, err
	}
	log.Printf("🗑️ Category %s deleted with %d tasks", id, removed)
	return removed, nil
}

func (s *CategoryServiceImpl) PruneStaleReferences() int {
	cleared := s.store.PruneStaleCategories()
	if cleared > 0 {
		log.Printf("🧹 Cleared %d stale category references", cleared)
	}
	return cleared
}
