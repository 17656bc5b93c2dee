package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlirezaEivazi/Manage-Works/internal/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.categoryService.ListCategories())
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.categoryService.CreateCategory(req)
	if err != nil {
		handleError(c, "category", err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) RenameCategory(c *gin.Context) {
	id, ok := parseID(c, "category")
	if !ok {
		return
	}

	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.categoryService.RenameCategory(id, req)
	if err != nil {
		handleError(c, "category", err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "category")
	if !ok {
		return
	}

	removed, err := h.categoryService.DeleteCategory(id)
	if err != nil {
		handleError(c, "category", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted", "deletedTasks": removed})
}

func (h *CategoryHandler) PruneCategories(c *gin.Context) {
	cleared := h.categoryService.PruneStaleReferences()
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
