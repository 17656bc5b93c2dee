package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlirezaEivazi/Manage-Works/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.userService.ListUsers())
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.CreateUser(req)
	if err != nil {
		handleError(c, "user", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateUser(c.Param("username"), req)
	if err != nil {
		handleError(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	removed, err := h.userService.DeleteUser(c.Param("username"))
	if err != nil {
		handleError(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted", "deletedTasks": removed})
}
