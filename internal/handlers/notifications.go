package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
)

type NotificationLogReader interface {
	Entries() []models.NotificationLogEntry
}

type NotificationHandler struct {
	log NotificationLogReader
}

func NewNotificationHandler(log NotificationLogReader) *NotificationHandler {
	return &NotificationHandler{log: log}
}

// GetLogs returns every delivery attempt in the order it was made.
func (h *NotificationHandler) GetLogs(c *gin.Context) {
	c.JSON(http.StatusOK, h.log.Entries())
}
