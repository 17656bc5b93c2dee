package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"github.com/AlirezaEivazi/Manage-Works/internal/middleware"
	"github.com/AlirezaEivazi/Manage-Works/internal/services"
	"github.com/AlirezaEivazi/Manage-Works/internal/store"
	"github.com/AlirezaEivazi/Manage-Works/internal/utils"
)

// handleError maps service errors onto response codes. resource names the
// entity in not-found messages.
func handleError(c *gin.Context, resource string, err error) {
	var validation *store.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Reason})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ Failed to process %s request: %v", resource, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process " + resource + " request"})
	}
}

func parseID(c *gin.Context, resource string) (uuid.UUID, bool) {
	raw := c.Param("id")
	if !utils.IsValidUUID(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + resource + " id"})
		return uuid.Nil, false
	}
	return uuid.FromStringOrNil(raw), true
}

func currentUsername(c *gin.Context) string {
	return c.GetString(middleware.ContextUsername)
}
