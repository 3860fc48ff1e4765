package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"docflow/internal/models"
	"docflow/internal/workflow"

	"github.com/gin-gonic/gin"
)

// currentUser — пользователь, положенный в контекст middleware.InjectUser.
func currentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get("CurrentUser")
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func mustCurrentUser(c *gin.Context) (models.User, bool) {
	u, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return u, ok
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// writeError переводит таксономию ядра в HTTP-статусы.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrValidationFailed):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrConflict):
		status = http.StatusConflict
	default:
		log.Printf("internal error: %v", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
