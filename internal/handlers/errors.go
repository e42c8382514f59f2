package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskshare/backend/internal/services"
)

// handleServiceError maps service outcomes onto status codes. Missing task,
// denied operation and dangling user reference each carry a distinct error
// code so clients do not have to parse messages.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "task_not_found",
			"message": "Task does not exist",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You do not have permission to perform this operation",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "No user matches the given identifier",
		})
	case errors.Is(err, services.ErrOwnerCollaborator):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "owner_cannot_collaborate",
			"message": "The task owner already has full access",
		})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"message": "Request data failed validation",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong",
		})
	}
}
