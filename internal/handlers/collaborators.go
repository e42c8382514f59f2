package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskshare/backend/internal/middleware"
	"taskshare/backend/internal/services"
)

type CollaboratorHandler struct {
	collab services.CollaborationService
}

func NewCollaboratorHandler(collab services.CollaborationService) *CollaboratorHandler {
	return &CollaboratorHandler{collab: collab}
}

func (h *CollaboratorHandler) ListCollaborators(c *gin.Context) {
	profiles, err := h.collab.Collaborators(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborators": profiles})
}

type collaboratorRequest struct {
	// User is an email address or a raw user identifier.
	User string `json:"user" binding:"required"`
}

func (h *CollaboratorHandler) AddCollaborator(c *gin.Context) {
	var req collaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	task, err := h.collab.AddCollaborator(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.User)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *CollaboratorHandler) RemoveCollaborator(c *gin.Context) {
	task, err := h.collab.RemoveCollaborator(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("collabId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *CollaboratorHandler) AssignTask(c *gin.Context) {
	var req collaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	task, err := h.collab.Assign(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.User)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *CollaboratorHandler) UnassignTask(c *gin.Context) {
	task, err := h.collab.Unassign(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
