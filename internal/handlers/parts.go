package handlers

import (
	"net/http"

	"docflow/internal/models"
	"docflow/internal/store"
	"docflow/internal/workflow"

	"github.com/gin-gonic/gin"
)

type PartHandler struct {
	Svc   *workflow.Service
	Store store.Store
}

func (h *PartHandler) Create(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in workflow.CreatePartInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	part, err := h.Svc.CreateTaskPart(c.Request.Context(), taskID, in, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, part)
}

func (h *PartHandler) ListByTask(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if _, err := h.Store.Tasks().Get(c.Request.Context(), taskID); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		writeError(c, err)
		return
	}

	parts, err := h.Store.Parts().ListByTask(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, parts)
}

func (h *PartHandler) Delete(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	partID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Svc.DeletePart(c.Request.Context(), partID, actor); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type transitionRequest struct {
	ToStatus   string                    `json:"to_status"`
	Comment    string                    `json:"comment"`
	Attachment *workflow.AttachmentInput `json:"attachment"`
}

// Transition — единственная ручка смены статуса части.
func (h *PartHandler) Transition(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	partID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ToStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to_status is required"})
		return
	}

	var ev *workflow.Evidence
	if req.Comment != "" || req.Attachment != nil {
		ev = &workflow.Evidence{Comment: req.Comment}
		if req.Attachment != nil {
			ev.AttachmentName = req.Attachment.FileName
			ev.AttachmentLink = req.Attachment.Link
			ev.AttachmentTitle = req.Attachment.Title
		}
	}

	part, err := h.Svc.TransitionPart(c.Request.Context(), partID, models.TaskStatus(req.ToStatus), actor.ID, ev)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, part)
}
