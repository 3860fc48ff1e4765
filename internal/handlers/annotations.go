package handlers

import (
	"net/http"

	"docflow/internal/store"
	"docflow/internal/workflow"

	"github.com/gin-gonic/gin"
)

// AnnotationHandler — комментарии и вложения к задаче или её части.
type AnnotationHandler struct {
	Svc   *workflow.Service
	Store store.Store
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *AnnotationHandler) CreateTaskComment(c *gin.Context) {
	h.createComment(c, true)
}

func (h *AnnotationHandler) CreatePartComment(c *gin.Context) {
	h.createComment(c, false)
}

func (h *AnnotationHandler) createComment(c *gin.Context, taskScoped bool) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	scope := workflow.PartScope(id)
	if taskScoped {
		scope = workflow.TaskScope(id)
	}

	cm, err := h.Svc.AddComment(c.Request.Context(), scope, actor.ID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *AnnotationHandler) CreateTaskAttachment(c *gin.Context) {
	h.createAttachment(c, true)
}

func (h *AnnotationHandler) CreatePartAttachment(c *gin.Context) {
	h.createAttachment(c, false)
}

func (h *AnnotationHandler) createAttachment(c *gin.Context, taskScoped bool) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in workflow.AttachmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	scope := workflow.PartScope(id)
	if taskScoped {
		scope = workflow.TaskScope(id)
	}

	att, err := h.Svc.AddAttachment(c.Request.Context(), scope, actor.ID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *AnnotationHandler) ListTaskComments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.Store.Comments().ListByTask(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AnnotationHandler) ListPartComments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.Store.Comments().ListByPart(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AnnotationHandler) ListTaskAttachments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.Store.Attachments().ListByTask(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AnnotationHandler) ListPartAttachments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.Store.Attachments().ListByPart(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
