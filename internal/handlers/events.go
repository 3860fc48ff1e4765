package handlers

import (
	"net/http"

	"docflow/internal/store"
	"docflow/internal/workflow"

	"github.com/gin-gonic/gin"
)

// EventHandler отдаёт хронологию журнала. Записывающих ручек у журнала нет.
type EventHandler struct {
	Svc   *workflow.Service
	Store store.Store
}

func (h *EventHandler) ListTaskEvents(c *gin.Context) {
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

	events, err := h.Svc.ListEvents(c.Request.Context(), store.EventFilter{TaskID: taskID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) ListPartEvents(c *gin.Context) {
	partID, ok := parseID(c, "id")
	if !ok {
		return
	}

	part, err := h.Store.Parts().Get(c.Request.Context(), partID)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "part not found"})
			return
		}
		writeError(c, err)
		return
	}

	pid := part.ID
	events, err := h.Svc.ListEvents(c.Request.Context(), store.EventFilter{TaskID: part.TaskID, PartID: &pid})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
