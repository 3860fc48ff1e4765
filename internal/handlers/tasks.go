package handlers

import (
	"net/http"
	"time"

	"docflow/internal/models"
	"docflow/internal/store"
	"docflow/internal/workflow"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	Svc   *workflow.Service
	Store store.Store
}

func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	var in workflow.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.Svc.CreateTask(c.Request.Context(), in, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Список задач своей организации с фильтрами из строки запроса.
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	f := store.TaskFilter{
		CompanyID:  actor.CompanyID,
		Status:     models.TaskStatus(c.Query("status")),
		Type:       models.TaskType(c.Query("type")),
		Priority:   models.TaskPriority(c.Query("priority")),
		Department: c.Query("department"),
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.To = &t
		}
	}

	tasks, err := h.Store.Tasks().List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := h.Store.Tasks().GetWithParts(c.Request.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in workflow.UpdateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.Svc.UpdateTask(c.Request.Context(), id, in, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Svc.DeleteTask(c.Request.Context(), id, actor); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
