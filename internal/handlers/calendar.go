package handlers

import (
	"net/http"
	"strconv"
	"time"

	"docflow/internal/stats"

	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	Engine *stats.Engine
}

// Month — сводка по дням месяца для календаря. Организация берётся из
// текущего пользователя; исполнитель — необязательный фильтр.
// Ручка всегда отвечает 200: при сбое выборки карта просто пустая.
func (h *CalendarHandler) Month(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if v := c.Query("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			year = n
		}
	}
	if v := c.Query("month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			month = n
		}
	}

	var assigneeID *uint
	if v := c.Query("assignee_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			id := uint(n)
			assigneeID = &id
		}
	}

	days := h.Engine.MonthStatistics(c.Request.Context(), year, month, actor.CompanyID, assigneeID)
	c.JSON(http.StatusOK, gin.H{
		"year":  year,
		"month": month,
		"days":  days,
	})
}
