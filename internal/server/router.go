package server

import (
	"net/http"

	"docflow/internal/config"
	"docflow/internal/handlers"
	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/stats"
	"docflow/internal/store"
	"docflow/internal/workflow"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func NewRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	r := gin.Default()

	st := store.NewGorm(db)
	svc := workflow.NewService(st)
	engine := stats.NewEngine(st)

	authH := &handlers.AuthHandler{DB: db}
	taskH := &handlers.TaskHandler{Svc: svc, Store: st}
	partH := &handlers.PartHandler{Svc: svc, Store: st}
	annH := &handlers.AnnotationHandler{Svc: svc, Store: st}
	eventH := &handlers.EventHandler{Svc: svc, Store: st}
	calH := &handlers.CalendarHandler{Engine: engine}

	cookieStore := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions(cfg.SessionName, cookieStore))

	r.Use(middleware.InjectUser(db))

	// AUTH
	r.POST("/register", authH.Register)
	r.POST("/login", authH.Login)
	r.POST("/logout", authH.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.GET("/me", authH.Me)

	// ЗАДАЧИ
	auth.GET("/tasks", taskH.List)
	auth.GET("/tasks/:id", taskH.Get)
	auth.POST("/tasks",
		middleware.RequireRole(models.RoleAdmin, models.RoleRegistrar),
		taskH.Create,
	)
	auth.PUT("/tasks/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleRegistrar, models.RoleSigner),
		taskH.Update,
	)

	// удаление задач — только админ
	auth.DELETE("/tasks/:id",
		middleware.RequireRole(models.RoleAdmin),
		taskH.Delete,
	)

	// ЧАСТИ ЗАДАЧИ
	auth.GET("/tasks/:id/parts", partH.ListByTask)
	auth.POST("/tasks/:id/parts",
		middleware.RequireRole(models.RoleAdmin, models.RoleRegistrar),
		partH.Create,
	)
	auth.DELETE("/parts/:id", partH.Delete)

	// переход статуса: право проверяет сама машина состояний по актору
	auth.POST("/parts/:id/transition", partH.Transition)

	// КОММЕНТАРИИ И ВЛОЖЕНИЯ
	auth.GET("/tasks/:id/comments", annH.ListTaskComments)
	auth.POST("/tasks/:id/comments", annH.CreateTaskComment)
	auth.GET("/parts/:id/comments", annH.ListPartComments)
	auth.POST("/parts/:id/comments", annH.CreatePartComment)

	auth.GET("/tasks/:id/attachments", annH.ListTaskAttachments)
	auth.POST("/tasks/:id/attachments", annH.CreateTaskAttachment)
	auth.GET("/parts/:id/attachments", annH.ListPartAttachments)
	auth.POST("/parts/:id/attachments", annH.CreatePartAttachment)

	// ЖУРНАЛ
	auth.GET("/tasks/:id/events", eventH.ListTaskEvents)
	auth.GET("/parts/:id/events", eventH.ListPartEvents)

	// КАЛЕНДАРЬ
	auth.GET("/calendar", calH.Month)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
