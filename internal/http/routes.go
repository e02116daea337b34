package http

import (
	"time"

	"task_manager/internal/config"
	"task_manager/internal/domain"
	"task_manager/internal/http/handlers"
	"task_manager/internal/http/middleware"
	"task_manager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) {
	h := handlers.NewHandler(db)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	apiRateWindow := time.Duration(cfg.APIRateWindow) * time.Second
	authRateWindow := time.Duration(cfg.AuthRateWindow) * time.Second

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, apiRateWindow))

	// Auth; register/login get the tighter auth limit on top of the API one
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit, authRateWindow)
	v1.POST("/auth/register", authRL, h.Register)
	v1.POST("/auth/login", authRL, h.Login)
	v1.POST("/auth/logout", middleware.JWT(), h.Logout)

	v1.GET("/me", middleware.JWT(), h.Me)

	// Task CRUD. Route permissions gate the operation kind; handlers check
	// ownership of the specific row on top.
	perms := repository.NewUserRepository(db)
	tasks := v1.Group("/tasks")
	tasks.Use(middleware.JWT())
	{
		tasks.GET("", middleware.RequirePermission(perms, domain.PermViewTasks), h.ListTasks)
		tasks.POST("", middleware.RequirePermission(perms, domain.PermCreateTasks), h.CreateTask)
		tasks.GET("/:id", middleware.RequirePermission(perms, domain.PermViewTasks), h.GetTask)
		tasks.PUT("/:id", middleware.RequirePermission(perms, domain.PermEditTasks), h.UpdateTask)
		tasks.DELETE("/:id", middleware.RequirePermission(perms, domain.PermDeleteTasks), h.DeleteTask)
	}
}
