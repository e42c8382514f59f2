package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskshare/backend/internal/identity"
	"taskshare/backend/internal/middleware"
	"taskshare/backend/internal/monitoring"
	"taskshare/backend/internal/services"
)

type RouterConfig struct {
	TaskService          services.TaskService
	CollaborationService services.CollaborationService
	TokenResolver        identity.TokenResolver
	Metrics              *monitoring.Metrics
	HealthChecker        *monitoring.HealthChecker

	// RateLimiter is optional; nil disables throttling.
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

// NewRouter wires the full HTTP surface. Task routes sit behind bearer auth;
// health and metrics stay open for probes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryWithLog())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	if cfg.HealthChecker != nil {
		router.GET("/health", cfg.HealthChecker.Handler())
		router.GET("/health/ready", cfg.HealthChecker.ReadinessHandler())
		router.GET("/health/live", cfg.HealthChecker.LivenessHandler())
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	taskHandler := NewTaskHandler(cfg.TaskService)
	collabHandler := NewCollaboratorHandler(cfg.CollaborationService)

	tasks := router.Group("/tasks")
	tasks.Use(middleware.RequireAuth(cfg.TokenResolver))
	if cfg.RateLimiter != nil {
		tasks.Use(cfg.RateLimiter.Middleware())
	}
	{
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("", taskHandler.ListTasks)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PUT("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
		tasks.PATCH("/:id/toggle", taskHandler.ToggleTask)

		tasks.GET("/:id/collaborators", collabHandler.ListCollaborators)
		tasks.POST("/:id/collaborators", collabHandler.AddCollaborator)
		tasks.DELETE("/:id/collaborators/:collabId", collabHandler.RemoveCollaborator)
		tasks.POST("/:id/assign", collabHandler.AssignTask)
		tasks.POST("/:id/unassign", collabHandler.UnassignTask)
	}

	return router
}
