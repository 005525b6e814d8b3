package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pathlight-hq/pathlight-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName        string
	EnrollmentHandler  *handlers.EnrollmentHandler
	ProgressHandler    *handlers.ProgressHandler
	PathHandler        *handlers.PathHandler
	CertificateHandler *handlers.CertificateHandler
	AllowOrigins       []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/enrollments", cfg.EnrollmentHandler.Enroll)
		api.POST("/progress", cfg.ProgressHandler.ApplyProgress)
		api.POST("/paths/:id/start", cfg.PathHandler.StartPath)
		api.POST("/paths/:id/publish", cfg.PathHandler.PublishPath)
		api.GET("/learners/:id/courses/:course_id/progress", cfg.ProgressHandler.GetCourseProgress)
		api.GET("/learners/:id/paths/:path_id/progress", cfg.PathHandler.GetPathProgress)
		api.GET("/learners/:id/certificates", cfg.CertificateHandler.ListForLearner)
	}

	return router
}
