package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fabwatch/fabwatch-backend/internal/handlers"
)

type RouterConfig struct {
	HealthHandler         *handlers.HealthHandler
	CharacteristicHandler *handlers.CharacteristicHandler
	SampleHandler         *handlers.SampleHandler
	LimitsHandler         *handlers.LimitsHandler
	ViolationHandler      *handlers.ViolationHandler
	AnnotationHandler     *handlers.AnnotationHandler
	ChartHandler          *handlers.ChartHandler
	StreamHandler         *handlers.StreamHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.Check)
	router.GET("/sse/stream", cfg.StreamHandler.Stream)

	api := router.Group("/api")
	{
		// Characteristics
		api.POST("/characteristics", cfg.CharacteristicHandler.Create)
		api.GET("/characteristics", cfg.CharacteristicHandler.List)
		api.GET("/characteristics/:id", cfg.CharacteristicHandler.Get)
		api.PATCH("/characteristics/:id", cfg.CharacteristicHandler.Update)

		// Samples
		api.POST("/characteristics/:id/samples", cfg.SampleHandler.Submit)
		api.GET("/samples/:id", cfg.SampleHandler.Get)
		api.PUT("/samples/:id", cfg.SampleHandler.Edit)
		api.POST("/samples/:id/exclude", cfg.SampleHandler.Exclude)
		api.GET("/samples/:id/history", cfg.SampleHandler.History)

		// Control limits
		api.GET("/characteristics/:id/limits", cfg.LimitsHandler.Get)
		api.PUT("/characteristics/:id/limits", cfg.LimitsHandler.Set)
		api.POST("/characteristics/:id/limits/recalculate", cfg.LimitsHandler.Recalculate)

		// Violations
		api.GET("/violations", cfg.ViolationHandler.List)
		api.GET("/violations/stats", cfg.ViolationHandler.Stats)
		api.POST("/violations/ack", cfg.ViolationHandler.BatchAcknowledge)
		api.POST("/violations/:id/ack", cfg.ViolationHandler.Acknowledge)

		// Annotations
		api.POST("/characteristics/:id/annotations", cfg.AnnotationHandler.Create)
		api.GET("/characteristics/:id/annotations", cfg.AnnotationHandler.List)

		// Chart
		api.GET("/characteristics/:id/chart", cfg.ChartHandler.Get)
	}

	return router
}
