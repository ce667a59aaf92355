package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/cvforge-backend/internal/handlers"
)

type RouterConfig struct {
	ProfileHandler    *handlers.ProfileHandler
	AnalysisHandler   *handlers.AnalysisHandler
	ChatHandler       *handlers.ChatHandler
	GenerationHandler *handlers.GenerationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Phase 1: CV ingestion
		api.POST("/profiles/upload", cfg.ProfileHandler.UploadCV)
		api.GET("/profiles/:id", cfg.ProfileHandler.GetProfile)

		// Phase 2: job offer analysis
		api.POST("/applications/analyze", cfg.AnalysisHandler.AnalyzeOffer)
		api.GET("/applications/:id/analysis", cfg.AnalysisHandler.GetAnalysis)

		// Phase 3: gap-resolution chat
		api.POST("/applications/:id/chat/init", cfg.ChatHandler.InitializeChat)
		api.POST("/applications/:id/chat/message", cfg.ChatHandler.SendMessage)
		api.GET("/applications/:id/chat", cfg.ChatHandler.GetChatState)

		// Phase 4: document generation
		api.POST("/applications/:id/generate", cfg.GenerationHandler.GenerateDocuments)
		api.POST("/applications/:id/regenerate", cfg.GenerationHandler.RegenerateDocuments)
		api.GET("/applications/:id/documents", cfg.GenerationHandler.GetGeneratedDocuments)
	}

	return router
}
