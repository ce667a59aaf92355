package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/cvforge-backend/internal/db"
	"github.com/yungbote/cvforge-backend/internal/handlers"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/repos"
	"github.com/yungbote/cvforge-backend/internal/server"
	"github.com/yungbote/cvforge-backend/internal/services"
	"github.com/yungbote/cvforge-backend/internal/utils"
)

func main() {
	// Env file is optional; real deployments inject the environment.
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	profileRepo := repos.NewProfileRepo(thePG, log)
	jobOfferRepo := repos.NewJobOfferRepo(thePG, log)
	applicationRepo := repos.NewApplicationRepo(thePG, log)

	// Services
	log.Info("Setting up services from main...")
	geminiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Error("Could not init GeminiClient", "error", err)
		os.Exit(1)
	}
	latexClient := services.NewLatexClient(log)
	sentiment := services.NewKeywordSentiment()

	profileService := services.NewProfileService(thePG, log, profileRepo, geminiClient)
	analysisService := services.NewAnalysisService(thePG, log, profileRepo, jobOfferRepo, applicationRepo, geminiClient)
	chatService := services.NewChatService(thePG, log, applicationRepo, geminiClient, sentiment)
	generationService := services.NewGenerationService(thePG, log, applicationRepo, geminiClient, latexClient)

	// Handlers
	log.Info("Setting up handlers from main...")
	profileHandler := handlers.NewProfileHandler(log, profileService)
	analysisHandler := handlers.NewAnalysisHandler(log, analysisService)
	chatHandler := handlers.NewChatHandler(log, chatService)
	generationHandler := handlers.NewGenerationHandler(log, generationService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ProfileHandler:    profileHandler,
		AnalysisHandler:   analysisHandler,
		ChatHandler:       chatHandler,
		GenerationHandler: generationHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
