// SleepSense API
//
// REST API for sleep consolidation and analysis.
//
//	@title			SleepSense API
//	@version		1.0
//	@description	Merge sleep sessions from health platforms and manual entry, consolidate fragmented nights, and generate sleep trends and recommendations.
//
//	@BasePath	/v1
//
//	@tag.name			users
//	@tag.description	User management endpoints
//
//	@tag.name			sessions
//	@tag.description	Sleep session recording and merged history
//
//	@tag.name			analysis
//	@tag.description	Trends, naps and recommendations
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/blaisecz/sleepsense/internal/api"
	"github.com/blaisecz/sleepsense/internal/api/handler"
	"github.com/blaisecz/sleepsense/internal/config"
	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/enrichment"
	"github.com/blaisecz/sleepsense/internal/langfuse"
	"github.com/blaisecz/sleepsense/internal/repository"
	"github.com/blaisecz/sleepsense/internal/seed"
	"github.com/blaisecz/sleepsense/internal/service"
	"github.com/blaisecz/sleepsense/internal/source"
	"github.com/blaisecz/sleepsense/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing (no-op when Langfuse is not configured)
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg, "sleepsense-api")
	if err != nil {
		log.Fatal("Failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(ctx)

	// Connect to database
	db, err := config.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schema
	if err := db.AutoMigrate(&domain.User{}, &domain.SleepSession{}); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migration completed")

	if cfg.Seed {
		log.Info("Seeding database with sample data (SEED=true)")
		if err := seed.Run(db); err != nil {
			log.Fatal("Failed to seed database", zap.Error(err))
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewManualSessionRepository(db)

	// Sources: manual entry always, the health platform only when configured.
	sources := []source.Source{
		source.NewManualSource(sessionRepo, log),
	}
	if platform := source.NewPlatformSource(cfg.PlatformAPIURL, cfg.PlatformAPIKey, log); platform != nil {
		sources = append(sources, platform)
	} else {
		log.Info("Platform source disabled, PLATFORM_API_URL is empty")
	}

	// Services
	consolidator := service.NewConsolidator(sources, time.Duration(cfg.MergeGapMinutes)*time.Minute)
	userService := service.NewUserService(userRepo)
	sessionService := service.NewManualSessionService(sessionRepo, userRepo)
	trendAnalyzer := service.NewTrendAnalyzer()
	recommender := service.NewRecommendationGenerator()
	napDetector := service.NewNapDetector()

	// Langfuse tracing client (no-op when not configured)
	lfClient := langfuse.NewClient(langfuse.Config{
		BaseURL:     cfg.LangfuseBaseURL,
		PublicKey:   cfg.LangfusePublicKey,
		SecretKey:   cfg.LangfuseSecretKey,
		Environment: cfg.LangfuseEnv,
		Logger:      log,
	})

	// Advice enricher (nil when no API key; analysis degrades to local-only)
	var enricher enrichment.AdviceEnricher
	if client := enrichment.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIAdviceModel); client != nil {
		if prompt, err := langfuse.LoadPrompt(ctx, langfuse.PromptLoaderConfig{
			BaseURL:     cfg.LangfuseBaseURL,
			PublicKey:   cfg.LangfusePublicKey,
			SecretKey:   cfg.LangfuseSecretKey,
			PromptName:  cfg.LangfusePromptName,
			PromptLabel: cfg.LangfusePromptLabel,
			SavePath:    cfg.LangfusePromptSavePath,
			Logger:      log,
		}); err == nil && prompt != "" {
			client.SetSystemPrompt(prompt)
			log.Info("Loaded advice system prompt", zap.String("prompt_name", cfg.LangfusePromptName))
		}
		enricher = client
	} else {
		log.Warn("OpenAI API key not configured, advice will be local-only")
	}

	orchestrator := service.NewAnalysisOrchestrator(
		consolidator,
		trendAnalyzer,
		recommender,
		userRepo,
		enricher,
		lfClient,
		time.Duration(cfg.EnrichmentTimeoutSeconds)*time.Second,
		log,
	)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	sessionHandler := handler.NewSessionHandler(sessionService, consolidator)
	analysisHandler := handler.NewAnalysisHandler(orchestrator, sessionService, consolidator, napDetector, userService)

	// Setup router
	router := api.NewRouter(userHandler, sessionHandler, analysisHandler, log)
	routerHandler := router.Setup()

	// Start server
	addr := ":" + cfg.Port
	log.Info("Starting server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, routerHandler); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}
