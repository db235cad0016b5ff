package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/adapters/mongo"
	"github.com/siseonlab/voicecoach/adapters/nlu"
	"github.com/siseonlab/voicecoach/adapters/stt"
	"github.com/siseonlab/voicecoach/domain/repositories"
	"github.com/siseonlab/voicecoach/internal/api"
	"github.com/siseonlab/voicecoach/internal/audio"
	"github.com/siseonlab/voicecoach/internal/auth"
	"github.com/siseonlab/voicecoach/internal/config"
	"github.com/siseonlab/voicecoach/internal/metrics"
	"github.com/siseonlab/voicecoach/internal/websocket"
	"github.com/siseonlab/voicecoach/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	// Initialize adapters
	var speechToText repositories.SpeechToText
	if cfg.UseMockSTT {
		logger.Warn("Using mock transcription backend")
		speechToText = stt.NewMockSpeechToText(logger, "")
	} else {
		speechToText = stt.NewGoogleSpeechToText(logger, cfg.Language, cfg.GoogleCredentialsFile)
	}

	var languageBackend repositories.LanguageUnderstanding
	if cfg.GeminiAPIKey != "" {
		gemini, err := nlu.NewGeminiClassifier(context.Background(), cfg.GeminiAPIKey, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini classifier", zap.Error(err))
		}
		languageBackend = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, using local rule-based classifier")
		languageBackend = nlu.NewLocalClassifier()
	}

	decoder := audio.NewDecoder(logger)

	// Recognition logging is optional; without Mongo every insert is a
	// no-op inside the service.
	var logRepo repositories.RecognitionLogRepository
	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		mongoClient, err = mongo.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		logRepo = mongo.NewRecognitionLogRepository(mongoClient, logger)
	} else {
		logger.Warn("MONGODB_URI not set, recognition logging disabled")
	}

	// Initialize usecase services
	recognition := usecase.NewRecognitionService(
		speechToText,
		languageBackend,
		decoder,
		logRepo,
		m,
		logger,
		cfg.TranscribeTimeout,
		cfg.ClassifyTimeout,
	)

	// Initialize WebSocket hub
	hub := websocket.NewHub(recognition, m, cfg.MaxSessionBufferBytes, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, api.Routes{
		Hub:            hub,
		STT:            api.NewSTTHandler(recognition, languageBackend, decoder, cfg.MaxUploadBytes, logger),
		Auth:           auth.NewAuthenticator(cfg.JWTSecret),
		Clients:        cfg.Clients(),
		WSAuthRequired: cfg.WSAuthRequired,
		Logs:           logRepo,
		Registry:       registry,
		Logger:         logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if mongoClient != nil {
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB connection", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
