package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/adapters/llm"
	"github.com/anvesha/vocalis/server/adapters/memory"
	adaptermongo "github.com/anvesha/vocalis/server/adapters/mongo"
	"github.com/anvesha/vocalis/server/adapters/stt"
	"github.com/anvesha/vocalis/server/adapters/tts"
	"github.com/anvesha/vocalis/server/domain/repositories"
	"github.com/anvesha/vocalis/server/internal/api"
	"github.com/anvesha/vocalis/server/internal/websocket"
	"github.com/anvesha/vocalis/server/usecase"
)

func main() {
	// Load .env file if present; production reads the process environment.
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	// Conversation persistence: MongoDB when configured, otherwise in-memory.
	var conversationRepo repositories.ConversationRepository
	if os.Getenv("MONGODB_URI") != "" {
		mongoClient, err := adaptermongo.NewClient(logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoClient.Close(closeCtx)
		}()
		conversationRepo = adaptermongo.NewConversationRepository(mongoClient.Database)
		logger.Info("Using MongoDB conversation repository")
	} else {
		conversationRepo = memory.NewConversationRepository()
		logger.Info("Using in-memory conversation repository")
	}

	// Chat completion provider
	completion := newCompletionClient(logger)

	// Speech synthesis
	synthesizer, err := tts.NewWavesTTS(tts.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech synthesis", zap.Error(err))
	}

	// Speech recognition is optional; without credentials voice input
	// degrades to transcript_unavailable.
	var speechToText repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		speechToText = stt.NewGoogleSpeechToText(logger)
	} else {
		logger.Info("Speech recognition disabled, no Google credentials configured")
	}

	// Initialize usecase services
	store := usecase.NewConversationStore(ctx, conversationRepo, logger)
	service := usecase.NewConversationService(store, completion, os.Getenv("SYSTEM_CONTEXT"), logger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(service, synthesizer, speechToText, synthesizer.DefaultVoiceID(), logger)
	go hub.Run()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, hub, service, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newCompletionClient picks the chat completion provider from LLM_PROVIDER.
func newCompletionClient(logger *zap.Logger) repositories.ChatCompletion {
	config := llm.NewConfigFromEnv()

	switch os.Getenv("LLM_PROVIDER") {
	case "gemini":
		client, err := llm.NewGeminiClient(config, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		return client
	default:
		client, err := llm.NewNvidiaClient(config, logger)
		if err != nil {
			logger.Fatal("Failed to initialize NVIDIA client", zap.Error(err))
		}
		return client
	}
}
