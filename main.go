package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ericstoecker/anki-translator/api"
	"github.com/ericstoecker/anki-translator/database"
	"github.com/ericstoecker/anki-translator/duplicates"
	"github.com/ericstoecker/anki-translator/integrations"
	"github.com/ericstoecker/anki-translator/syncer"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.path", "anki_translator.db")
	viper.SetDefault("auth.token_validity_hours", 24*7)
	viper.SetDefault("llm.model", "claude-sonnet-4-20250514")
	viper.SetDefault("embeddings.url", "http://localhost:11434")
	viper.SetDefault("embeddings.model", "paraphrase-multilingual")
	viper.SetDefault("duplicates.threshold", 0.6)
	viper.SetDefault("duplicates.top_k", 10)
	viper.SetDefault("cards.example_count", 250)
	if err := viper.ReadInConfig(); err != nil {
		zap.L().Fatal("Error reading config file", zap.Error(err))
	}

	secret := viper.GetString("auth.secret")
	if secret == "" {
		zap.L().Fatal("auth.secret is not configured")
	}

	db := database.Init(viper.GetString("database.path"))
	sqlDB, _ := db.DB()

	llmClient := integrations.NewLLMClient(
		viper.GetString("llm.api_key"),
		viper.GetString("llm.model"),
	)
	embeddingClient := integrations.NewEmbeddingClient(
		viper.GetString("embeddings.url"),
		viper.GetString("embeddings.model"),
	)

	router := gin.Default()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	apiHandler := &api.Handler{
		DB:   db,
		Sync: syncer.NewEngine(db),
		Detector: duplicates.NewDetector(
			db,
			embeddingClient,
			llmClient,
			viper.GetFloat64("duplicates.threshold"),
			viper.GetInt("duplicates.top_k"),
		),
		LLM:              llmClient,
		JWTSecret:        []byte(secret),
		TokenValidity:    time.Duration(viper.GetInt("auth.token_validity_hours")) * time.Hour,
		CardExampleCount: viper.GetInt("cards.example_count"),
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", apiHandler.HealthCheckHandler)
		apiGroup.POST("/auth/register", apiHandler.RegisterHandler)
		apiGroup.POST("/auth/login", apiHandler.LoginHandler)

		authed := apiGroup.Group("", apiHandler.AuthRequired())
		{
			authed.GET("/auth/me", apiHandler.MeHandler)
			authed.PATCH("/auth/me", apiHandler.UpdateMeHandler)

			authed.GET("/cards", apiHandler.ListCardsHandler)
			authed.POST("/cards", apiHandler.CreateCardHandler)
			authed.GET("/cards/:id", apiHandler.GetCardHandler)
			authed.PATCH("/cards/:id", apiHandler.UpdateCardHandler)
			authed.POST("/cards/:id/accept", apiHandler.AcceptCardHandler)
			authed.DELETE("/cards/:id", apiHandler.DeleteCardHandler)

			authed.GET("/decks", apiHandler.ListDecksHandler)
			authed.GET("/decks/:id", apiHandler.GetDeckHandler)
			authed.PATCH("/decks/:id", apiHandler.UpdateDeckHandler)
			authed.GET("/decks/:id/note-types", apiHandler.ListNoteTypesHandler)

			authed.POST("/sync/templates", apiHandler.SyncTemplatesHandler)
			authed.GET("/sync/pull", apiHandler.SyncPullHandler)
			authed.POST("/sync/confirm", apiHandler.SyncConfirmHandler)
			authed.POST("/sync/push", apiHandler.SyncPushHandler)

			authed.POST("/duplicates/check", apiHandler.CheckDuplicateHandler)
			authed.POST("/translate", apiHandler.TranslateHandler)
			authed.POST("/translate/format-card", apiHandler.FormatCardHandler)
			authed.POST("/ocr", apiHandler.OCRHandler)
		}
	}

	port := viper.GetString("server.port")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	zap.L().Info("Starting server", zap.String("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		if sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				zap.L().Error("Error closing database", zap.Error(err))
			} else {
				zap.L().Info("Database connection closed.")
			}
		}
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
}
