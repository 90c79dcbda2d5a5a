package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Pragadees15/sport-backend/internal/chat"
	"github.com/Pragadees15/sport-backend/internal/comments"
	"github.com/Pragadees15/sport-backend/internal/config"
	"github.com/Pragadees15/sport-backend/internal/database"
	"github.com/Pragadees15/sport-backend/internal/events"
	"github.com/Pragadees15/sport-backend/internal/identities"
	"github.com/Pragadees15/sport-backend/internal/notifications"
	"github.com/Pragadees15/sport-backend/internal/posts"
	"github.com/Pragadees15/sport-backend/internal/server"
	"github.com/Pragadees15/sport-backend/internal/tokens"
	"github.com/Pragadees15/sport-backend/internal/upload"
	"github.com/Pragadees15/sport-backend/internal/users"
	"github.com/Pragadees15/sport-backend/internal/ws"
	"github.com/Pragadees15/sport-backend/pkg/logger"
	"github.com/Pragadees15/sport-backend/pkg/metrics"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Create logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Create event bus (disabled when Kafka is off)
	var brokers []string
	if cfg.Kafka.Enabled {
		brokers = cfg.Kafka.Brokers
	}
	bus := events.NewBus(zapLogger, brokers, cfg.Kafka.Topic)
	defer bus.Close()

	// Hub authorization is wired after the chat service exists
	var chatSvc chat.ChatService
	hub := ws.NewHub(zapLogger, redisClient, func(ctx context.Context, userID uuid.UUID, topic string) bool {
		if chatSvc == nil {
			return false
		}
		return server.ChatTopicAuthorizer(chatSvc)(ctx, userID, topic)
	}, 16, 1000)

	// Create services
	notificationsSvc, err := notifications.NewService(zapLogger, db, bus, hub)
	if err != nil {
		zapLogger.Fatal("Failed to create notifications service", zap.Error(err))
	}

	tokensSvc, err := tokens.NewService(zapLogger, db, notificationsSvc, bus)
	if err != nil {
		zapLogger.Fatal("Failed to create tokens service", zap.Error(err))
	}

	identitiesSvc, err := identities.NewService(zapLogger, db, redisClient, tokensSvc, identities.Config{
		JWTSecret:       cfg.JWT.Secret,
		ExpirationHours: cfg.JWT.ExpirationHours,
		RefreshSecret:   cfg.JWT.RefreshSecret,
		RefreshExpHours: cfg.JWT.RefreshExpHours,
		Issuer:          cfg.JWT.Issuer,
	})
	if err != nil {
		zapLogger.Fatal("Failed to create identities service", zap.Error(err))
	}

	usersSvc, err := users.NewService(zapLogger, db, notificationsSvc)
	if err != nil {
		zapLogger.Fatal("Failed to create users service", zap.Error(err))
	}

	postsSvc, err := posts.NewService(zapLogger, db, notificationsSvc, usersSvc, bus)
	if err != nil {
		zapLogger.Fatal("Failed to create posts service", zap.Error(err))
	}

	commentsSvc, err := comments.NewService(zapLogger, db, notificationsSvc)
	if err != nil {
		zapLogger.Fatal("Failed to create comments service", zap.Error(err))
	}

	chatSvc, err = chat.NewService(zapLogger, db, notificationsSvc, usersSvc, hub)
	if err != nil {
		zapLogger.Fatal("Failed to create chat service", zap.Error(err))
	}

	uploadSvc, err := upload.NewService(zapLogger, cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.UploadFolder)
	if err != nil {
		zapLogger.Fatal("Failed to create upload service", zap.Error(err))
	}

	// Schedule DB pool metrics collection every 30s
	tickerDB := time.NewTicker(30 * time.Second)
	defer tickerDB.Stop()
	go func() {
		for range tickerDB.C {
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.DBOpenConns.WithLabelValues("postgres").Set(float64(stats.OpenConnections))
				metrics.DBIdleConns.WithLabelValues("postgres").Set(float64(stats.Idle))
				metrics.DBInUseConns.WithLabelValues("postgres").Set(float64(stats.InUse))
			}
		}
	}()

	// Create API server
	apiServer := server.NewServer(
		zapLogger,
		identitiesSvc,
		usersSvc,
		postsSvc,
		commentsSvc,
		chatSvc,
		notificationsSvc,
		tokensSvc,
		uploadSvc,
		hub,
		redisClient,
		server.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RateLimit: server.RateLimitConfig{
				Enabled:        cfg.RateLimit.Enabled,
				Window:         cfg.RateLimit.Window,
				RequestsPerWin: cfg.RateLimit.RequestsPerWindow,
				AuthPerWin:     cfg.RateLimit.AuthPerWindow,
			},
		},
	)

	// Start services
	if err := identitiesSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start identities service", zap.Error(err))
	}
	if err := tokensSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start tokens service", zap.Error(err))
	}
	if err := usersSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start users service", zap.Error(err))
	}
	if err := postsSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start posts service", zap.Error(err))
	}
	if err := commentsSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start comments service", zap.Error(err))
	}
	if err := chatSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start chat service", zap.Error(err))
	}
	if err := notificationsSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start notifications service", zap.Error(err))
	}

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down API server", zap.Error(err))
	}

	if err := hub.Shutdown(); err != nil {
		zapLogger.Error("Failed to shut down WebSocket hub", zap.Error(err))
	}

	// Stop services
	if err := notificationsSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop notifications service", zap.Error(err))
	}
	if err := chatSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop chat service", zap.Error(err))
	}
	if err := commentsSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop comments service", zap.Error(err))
	}
	if err := postsSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop posts service", zap.Error(err))
	}
	if err := usersSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop users service", zap.Error(err))
	}
	if err := tokensSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop tokens service", zap.Error(err))
	}
	if err := identitiesSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop identities service", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
