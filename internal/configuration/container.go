package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/db"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/handler"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/hub"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/repo"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Container struct {
	ChatHandler    handler.ChatHandler
	MonitorHandler handler.MonitorHandler
	Verifier       auth.Verifier
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer() (*Container, error) {
	config, err := LoadConfig(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := NewLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("config loaded",
		zap.Int("app_port", config.Server.AppPort),
		zap.Int("socket_port", config.Server.SocketPort),
		zap.String("database", config.Mongo.Database),
	)

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database, config.Mongo.MaxPoolSize)
	if err != nil {
		return nil, err
	}

	if config.Mongo.EnsureIndexes {
		if err := db.EnsureIndexes(context.Background(), con, config.Mongo.ConversationsCollection, config.Mongo.MessagesCollection); err != nil {
			logger.Warn("index creation failed", zap.Error(err))
		}
	}

	conversationRepo := repo.NewConversationRepository(
		db.NewRepository[model.Conversation](con, config.Mongo.ConversationsCollection), logger)
	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.Mongo.MessagesCollection), logger)
	userRepo := repo.NewUserRepository(
		db.NewRepository[model.User](con, config.Mongo.UsersCollection), logger)

	verifier := auth.NewJWTVerifier(config.Auth.JwtSecret, config.Auth.Issuer, userRepo, logger)
	chatService := service.NewChatService(conversationRepo, messageRepo, userRepo, logger)

	h := hub.NewHub(verifier, chatService, chatService, logger.Named("hub"), hubOptions(*config))

	chatHandler := handler.NewChatHandler(chatService, h, h, logger)
	monitorHandler := handler.NewMonitorHandler(hub.NewMonitorService(h), func(ctx context.Context) error {
		return con.Client().Ping(ctx, readpref.Primary())
	}, logger)

	return &Container{
		ChatHandler:    chatHandler,
		MonitorHandler: monitorHandler,
		Verifier:       verifier,
		Hub:            h,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
	}, nil
}

func hubOptions(config Config) hub.Options {
	return hub.Options{
		AllowedOrigins: config.Cors.AllowOrigins,
		PingInterval:   seconds(config.Hub.PingIntervalSeconds),
		PongWait:       seconds(config.Hub.PongWaitSeconds),
		SendBuffer:     config.Hub.SendBuffer,
		QueueSize:      config.Hub.QueueSize,
		TypingTimeout:  seconds(config.Hub.TypingTimeoutSeconds),
		MaxMessageSize: int64(config.Hub.MaxMessageBytes),
	}
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return nil
}
