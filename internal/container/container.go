package container

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	database "github.com/havenai/go-estate-assistant/app/db"
	"github.com/havenai/go-estate-assistant/config"
	"github.com/havenai/go-estate-assistant/internal/api/auth"
	"github.com/havenai/go-estate-assistant/internal/api/chat"
	generativeAI "github.com/havenai/go-estate-assistant/internal/api/generative_ai"
	"github.com/havenai/go-estate-assistant/internal/api/inquiry"
	"github.com/havenai/go-estate-assistant/internal/api/property"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *slog.Logger
	MongoClient     *mongo.Client
	AuthHandler     *auth.HandlerImpl
	PropertyHandler *property.HandlerImpl
	ChatHandler     *chat.HandlerImpl
}

// NewContainer wires repositories, services and handlers over a single
// Mongo database handle and the Gemini client.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	client, db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", slog.Any("error", err))
		return nil, err
	}
	if !database.WaitForDB(ctx, client, logger) {
		logger.Warn("Proceeding without a confirmed database connection")
	}
	if err := database.EnsureIndexes(ctx, db, cfg.Auth.OTPTTL, logger); err != nil {
		logger.Error("Failed to ensure indexes", slog.Any("error", err))
		return nil, err
	}

	propertyRepo := property.NewRepository(db, logger)
	propertyService := property.NewService(propertyRepo, logger)
	propertyHandler := property.NewHandler(propertyService, logger)

	inquiryRepo := inquiry.NewRepository(db, logger)
	inquiryService := inquiry.NewService(inquiryRepo, propertyService, logger)

	aiClient, err := generativeAI.NewAIClient(ctx, cfg.Assistant.Model)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		return nil, err
	}
	chatService := chat.NewService(aiClient, propertyService, cfg.Assistant.Temperature, cfg.Assistant.TurnTimeout, logger)
	chatHandler := chat.NewHandlerImpl(chatService, inquiryService, logger)

	var mailer auth.Mailer
	if cfg.Mail.Server != "" && cfg.Mail.Username != "" {
		mailer = auth.NewSMTPMailer(cfg.Mail.Server, cfg.Mail.Port, cfg.Mail.From, cfg.Mail.Username, logger)
	} else {
		mailer = auth.NewLogMailer(logger)
	}
	authRepo := auth.NewRepositoryImpl(db, logger)
	authService := auth.NewService(authRepo, mailer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, logger)
	authHandler := auth.NewHandlerImpl(authService, logger)

	return &Container{
		Config:          cfg,
		Logger:          logger,
		MongoClient:     client,
		AuthHandler:     authHandler,
		PropertyHandler: propertyHandler,
		ChatHandler:     chatHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close(ctx context.Context) {
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			c.Logger.Warn("Failed to disconnect from MongoDB", slog.Any("error", err))
		}
	}
}
