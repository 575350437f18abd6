package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/havenai/go-estate-assistant/config"
)

const defaultRetries = 5

// Collection names. Inquiries fan out by intent category; everything that is
// not Buy/Rent/Sell lands in the generic log.
const (
	CollProperties    = "properties"
	CollUsers         = "users"
	CollOTPs          = "otps"
	CollBuyInquiries  = "buy_inquiries"
	CollRentInquiries = "rent_inquiries"
	CollSellInquiries = "sell_inquiries"
	CollInquiryLogs   = "inquiry_logs"
)

// Connect opens a client against the configured deployment and returns the
// application database handle.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	uri := cfg.Repositories.Mongo.URI
	if uri == "" {
		return nil, nil, fmt.Errorf("mongo URI is missing from configuration")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("Failed to connect to MongoDB", slog.Any("error", err))
		return nil, nil, fmt.Errorf("failed connecting to mongo: %w", err)
	}

	logger.Info("MongoDB client initialized", slog.String("database", cfg.Repositories.Mongo.DB))
	return client, client.Database(cfg.Repositories.Mongo.DB), nil
}

// WaitForDB pings the deployment until it answers or the retry budget runs out.
func WaitForDB(ctx context.Context, client *mongo.Client, logger *slog.Logger) bool {
	maxAttempts := defaultRetries
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err := client.Ping(ctx, nil)
		if err == nil {
			logger.InfoContext(ctx, "Database connection successful")
			return true
		}

		waitDuration := time.Duration(attempts) * 200 * time.Millisecond
		logger.WarnContext(ctx, "Database ping failed, retrying...",
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("wait_duration", waitDuration),
			slog.String("error", err.Error()),
		)
		if attempts < maxAttempts {
			time.Sleep(waitDuration)
		}
	}
	logger.ErrorContext(ctx, "Database connection failed after multiple retries")
	return false
}

// EnsureIndexes creates the indexes the query paths rely on: the property
// search fields, a unique user email, and the OTP TTL. Safe to call on every
// startup; Mongo treats re-creation of an identical index as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database, otpTTL time.Duration, logger *slog.Logger) error {
	logger.Info("Ensuring database indexes...")

	propertyIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "city", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "bedrooms", Value: 1}}},
		// Compound index for the common search pattern
		{Keys: bson.D{{Key: "city", Value: 1}, {Key: "price", Value: 1}}},
	}
	if _, err := db.Collection(CollProperties).Indexes().CreateMany(ctx, propertyIndexes); err != nil {
		logger.Error("Failed to create property indexes", slog.Any("error", err))
		return fmt.Errorf("failed to create property indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(CollUsers).Indexes().CreateMany(ctx, userIndexes); err != nil {
		logger.Error("Failed to create user indexes", slog.Any("error", err))
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	otpIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(otpTTL.Seconds())),
	}
	if _, err := db.Collection(CollOTPs).Indexes().CreateOne(ctx, otpIndex); err != nil {
		logger.Error("Failed to create OTP TTL index", slog.Any("error", err))
		return fmt.Errorf("failed to create otp ttl index: %w", err)
	}

	logger.Info("Database indexes ensured")
	return nil
}
