package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	database "github.com/havenai/go-estate-assistant/app/db"
	"github.com/havenai/go-estate-assistant/internal/types"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrOTPNotFound  = errors.New("otp not found or expired")
)

type Repository interface {
	CreateUser(ctx context.Context, user types.User) error
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	UpdatePassword(ctx context.Context, email, hashedPassword string) error
	UpsertOTP(ctx context.Context, email, code string) error
	FindOTP(ctx context.Context, email, code string) (*types.OTP, error)
	DeleteOTP(ctx context.Context, email string) error
}

var _ Repository = (*RepositoryImpl)(nil)

type RepositoryImpl struct {
	users  *mongo.Collection
	otps   *mongo.Collection
	logger *slog.Logger
}

func NewRepositoryImpl(db *mongo.Database, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		users:  db.Collection(database.CollUsers),
		otps:   db.Collection(database.CollOTPs),
		logger: logger,
	}
}

func (r *RepositoryImpl) CreateUser(ctx context.Context, user types.User) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser")
	defer span.End()

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			span.SetStatus(codes.Error, "Email already registered")
			return ErrEmailTaken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.logger.InfoContext(ctx, "User registered", slog.String("email", user.Email), slog.String("role", user.Role))
	return nil
}

func (r *RepositoryImpl) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail")
	defer span.End()

	var user types.User
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

func (r *RepositoryImpl) UpdatePassword(ctx context.Context, email, hashedPassword string) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdatePassword")
	defer span.End()

	res, err := r.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"password": hashedPassword}})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpsertOTP replaces any outstanding code for the email so only the most
// recently issued one is valid.
func (r *RepositoryImpl) UpsertOTP(ctx context.Context, email, code string) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpsertOTP")
	defer span.End()

	doc := types.OTP{Email: email, Code: code, CreatedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.otps.ReplaceOne(ctx, bson.M{"email": email}, doc, opts); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) FindOTP(ctx context.Context, email, code string) (*types.OTP, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "FindOTP")
	defer span.End()

	var otp types.OTP
	err := r.otps.FindOne(ctx, bson.M{"email": email, "otp": code}).Decode(&otp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch otp: %w", err)
	}
	return &otp, nil
}

func (r *RepositoryImpl) DeleteOTP(ctx context.Context, email string) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "DeleteOTP")
	defer span.End()

	if _, err := r.otps.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}
