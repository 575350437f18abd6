package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	appMiddleware "github.com/havenai/go-estate-assistant/app/middleware"
	"github.com/havenai/go-estate-assistant/internal/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrValidation         = errors.New("validation failed")
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Profile(ctx context.Context, email string) (*types.User, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	repo       Repository
	mailer     Mailer
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

func NewService(repo Repository, mailer Mailer, accessTTL, refreshTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:       repo,
		mailer:     mailer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

func (s *ServiceImpl) Register(ctx context.Context, req RegisterRequest) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()

	if !emailRe.MatchString(req.Email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(req.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	role := req.Role
	switch role {
	case "":
		role = types.RoleBuyer
	case types.RoleBuyer, types.RoleSeller, types.RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := types.User{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		City:      req.City,
		Role:      role,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	return s.repo.CreateUser(ctx, user)
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		span.SetStatus(codes.Error, "Password mismatch")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user.Email, user.Role)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "User logged in", slog.String("email", user.Email))
	return pair, nil
}

func (s *ServiceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Refresh")
	defer span.End()

	claims := &appMiddleware.Claims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return appMiddleware.JwtSecretKey, nil
	})
	if err != nil || !token.Valid || claims.Type != appMiddleware.TokenTypeRefresh {
		span.SetStatus(codes.Error, "Refresh token rejected")
		return nil, ErrInvalidToken
	}

	// Re-read the user so a role change or deletion takes effect on refresh.
	user, err := s.repo.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		span.RecordError(err)
		return nil, err
	}
	return s.issueTokens(user.Email, user.Role)
}

func (s *ServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ForgotPassword")
	defer span.End()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		// Same outcome as success so the endpoint cannot be used to probe
		// which addresses have accounts.
		s.logger.InfoContext(ctx, "Password reset requested for unknown email", slog.String("email", email))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	code, err := generateOTP()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	if err := s.repo.UpsertOTP(ctx, user.Email, code); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		s.logger.ErrorContext(ctx, "OTP mail delivery failed", slog.String("email", user.Email), slog.Any("error", err))
	}
	return nil
}

func (s *ServiceImpl) VerifyOTP(ctx context.Context, email, code string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "VerifyOTP")
	defer span.End()

	_, err := s.repo.FindOTP(ctx, email, code)
	return err
}

func (s *ServiceImpl) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ResetPassword")
	defer span.End()

	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	if _, err := s.repo.FindOTP(ctx, email, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, email, string(hash)); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.repo.DeleteOTP(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete used OTP", slog.String("email", email), slog.Any("error", err))
	}
	s.logger.InfoContext(ctx, "Password reset completed", slog.String("email", email))
	return nil
}

// Profile returns the stored account for the given email. The password hash
// never leaves this package in serialized form, types.User hides it from JSON.
func (s *ServiceImpl) Profile(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Profile")
	defer span.End()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			span.RecordError(err)
		}
		return nil, err
	}
	return user, nil
}

func (s *ServiceImpl) issueTokens(email, role string) (*TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, appMiddleware.Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	accessToken, err := access.SignedString(appMiddleware.JwtSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, appMiddleware.Claims{
		Email: email,
		Type:  appMiddleware.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	refreshToken, err := refresh.SignedString(appMiddleware.JwtSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// generateOTP returns a 6 digit code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
