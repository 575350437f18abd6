package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appMiddleware "github.com/havenai/go-estate-assistant/app/middleware"
	"github.com/havenai/go-estate-assistant/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockRepository) UpdatePassword(ctx context.Context, email, hashedPassword string) error {
	args := m.Called(ctx, email, hashedPassword)
	return args.Error(0)
}

func (m *MockRepository) UpsertOTP(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func (m *MockRepository) FindOTP(ctx context.Context, email, code string) (*types.OTP, error) {
	args := m.Called(ctx, email, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.OTP), args.Error(1)
}

func (m *MockRepository) DeleteOTP(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOTP(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}

func setupAuthServiceTest() (*ServiceImpl, *MockRepository, *MockMailer) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockRepository)
	mockMailer := new(MockMailer)
	service := NewService(mockRepo, mockMailer, 15*time.Minute, 168*time.Hour, logger)
	return service, mockRepo, mockMailer
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes the password and defaults the role", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		mockRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u types.User) bool {
			return u.Role == types.RoleBuyer &&
				u.Password != "secret123" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret123")) == nil
		})).Return(nil).Once()

		err := service.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret123"})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		err := service.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "secret123"})
		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("rejects short password", func(t *testing.T) {
		service, _, _ := setupAuthServiceTest()
		err := service.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "12345"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		service, _, _ := setupAuthServiceTest()
		err := service.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "secret123", Role: "landlord"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestServiceImpl_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue a token pair", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		user := &types.User{Email: "a@example.com", Role: types.RoleSeller, Password: hashFor(t, "secret123")}
		mockRepo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(user, nil).Once()

		pair, err := service.Login(ctx, "a@example.com", "secret123")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)

		claims := &appMiddleware.Claims{}
		_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
			return appMiddleware.JwtSecretKey, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, types.RoleSeller, claims.Role)
		assert.Empty(t, claims.Type)
	})

	t.Run("wrong password", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		user := &types.User{Email: "a@example.com", Password: hashFor(t, "secret123")}
		mockRepo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(user, nil).Once()

		_, err := service.Login(ctx, "a@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user maps to invalid credentials", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		mockRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound).Once()

		_, err := service.Login(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestServiceImpl_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh token rotates the pair", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		user := &types.User{Email: "a@example.com", Role: types.RoleBuyer, Password: hashFor(t, "secret123")}
		mockRepo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(user, nil).Twice()

		pair, err := service.Login(ctx, "a@example.com", "secret123")
		require.NoError(t, err)

		rotated, err := service.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, rotated.AccessToken)
	})

	t.Run("access token is rejected as refresh", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		user := &types.User{Email: "a@example.com", Password: hashFor(t, "secret123")}
		mockRepo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(user, nil).Once()

		pair, err := service.Login(ctx, "a@example.com", "secret123")
		require.NoError(t, err)

		_, err = service.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		service, _, _ := setupAuthServiceTest()
		_, err := service.Refresh(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestServiceImpl_PasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("forgot password stores and mails a code", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest()
		user := &types.User{Email: "a@example.com"}
		mockRepo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(user, nil).Once()
		mockRepo.On("UpsertOTP", mock.Anything, "a@example.com", mock.MatchedBy(func(code string) bool {
			return len(code) == 6
		})).Return(nil).Once()
		mockMailer.On("SendOTP", mock.Anything, "a@example.com", mock.Anything).Return(nil).Once()

		require.NoError(t, service.ForgotPassword(ctx, "a@example.com"))
		mockRepo.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("unknown email is silently accepted", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest()
		mockRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound).Once()

		require.NoError(t, service.ForgotPassword(ctx, "ghost@example.com"))
		mockRepo.AssertNotCalled(t, "UpsertOTP", mock.Anything, mock.Anything, mock.Anything)
		mockMailer.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reset with valid code updates the hash and burns the code", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		otp := &types.OTP{Email: "a@example.com", Code: "123456"}
		mockRepo.On("FindOTP", mock.Anything, "a@example.com", "123456").Return(otp, nil).Once()
		mockRepo.On("UpdatePassword", mock.Anything, "a@example.com", mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) == nil
		})).Return(nil).Once()
		mockRepo.On("DeleteOTP", mock.Anything, "a@example.com").Return(nil).Once()

		require.NoError(t, service.ResetPassword(ctx, "a@example.com", "123456", "newsecret"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("reset with bad code", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		mockRepo.On("FindOTP", mock.Anything, "a@example.com", "000000").Return(nil, ErrOTPNotFound).Once()

		err := service.ResetPassword(ctx, "a@example.com", "000000", "newsecret")
		assert.ErrorIs(t, err, ErrOTPNotFound)
		mockRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServiceImpl_Profile(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored account", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		stored := &types.User{Name: "Asha", Email: "a@example.com", Role: types.RoleBuyer, City: "Pune"}
		mockRepo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(stored, nil).Once()

		user, err := service.Profile(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Asha", user.Name)
		assert.Equal(t, "Pune", user.City)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		mockRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound).Once()

		_, err := service.Profile(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
