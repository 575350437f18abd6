package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/havenai/go-estate-assistant/app/middleware"
	"github.com/havenai/go-estate-assistant/internal/api"
	"github.com/havenai/go-estate-assistant/internal/types"
)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	VerifyOTP(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	Profile(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	authService Service
	logger      *slog.Logger
}

func NewHandlerImpl(authService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{authService: authService, logger: logger}
}

func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register")
	defer span.End()

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.Register(ctx, req); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrEmailTaken):
			api.ErrorResponse(w, r, http.StatusConflict, "Email already registered")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "Registration failed")
			h.logger.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{"message": "User registered successfully"})
}

func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login")
	defer span.End()

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Login failed")
		h.logger.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pair)
}

func (h *HandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Refresh")
	defer span.End()

	var req RefreshRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "Token refresh failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pair)
}

func (h *HandlerImpl) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ForgotPassword")
	defer span.End()

	var req ForgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.ForgotPassword(ctx, req.Email); err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "Forgot password failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"message": "If the email is registered, a reset code has been sent",
	})
}

func (h *HandlerImpl) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "VerifyOTP")
	defer span.End()

	var req VerifyOTPRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.VerifyOTP(ctx, req.Email, req.OTP); err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired code")
			return
		}
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"message": "Code verified"})
}

func (h *HandlerImpl) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ResetPassword")
	defer span.End()

	var req ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.ResetPassword(ctx, req.Email, req.OTP, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrOTPNotFound):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired code")
		case errors.Is(err, ErrUserNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			span.RecordError(err)
			h.logger.ErrorContext(ctx, "Password reset failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"message": "Password reset successfully"})
}

// Profile serves the account record for the email in the URL. Users can only
// read their own profile unless they are admins.
func (h *HandlerImpl) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Profile")
	defer span.End()

	requester, ok := appMiddleware.UserEmailFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	email := chi.URLParam(r, "email")
	role, _ := appMiddleware.UserRoleFromContext(ctx)
	if requester != email && role != types.RoleAdmin {
		api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions")
		return
	}

	user, err := h.authService.Profile(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "Profile lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"user": user})
}
