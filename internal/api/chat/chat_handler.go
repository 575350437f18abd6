package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/havenai/go-estate-assistant/app/middleware"
	"github.com/havenai/go-estate-assistant/internal/api"
	"github.com/havenai/go-estate-assistant/internal/api/inquiry"
	"github.com/havenai/go-estate-assistant/internal/types"
)

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response   string                    `json:"response"`
	Properties []types.PropertyResultRow `json:"properties"`
}

type Handler interface {
	Chat(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Reset(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

// HandlerImpl glues the chat turn to inquiry routing. The inquiry write
// happens after the turn completes, and its failure fails the request:
// a reply the lead log never saw must not reach the user as a success.
type HandlerImpl struct {
	chatService    Service
	inquiryService inquiry.Service
	logger         *slog.Logger
}

func NewHandlerImpl(chatService Service, inquiryService inquiry.Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		chatService:    chatService,
		inquiryService: inquiryService,
		logger:         logger,
	}
}

func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "Chat")
	defer span.End()

	email, ok := appMiddleware.UserEmailFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.chatService.HandleTurn(ctx, email, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Chat turn failed")
		h.logger.ErrorContext(ctx, "Chat turn failed", slog.String("user", email), slog.Any("error", err))
		if errors.Is(err, ErrProcessingFailed) {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to process your message")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := h.inquiryService.Route(ctx, email, req.Message, result.Intent); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Inquiry routing failed")
		h.logger.ErrorContext(ctx, "Inquiry routing failed", slog.String("user", email), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to record inquiry")
		return
	}

	properties := result.Properties
	if properties == nil {
		properties = []types.PropertyResultRow{}
	}
	span.SetStatus(codes.Ok, "Chat turn served")
	api.WriteJSONResponse(w, r, http.StatusOK, ChatResponse{
		Response:   result.Response,
		Properties: properties,
	})
}

func (h *HandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "History")
	defer span.End()

	email, ok := appMiddleware.UserEmailFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	turns := h.chatService.History(email)
	if turns == nil {
		turns = []types.ConversationTurn{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"history": turns})
}

func (h *HandlerImpl) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "Reset")
	defer span.End()

	email, ok := appMiddleware.UserEmailFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.chatService.Reset(email)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"message": "Conversation cleared"})
}
