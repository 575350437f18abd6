package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/havenai/go-estate-assistant/internal/types"
)

// MockResponder is a mock implementation of Responder
type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) GenerateWithHistory(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, history, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

// MockPropertySearcher is a mock implementation of PropertySearcher
type MockPropertySearcher struct {
	mock.Mock
}

func (m *MockPropertySearcher) SearchForAssistant(ctx context.Context, args types.PropertySearchArgs) (string, error) {
	called := m.Called(ctx, args)
	return called.String(0), called.Error(1)
}

// responderFunc adapts a function to the Responder interface.
type responderFunc func(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

func (f responderFunc) GenerateWithHistory(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f(ctx, history, config)
}

func setupChatServiceTest() (*ServiceImpl, *MockResponder, *MockPropertySearcher) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockAI := new(MockResponder)
	mockSearcher := new(MockPropertySearcher)
	service := NewService(mockAI, mockSearcher, 0.1, 30*time.Second, logger)
	return service, mockAI, mockSearcher
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func toolCallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
			}}},
		},
	}
}

func withTools(config *genai.GenerateContentConfig) bool {
	return config != nil && len(config.Tools) > 0
}

func withoutTools(config *genai.GenerateContentConfig) bool {
	return config != nil && len(config.Tools) == 0
}

func TestServiceImpl_HandleTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("plain turn parses intent and cleans the reply", func(t *testing.T) {
		service, mockAI, mockSearcher := setupChatServiceTest()
		reply := `What is your budget?
<analysis>{"category": "Buy", "location": "Pune", "budget": null, "bhk": null}</analysis>`
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.MatchedBy(withTools)).
			Return(textResponse(reply), nil).Once()

		result, err := service.HandleTurn(ctx, "user@example.com", "I want to buy in Pune")
		require.NoError(t, err)
		assert.Equal(t, "What is your budget?", result.Response)
		assert.Equal(t, types.CategoryBuy, result.Intent.Category)
		assert.Equal(t, "Pune", result.Intent.Location)
		assert.Empty(t, result.Properties)
		mockSearcher.AssertNotCalled(t, "SearchForAssistant", mock.Anything, mock.Anything)
		mockAI.AssertExpectations(t)
	})

	t.Run("tool call executes the search and asks again", func(t *testing.T) {
		service, mockAI, mockSearcher := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.MatchedBy(withTools)).
			Return(toolCallResponse(searchToolName, map[string]any{
				"action": "Buy", "location": "Pune", "bhk": float64(2), "max_price": float64(5000000),
			}), nil).Once()
		mockSearcher.On("SearchForAssistant", mock.Anything, mock.MatchedBy(func(args types.PropertySearchArgs) bool {
			return args.Action == "Buy" && args.Location == "Pune"
		})).Return(`[{"id": "a1", "title": "Flat A", "price": 4000000}]`, nil).Once()
		final := `Here is a great option.
<analysis>{"category": "Buy", "location": "Pune", "budget": 5000000, "bhk": 2}</analysis>
[{"id": "a1", "title": "Flat A", "price": 4000000, "city": "Pune", "bedrooms": 2, "action": "Buy"}]`
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.MatchedBy(withoutTools)).
			Return(textResponse(final), nil).Once()

		result, err := service.HandleTurn(ctx, "user@example.com", "2BHK in Pune under 50L")
		require.NoError(t, err)
		assert.Equal(t, "Here is a great option.", result.Response)
		require.Len(t, result.Properties, 1)
		assert.Equal(t, "Flat A", result.Properties[0].Title)
		mockAI.AssertExpectations(t)
		mockSearcher.AssertExpectations(t)
	})

	t.Run("rate limit degrades to a friendly reply", func(t *testing.T) {
		service, mockAI, _ := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("googleapi: Error 429: quota limit reached")).Once()

		result, err := service.HandleTurn(ctx, "user@example.com", "hello")
		require.NoError(t, err)
		assert.Equal(t, rateLimitReply, result.Response)
		assert.Equal(t, types.CategoryGeneral, result.Intent.Category)
		mockAI.AssertExpectations(t)
	})

	t.Run("deadline exceeded degrades to a friendly reply", func(t *testing.T) {
		service, mockAI, _ := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded).Once()

		result, err := service.HandleTurn(ctx, "user@example.com", "hello")
		require.NoError(t, err)
		assert.Equal(t, rateLimitReply, result.Response)
		assert.Equal(t, types.CategoryGeneral, result.Intent.Category)
		mockAI.AssertExpectations(t)
	})

	t.Run("turn timeout expiry degrades to a friendly reply", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		slow := responderFunc(func(ctx context.Context, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		service := NewService(slow, new(MockPropertySearcher), 0.1, time.Millisecond, logger)

		result, err := service.HandleTurn(ctx, "user@example.com", "hello")
		require.NoError(t, err)
		assert.Equal(t, rateLimitReply, result.Response)
	})

	t.Run("other model errors fail the turn", func(t *testing.T) {
		service, mockAI, _ := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset")).Once()

		_, err := service.HandleTurn(ctx, "user@example.com", "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProcessingFailed)
	})

	t.Run("search tool failure fails the turn", func(t *testing.T) {
		service, mockAI, mockSearcher := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.MatchedBy(withTools)).
			Return(toolCallResponse(searchToolName, map[string]any{"action": "Buy"}), nil).Once()
		mockSearcher.On("SearchForAssistant", mock.Anything, mock.Anything).
			Return("", errors.New("db down")).Once()

		_, err := service.HandleTurn(ctx, "user@example.com", "find me a flat")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProcessingFailed)
	})

	t.Run("empty reply substitutes the fallback", func(t *testing.T) {
		service, mockAI, _ := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(`<analysis>{"category": "General"}</analysis>`), nil).Once()

		result, err := service.HandleTurn(ctx, "user@example.com", "...")
		require.NoError(t, err)
		assert.Equal(t, fallbackReply, result.Response)
	})

	t.Run("transcripts are isolated per user", func(t *testing.T) {
		service, mockAI, _ := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(`hi there <analysis>{"category": "General"}</analysis>`), nil).Times(3)

		_, err := service.HandleTurn(ctx, "a@example.com", "first")
		require.NoError(t, err)
		_, err = service.HandleTurn(ctx, "a@example.com", "second")
		require.NoError(t, err)
		_, err = service.HandleTurn(ctx, "b@example.com", "only one")
		require.NoError(t, err)

		assert.Len(t, service.History("a@example.com"), 4)
		assert.Len(t, service.History("b@example.com"), 2)
		assert.Empty(t, service.History("nobody@example.com"))
	})

	t.Run("reset clears a transcript", func(t *testing.T) {
		service, mockAI, _ := setupChatServiceTest()
		mockAI.On("GenerateWithHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(`ok <analysis>{"category": "General"}</analysis>`), nil).Once()

		_, err := service.HandleTurn(ctx, "a@example.com", "hello")
		require.NoError(t, err)
		service.Reset("a@example.com")
		assert.Empty(t, service.History("a@example.com"))
	})
}
