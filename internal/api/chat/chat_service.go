package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/havenai/go-estate-assistant/app/observability/metrics"
	generativeAI "github.com/havenai/go-estate-assistant/internal/api/generative_ai"
	"github.com/havenai/go-estate-assistant/internal/types"
)

const searchToolName = "search_properties"

// ErrProcessingFailed wraps unrecoverable failures inside a chat turn.
var ErrProcessingFailed = errors.New("chat processing failed")

// Responder is the slice of the AI client the orchestrator needs.
type Responder interface {
	GenerateWithHistory(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// PropertySearcher executes the search tool on behalf of the model.
type PropertySearcher interface {
	SearchForAssistant(ctx context.Context, args types.PropertySearchArgs) (string, error)
}

// TurnResult is everything one completed chat turn produces.
type TurnResult struct {
	Response   string
	Intent     types.Intent
	Properties []types.PropertyResultRow
}

type Service interface {
	HandleTurn(ctx context.Context, userEmail, message string) (*TurnResult, error)
	History(userEmail string) []types.ConversationTurn
	Reset(userEmail string)
}

var _ Service = (*ServiceImpl)(nil)

// ServiceImpl orchestrates a chat turn: send the transcript to the model
// with the search tool bound, execute at most one search call, feed the
// tool output back for a final answer, then parse intent and properties
// out of the reply. It never touches inquiry storage; routing the parsed
// intent is the handler's job so a storage failure can fail the request.
type ServiceImpl struct {
	logger      *slog.Logger
	ai          Responder
	properties  PropertySearcher
	sessions    *SessionStore
	temperature float32
	turnTimeout time.Duration
}

func NewService(ai Responder, properties PropertySearcher, temperature float32, turnTimeout time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		ai:          ai,
		properties:  properties,
		sessions:    NewSessionStore(),
		temperature: temperature,
		turnTimeout: turnTimeout,
	}
}

func (s *ServiceImpl) HandleTurn(ctx context.Context, userEmail, message string) (*TurnResult, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "HandleTurn", trace.WithAttributes(
		attribute.String("chat.user", userEmail),
	))
	defer span.End()

	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	sess := s.sessions.get(userEmail)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if m := metrics.Get(); m != nil {
		m.ChatTurnsTotal.Add(ctx, 1)
	}

	sess.history = append(sess.history, genai.NewContentFromText(message, genai.RoleUser))

	resp, err := s.generate(ctx, sess.history, true)
	if err != nil {
		return s.classifyFailure(ctx, span, err)
	}

	if call := searchCall(resp); call != nil {
		resp, err = s.runSearchTool(ctx, sess, resp, call)
		if err != nil {
			return s.classifyFailure(ctx, span, err)
		}
	}

	raw := resp.Text()
	sess.history = append(sess.history, genai.NewContentFromText(raw, genai.RoleModel))

	intent, cleaned, properties := ExtractAnalysis(raw)
	if cleaned == "" {
		cleaned = fallbackReply
	}

	now := time.Now()
	sess.turns = append(sess.turns,
		types.ConversationTurn{Role: "user", Message: message, Timestamp: now},
		types.ConversationTurn{Role: "assistant", Message: cleaned, Timestamp: now},
	)

	span.SetAttributes(
		attribute.String("chat.category", intent.Category),
		attribute.Int("chat.properties", len(properties)),
	)
	span.SetStatus(codes.Ok, "Turn completed")
	return &TurnResult{Response: cleaned, Intent: intent, Properties: properties}, nil
}

func (s *ServiceImpl) History(userEmail string) []types.ConversationTurn {
	return s.sessions.History(userEmail)
}

func (s *ServiceImpl) Reset(userEmail string) {
	s.sessions.Reset(userEmail)
}

// runSearchTool executes the model's search call and asks for a final
// answer with the tool output appended to the transcript. The second
// generation runs without tool bindings so the model cannot loop.
func (s *ServiceImpl) runSearchTool(ctx context.Context, sess *session, resp *genai.GenerateContentResponse, call *genai.FunctionCall) (*genai.GenerateContentResponse, error) {
	if m := metrics.Get(); m != nil {
		m.ToolCallsTotal.Add(ctx, 1)
	}

	args := decodeSearchArgs(call.Args)
	s.logger.DebugContext(ctx, "Executing property search tool",
		slog.String("action", args.Action), slog.String("location", args.Location))

	toolOut, err := s.properties.SearchForAssistant(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: search tool: %w", ErrProcessingFailed, err)
	}

	sess.history = append(sess.history, modelContent(resp, call))
	sess.history = append(sess.history, genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromFunctionResponse(call.Name, map[string]any{"output": toolOut}),
	}, genai.RoleUser))

	return s.generate(ctx, sess.history, false)
}

func (s *ServiceImpl) generate(ctx context.Context, history []*genai.Content, withTools bool) (*genai.GenerateContentResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](s.temperature),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	if withTools {
		config.Tools = []*genai.Tool{generativeAI.SearchPropertiesTool()}
	}

	start := time.Now()
	resp, err := s.ai.GenerateWithHistory(ctx, history, config)
	if m := metrics.Get(); m != nil {
		m.LLMRequestDuration.Record(ctx, time.Since(start).Seconds())
	}
	return resp, err
}

// classifyFailure turns quota and timeout errors into a friendly in-band
// reply; everything else surfaces as a processing failure.
func (s *ServiceImpl) classifyFailure(ctx context.Context, span trace.Span, err error) (*TurnResult, error) {
	if isRateLimited(err) {
		s.logger.WarnContext(ctx, "Model rate limited, returning retry message", slog.Any("error", err))
		span.SetStatus(codes.Ok, "Rate limited, degraded reply")
		return &TurnResult{Response: rateLimitReply, Intent: types.DefaultIntent()}, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "Turn failed")
	if errors.Is(err, ErrProcessingFailed) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
}

func isRateLimited(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate_limit", "limit reached", "429"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// searchCall picks the first search_properties call out of the response.
// Other function names are ignored; only one tool is ever declared.
func searchCall(resp *genai.GenerateContentResponse) *genai.FunctionCall {
	for _, call := range resp.FunctionCalls() {
		if call.Name == searchToolName {
			return call
		}
	}
	return nil
}

// modelContent returns the model turn to record ahead of the tool
// response, reconstructing one from the call when the candidate content
// is absent.
func modelContent(resp *genai.GenerateContentResponse, call *genai.FunctionCall) *genai.Content {
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		return resp.Candidates[0].Content
	}
	return genai.NewContentFromParts([]*genai.Part{{FunctionCall: call}}, genai.RoleModel)
}

func decodeSearchArgs(args map[string]any) types.PropertySearchArgs {
	out := types.PropertySearchArgs{}
	if v, ok := args["action"].(string); ok {
		out.Action = v
	}
	if v, ok := args["location"].(string); ok {
		out.Location = v
	}
	if v, ok := args["property_id"].(string); ok {
		out.PropertyID = v
	}
	out.BHK = args["bhk"]
	out.MaxPrice = args["max_price"]
	return out
}
