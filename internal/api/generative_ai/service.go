package generativeAI

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// AIClient wraps the Gemini client with the single entry point the chat
// orchestrator needs: generate a response for a full conversation history,
// optionally with tool bindings.
type AIClient struct {
	client *genai.Client
	model  string
}

func NewAIClient(ctx context.Context, model string) (*AIClient, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewAIClient")
	defer span.End()

	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		err := fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, err
	}

	span.SetStatus(codes.Ok, "AI client created successfully")
	return &AIClient{
		client: client,
		model:  model,
	}, nil
}

// GenerateWithHistory sends the full transcript to the model and returns the
// raw response. The caller owns the transcript; nothing is appended here.
func (ai *AIClient) GenerateWithHistory(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateWithHistory", trace.WithAttributes(
		attribute.Int("history.length", len(history)),
		attribute.String("model", ai.model),
	))
	defer span.End()

	result, err := ai.client.Models.GenerateContent(ctx, ai.model, history, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	span.SetAttributes(attribute.Int("response.length", len(result.Text())))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return result, nil
}

// SearchPropertiesTool declares the property search function the model may
// call during the first generation pass.
func SearchPropertiesTool() *genai.Tool {
	searchFunc := &genai.FunctionDeclaration{
		Name: "search_properties",
		Description: "Search for properties based on user requirements. " +
			"action: 'Buy' or 'Rent'. location: City name. bhk: Number of bedrooms. " +
			"max_price: Maximum price/budget. property_id: direct listing id lookup.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"action":      {Type: genai.TypeString, Description: "'Buy' or 'Rent'"},
				"location":    {Type: genai.TypeString, Description: "City name"},
				"bhk":         {Type: genai.TypeInteger, Description: "Number of bedrooms"},
				"max_price":   {Type: genai.TypeNumber, Description: "Maximum price or budget"},
				"property_id": {Type: genai.TypeString, Description: "Listing id for a direct lookup"},
			},
		},
	}
	return &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{searchFunc}}
}
