package inquiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/havenai/go-estate-assistant/app/observability/metrics"
	"github.com/havenai/go-estate-assistant/internal/types"
)

// unknownCityPlaceholder fills in when a Sell intent carries no usable
// location; the synthesized listing still needs a city.
const unknownCityPlaceholder = "Unknown City"

// PropertyCreator is the slice of the property service the router needs for
// Sell-intent listing synthesis.
type PropertyCreator interface {
	Create(ctx context.Context, p types.Property) (string, error)
}

var _ Service = (*ServiceImpl)(nil)

// Service routes one extracted intent into its category store and, for Sell
// intents, opportunistically lists the property for buyers.
type Service interface {
	Route(ctx context.Context, userEmail, message string, intent types.Intent) (string, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repo       Repository
	properties PropertyCreator
}

func NewService(repo Repository, properties PropertyCreator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		properties: properties,
	}
}

// Route persists the inquiry (hard failure) and then attempts listing
// synthesis for Sell intents (best-effort: logged and swallowed, the inquiry
// is already committed). Deliberately not idempotent; identical calls append
// identical records.
func (s *ServiceImpl) Route(ctx context.Context, userEmail, message string, intent types.Intent) (string, error) {
	ctx, span := otel.Tracer("InquiryService").Start(ctx, "Route")
	defer span.End()
	span.SetAttributes(attribute.String("category", intent.Category))

	budget := NormalizeBudget(intent.Budget)

	location := intent.Location
	if isNullMarker(location) {
		location = ""
	}

	inq := types.Inquiry{
		Email:     userEmail,
		Message:   message,
		Category:  intent.Category,
		Location:  location,
		Budget:    budget,
		BHK:       intent.BHK,
		Timestamp: time.Now().UTC(),
	}

	id, err := s.repo.Insert(ctx, inq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Inquiry insert failed")
		return "", fmt.Errorf("failed to log inquiry: %w", err)
	}
	if m := metrics.Get(); m != nil {
		m.InquiriesTotal.Add(ctx, 1)
	}

	if intent.Category == types.CategorySell {
		s.synthesizeListing(ctx, userEmail, location, budget, intent.BHK)
	}

	span.SetStatus(codes.Ok, "Inquiry routed")
	return id, nil
}

// synthesizeListing lists a seller's property for buyers. The inquiry log is
// the source of truth; a failure here must never fail the chat turn.
func (s *ServiceImpl) synthesizeListing(ctx context.Context, userEmail, location string, budget float64, bhkPtr *int) {
	bhk := 0
	if bhkPtr != nil {
		bhk = *bhkPtr
	}
	if location == "" {
		location = unknownCityPlaceholder
	}

	listing := types.Property{
		Title:    fmt.Sprintf("%dBHK for Sale in %s", bhk, location),
		Price:    budget,
		City:     location,
		Bedrooms: bhk,
		ListedBy: userEmail,
		// Listed as Buy so the property surfaces to buyers browsing for purchase.
		Action:    types.ActionBuy,
		CreatedBy: userEmail,
	}

	if _, err := s.properties.Create(ctx, listing); err != nil {
		if m := metrics.Get(); m != nil {
			m.ListingSynthesisFailures.Add(ctx, 1)
		}
		s.logger.ErrorContext(ctx, "Failed to create automatic property listing",
			slog.Any("error", err),
			slog.String("email", userEmail),
			slog.String("city", location),
		)
		return
	}
	s.logger.InfoContext(ctx, "Automatically created property listing",
		slog.String("email", userEmail),
		slog.String("city", location),
	)
}

func isNullMarker(s string) bool {
	return s == "" || s == "null" || s == "None"
}
