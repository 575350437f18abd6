package property

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/havenai/go-estate-assistant/internal/types"
)

// NoResultsMessage is the textual sentinel handed to the model when the
// search tool finds nothing. The model only accepts text tool output, so an
// empty list would read as silence.
const NoResultsMessage = "No properties found matching those criteria."

const (
	maxAssistantResults    = 2
	fallbackCandidateLimit = 20
	statsCacheTTL          = 5 * time.Minute
)

// ErrForbidden is returned when a caller touches a listing they do not own.
var ErrForbidden = errors.New("not the owner of this property")

// MarketSnapshot bundles the per-city aggregates served by /market/{city}.
type MarketSnapshot struct {
	Stats           *types.CityMarketStats `json:"stats"`
	CheapestSegment *types.CheapestSegment `json:"cheapestSegment,omitempty"`
}

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for property listings,
// including the assistant-facing search tool.
type Service interface {
	Create(ctx context.Context, p types.Property) (string, error)
	GetByID(ctx context.Context, id string) (*types.Property, error)
	Update(ctx context.Context, id, requesterEmail string, updates map[string]interface{}) error
	Delete(ctx context.Context, id, requesterEmail string) error
	Search(ctx context.Context, f types.PropertyFilter) ([]types.Property, error)

	// SearchForAssistant runs one search_properties tool call and returns
	// the textual tool output for the model.
	SearchForAssistant(ctx context.Context, args types.PropertySearchArgs) (string, error)

	MarketSnapshot(ctx context.Context, city string) (*MarketSnapshot, error)
	CheapestSegment(ctx context.Context, city string) (*types.CheapestSegment, error)
	CityOverview(ctx context.Context) ([]types.CityOverviewRow, error)
	PriceByBedrooms(ctx context.Context) ([]types.BedroomStatsRow, error)
	Recommend(ctx context.Context, city string, maxPrice float64, bedrooms int) ([]types.Property, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  *cache.Cache
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(statsCacheTTL, 10*time.Minute),
	}
}

func (s *ServiceImpl) Create(ctx context.Context, p types.Property) (string, error) {
	if p.Title == "" {
		return "", fmt.Errorf("property title is required")
	}
	if p.City == "" {
		return "", fmt.Errorf("property city is required")
	}
	if p.Price < 0 {
		return "", fmt.Errorf("property price must be non-negative")
	}
	if p.Bedrooms < 0 || p.Bathrooms < 0 {
		return "", fmt.Errorf("bedroom and bathroom counts must be non-negative")
	}
	switch p.Action {
	case "", types.ActionBuy:
		p.Action = types.ActionBuy
	case types.ActionRent:
	default:
		return "", fmt.Errorf("action must be %q or %q", types.ActionBuy, types.ActionRent)
	}
	return s.repo.Create(ctx, p)
}

func (s *ServiceImpl) GetByID(ctx context.Context, id string) (*types.Property, error) {
	return s.repo.GetByID(ctx, id)
}

// updatableFields is the whitelist of listing fields an owner may change.
var updatableFields = map[string]bool{
	"title": true, "price": true, "city": true, "bedrooms": true,
	"bathrooms": true, "area_sqft": true, "action": true,
}

func (s *ServiceImpl) Update(ctx context.Context, id, requesterEmail string, updates map[string]interface{}) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.CreatedBy != requesterEmail {
		return ErrForbidden
	}

	filtered := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if updatableFields[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return fmt.Errorf("no updatable fields in request")
	}

	if _, err := s.repo.Update(ctx, id, filtered); err != nil {
		return err
	}
	return nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id, requesterEmail string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.CreatedBy != requesterEmail {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImpl) Search(ctx context.Context, f types.PropertyFilter) ([]types.Property, error) {
	return s.repo.Search(ctx, f)
}

// SearchForAssistant implements the two-phase tool search. A direct id
// lookup short-circuits the filter; a strict budget-capped query runs first;
// when it is empty and a budget was given, candidates are re-ranked by
// absolute distance from the budget.
func (s *ServiceImpl) SearchForAssistant(ctx context.Context, args types.PropertySearchArgs) (string, error) {
	ctx, span := otel.Tracer("PropertyService").Start(ctx, "SearchForAssistant", trace.WithAttributes(
		attribute.String("action", args.Action),
		attribute.String("location", args.Location),
	))
	defer span.End()

	if row, ok := s.lookupByID(ctx, args.PropertyID); ok {
		return marshalRows([]types.PropertyResultRow{row})
	}

	filter := AssistantFilter{
		Action: strings.TrimSpace(args.Action),
		City:   strings.TrimSpace(args.Location),
		Limit:  maxAssistantResults,
	}
	// Malformed numeric arguments drop the clause instead of failing the search.
	if bhk, ok := asInt(args.BHK); ok {
		filter.Bedrooms = &bhk
	}
	maxPrice, hasBudget := asFloat(args.MaxPrice)
	if hasBudget {
		filter.MaxPrice = &maxPrice
	}

	matches, err := s.repo.FindRanked(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Strict search failed")
		return "", err
	}

	// Fallback phase: no strict match under the ceiling, widen and re-rank
	// by proximity to the budget. Only a zero-row strict phase triggers this.
	if len(matches) == 0 && hasBudget {
		wide := filter
		wide.MaxPrice = nil
		wide.Limit = fallbackCandidateLimit
		candidates, err := s.repo.FindRanked(ctx, wide)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Fallback search failed")
			return "", err
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return math.Abs(candidates[i].Price-maxPrice) < math.Abs(candidates[j].Price-maxPrice)
		})
		if len(candidates) > maxAssistantResults {
			candidates = candidates[:maxAssistantResults]
		}
		matches = candidates
		span.SetAttributes(attribute.Bool("fallback", true))
	}

	if len(matches) == 0 {
		span.SetStatus(codes.Ok, "No matches")
		return NoResultsMessage, nil
	}

	rows := make([]types.PropertyResultRow, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, m.ResultRow())
	}
	span.SetAttributes(attribute.Int("results", len(rows)))
	span.SetStatus(codes.Ok, "Search completed")
	return marshalRows(rows)
}

// lookupByID resolves a direct listing reference. The model sometimes
// prefixes ids with a marker character ('#'); anything that is not a valid
// 24-hex object id falls through to the filter search.
func (s *ServiceImpl) lookupByID(ctx context.Context, id string) (types.PropertyResultRow, bool) {
	id = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(id), "#"))
	if id == "" {
		return types.PropertyResultRow{}, false
	}
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.PropertyResultRow{}, false
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.PropertyResultRow{}, false
	}
	return p.ResultRow(), true
}

func marshalRows(rows []types.PropertyResultRow) (string, error) {
	out, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool output: %w", err)
	}
	return string(out), nil
}

// MarketSnapshot fans the two per-city aggregations out concurrently. A
// missing cheapest segment is not an error; a city with no listings is.
func (s *ServiceImpl) MarketSnapshot(ctx context.Context, city string) (*MarketSnapshot, error) {
	var snapshot MarketSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.repo.CityMarketStats(gctx, city)
		if err != nil {
			return err
		}
		snapshot.Stats = stats
		return nil
	})
	g.Go(func() error {
		segment, err := s.repo.CheapestSegment(gctx, city)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		snapshot.CheapestSegment = segment
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *ServiceImpl) CheapestSegment(ctx context.Context, city string) (*types.CheapestSegment, error) {
	return s.repo.CheapestSegment(ctx, city)
}

func (s *ServiceImpl) CityOverview(ctx context.Context) ([]types.CityOverviewRow, error) {
	if cached, found := s.cache.Get("city_overview"); found {
		return cached.([]types.CityOverviewRow), nil
	}
	rows, err := s.repo.CityOverview(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set("city_overview", rows, cache.DefaultExpiration)
	return rows, nil
}

func (s *ServiceImpl) PriceByBedrooms(ctx context.Context) ([]types.BedroomStatsRow, error) {
	if cached, found := s.cache.Get("bedroom_stats"); found {
		return cached.([]types.BedroomStatsRow), nil
	}
	rows, err := s.repo.PriceByBedrooms(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set("bedroom_stats", rows, cache.DefaultExpiration)
	return rows, nil
}

func (s *ServiceImpl) Recommend(ctx context.Context, city string, maxPrice float64, bedrooms int) ([]types.Property, error) {
	return s.repo.Recommend(ctx, city, maxPrice, bedrooms)
}

// asInt coerces the loosely typed tool arguments the model produces.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
