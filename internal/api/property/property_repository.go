package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	database "github.com/havenai/go-estate-assistant/app/db"
	"github.com/havenai/go-estate-assistant/internal/types"
)

// ErrNotFound is returned when a listing id resolves to nothing.
var ErrNotFound = errors.New("property not found")

// AssistantFilter is the narrow query shape the search tool needs: exact
// case-insensitive action/city, exact bedrooms, optional price ceiling,
// always sorted ascending by price.
type AssistantFilter struct {
	Action   string
	City     string
	Bedrooms *int
	MaxPrice *float64
	Limit    int64
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the store contract for property listings.
type Repository interface {
	Create(ctx context.Context, p types.Property) (string, error)
	GetByID(ctx context.Context, id string) (*types.Property, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f types.PropertyFilter) ([]types.Property, error)
	FindRanked(ctx context.Context, f AssistantFilter) ([]types.Property, error)
	CityMarketStats(ctx context.Context, city string) (*types.CityMarketStats, error)
	CityOverview(ctx context.Context) ([]types.CityOverviewRow, error)
	PriceByBedrooms(ctx context.Context) ([]types.BedroomStatsRow, error)
	CheapestSegment(ctx context.Context, city string) (*types.CheapestSegment, error)
	Recommend(ctx context.Context, city string, maxPrice float64, bedrooms int) ([]types.Property, error)
}

type RepositoryImpl struct {
	logger     *slog.Logger
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger:     logger,
		collection: db.Collection(database.CollProperties),
	}
}

// exactInsensitive matches a whole string ignoring case, with user input
// escaped so it cannot inject regex syntax.
func exactInsensitive(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func (r *RepositoryImpl) Create(ctx context.Context, p types.Property) (string, error) {
	if p.Action == "" {
		p.Action = types.ActionBuy
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to insert property: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id string) (*types.Property, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid property id %q: %w", id, err)
	}
	var p types.Property
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch property: %w", err)
	}
	return &p, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, fmt.Errorf("invalid property id %q: %w", id, err)
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	if err != nil {
		return 0, fmt.Errorf("failed to update property: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid property id %q: %w", id, err)
	}
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return nil
}

// Search serves the public listing search with pagination and sorting.
func (r *RepositoryImpl) Search(ctx context.Context, f types.PropertyFilter) ([]types.Property, error) {
	filter := bson.M{}
	if f.City != "" {
		filter["city"] = exactInsensitive(f.City)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 5
	}
	sortField := f.SortBy
	if sortField == "" {
		sortField = "price"
	}
	order := 1
	if f.Order == "desc" {
		order = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	var results []types.Property
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return results, nil
}

// FindRanked serves the assistant search tool: exact-match filter, ascending
// price, bounded result set. The price-proximity re-rank of the fallback
// phase happens in the service, not here.
func (r *RepositoryImpl) FindRanked(ctx context.Context, f AssistantFilter) ([]types.Property, error) {
	filter := bson.M{}
	if f.Action != "" {
		filter["action"] = exactInsensitive(f.Action)
	}
	if f.City != "" {
		filter["city"] = exactInsensitive(f.City)
	}
	if f.Bedrooms != nil {
		filter["bedrooms"] = *f.Bedrooms
	}
	if f.MaxPrice != nil {
		filter["price"] = bson.M{"$lte": *f.MaxPrice}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "price", Value: 1}}).
		SetLimit(f.Limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	var results []types.Property
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return results, nil
}

func (r *RepositoryImpl) CityMarketStats(ctx context.Context, city string) (*types.CityMarketStats, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"city": exactInsensitive(city)}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           "$city",
			"avgPrice":      bson.M{"$avg": "$price"},
			"minPrice":      bson.M{"$min": "$price"},
			"maxPrice":      bson.M{"$max": "$price"},
			"totalListings": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate market stats: %w", err)
	}
	var rows []types.CityMarketStats
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode market stats: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *RepositoryImpl) CityOverview(ctx context.Context) ([]types.CityOverviewRow, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           "$city",
			"avgPrice":      bson.M{"$avg": "$price"},
			"totalListings": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate city overview: %w", err)
	}
	var rows []types.CityOverviewRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode city overview: %w", err)
	}
	return rows, nil
}

func (r *RepositoryImpl) PriceByBedrooms(ctx context.Context) ([]types.BedroomStatsRow, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      "$bedrooms",
			"avgPrice": bson.M{"$avg": "$price"},
			"minPrice": bson.M{"$min": "$price"},
			"maxPrice": bson.M{"$max": "$price"},
			"count":    bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bedroom stats: %w", err)
	}
	var rows []types.BedroomStatsRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode bedroom stats: %w", err)
	}
	return rows, nil
}

func (r *RepositoryImpl) CheapestSegment(ctx context.Context, city string) (*types.CheapestSegment, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"city": exactInsensitive(city)}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      "$bedrooms",
			"avgPrice": bson.M{"$avg": "$price"},
			"count":    bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
		bson.D{{Key: "$limit", Value: 1}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":      0,
			"bedrooms": "$_id",
			"avgPrice": 1,
			"count":    1,
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cheapest segment: %w", err)
	}
	var rows []types.CheapestSegment
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode cheapest segment: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *RepositoryImpl) Recommend(ctx context.Context, city string, maxPrice float64, bedrooms int) ([]types.Property, error) {
	filter := bson.M{
		"city":     exactInsensitive(city),
		"price":    bson.M{"$lte": maxPrice},
		"bedrooms": bedrooms,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "price", Value: 1}}).
		SetLimit(5)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	var results []types.Property
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	return results, nil
}
