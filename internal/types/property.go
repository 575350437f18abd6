package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Property actions. Sell inquiries never produce an action of their own:
// synthesized listings are stored as Buy so they surface to buyers.
const (
	ActionBuy  = "Buy"
	ActionRent = "Rent"
)

// Property is a single listing as stored in the properties collection.
type Property struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Price     float64            `bson:"price" json:"price"`
	City      string             `bson:"city" json:"city"`
	Bedrooms  int                `bson:"bedrooms" json:"bedrooms"`
	Bathrooms int                `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	AreaSqft  *float64           `bson:"area_sqft,omitempty" json:"area_sqft,omitempty"`
	ListedBy  string             `bson:"listed_by,omitempty" json:"listed_by,omitempty"`
	Action    string             `bson:"action" json:"action"`
	CreatedBy string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// PropertyResultRow is the shrunk projection of a Property handed to the
// assistant (and echoed back to clients). City is duplicated under the
// "location" key because the prompt vocabulary uses "location" while the
// store schema uses "city".
type PropertyResultRow struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	City     string  `json:"city"`
	Location string  `json:"location"`
	Bedrooms int     `json:"bedrooms"`
	Action   string  `json:"action"`
}

// ResultRow projects a Property into its assistant-facing shape.
func (p Property) ResultRow() PropertyResultRow {
	return PropertyResultRow{
		ID:       p.ID.Hex(),
		Title:    p.Title,
		Price:    p.Price,
		City:     p.City,
		Location: p.City,
		Bedrooms: p.Bedrooms,
		Action:   p.Action,
	}
}

// PropertySearchArgs carries the raw arguments of one search_properties tool
// call. BHK and MaxPrice stay untyped on purpose: the model occasionally
// emits strings ("two", "50L") and a malformed value must drop the clause,
// not fail the search.
type PropertySearchArgs struct {
	Action     string `json:"action,omitempty"`
	Location   string `json:"location,omitempty"`
	BHK        any    `json:"bhk,omitempty"`
	MaxPrice   any    `json:"max_price,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
}

// PropertyFilter is the generic listing-search filter used by the public
// /properties/search endpoint.
type PropertyFilter struct {
	City     string
	MinPrice *float64
	MaxPrice *float64
	Page     int64
	Limit    int64
	SortBy   string
	Order    string
}

// CityMarketStats aggregates listing prices for one city.
type CityMarketStats struct {
	City          string  `bson:"_id" json:"city"`
	AvgPrice      float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice      float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice      float64 `bson:"maxPrice" json:"maxPrice"`
	TotalListings int64   `bson:"totalListings" json:"totalListings"`
}

// CityOverviewRow is one row of the cross-city price overview.
type CityOverviewRow struct {
	City          string  `bson:"_id" json:"city"`
	AvgPrice      float64 `bson:"avgPrice" json:"avgPrice"`
	TotalListings int64   `bson:"totalListings" json:"totalListings"`
}

// BedroomStatsRow aggregates prices by bedroom count across all cities.
type BedroomStatsRow struct {
	Bedrooms int     `bson:"_id" json:"bedrooms"`
	AvgPrice float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice float64 `bson:"maxPrice" json:"maxPrice"`
	Count    int64   `bson:"count" json:"count"`
}

// CheapestSegment is the lowest-average-price bedroom segment of a city.
type CheapestSegment struct {
	Bedrooms int     `bson:"bedrooms" json:"bedrooms"`
	AvgPrice float64 `bson:"avgPrice" json:"avgPrice"`
	Count    int64   `bson:"count" json:"count"`
}
