package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Intent categories. Anything the analysis tag cannot be snapped to
// resolves to General.
const (
	CategoryBuy     = "Buy"
	CategoryRent    = "Rent"
	CategorySell    = "Sell"
	CategoryGeneral = "General"
)

// Intent is the structured extraction of one chat turn: what the user wants
// to do, where, at what budget and size. Budget stays raw here ("50L", 5000000,
// nil); it is normalized to a number only when the inquiry is persisted.
type Intent struct {
	Category string `json:"category"`
	Location string `json:"location,omitempty"`
	Budget   any    `json:"budget,omitempty"`
	BHK      *int   `json:"bhk,omitempty"`
}

// DefaultIntent is returned whenever the analysis tag is missing or
// unparseable.
func DefaultIntent() Intent {
	return Intent{Category: CategoryGeneral}
}

// Inquiry is the durable record of one chat turn's extracted intent, written
// to a category-specific collection. Never mutated or deleted here.
type Inquiry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Message   string             `bson:"message" json:"message"`
	Category  string             `bson:"category" json:"category"`
	Location  string             `bson:"location,omitempty" json:"location,omitempty"`
	Budget    float64            `bson:"budget" json:"budget"`
	BHK       *int               `bson:"bhk,omitempty" json:"bhk,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// ConversationTurn is one ephemeral transcript entry. Transcripts live in
// process memory only; they do not survive a restart.
type ConversationTurn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
