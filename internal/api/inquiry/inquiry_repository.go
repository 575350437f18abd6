package inquiry

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	database "github.com/havenai/go-estate-assistant/app/db"
	"github.com/havenai/go-estate-assistant/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository appends inquiry records. Records are never updated or deleted
// from this subsystem.
type Repository interface {
	Insert(ctx context.Context, inq types.Inquiry) (string, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     *mongo.Database
}

func NewRepository(db *mongo.Database, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

// collectionFor fans inquiries out by category. Unrecognized categories land
// in the generic log alongside General.
func collectionFor(category string) string {
	switch category {
	case types.CategoryBuy:
		return database.CollBuyInquiries
	case types.CategoryRent:
		return database.CollRentInquiries
	case types.CategorySell:
		return database.CollSellInquiries
	default:
		return database.CollInquiryLogs
	}
}

func (r *RepositoryImpl) Insert(ctx context.Context, inq types.Inquiry) (string, error) {
	collName := collectionFor(inq.Category)
	res, err := r.db.Collection(collName).InsertOne(ctx, inq)
	if err != nil {
		return "", fmt.Errorf("failed to insert inquiry into %s: %w", collName, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}

	r.logger.InfoContext(ctx, "Logged inquiry",
		slog.String("collection", collName),
		slog.String("email", inq.Email),
		slog.String("category", inq.Category),
	)
	return oid.Hex(), nil
}
