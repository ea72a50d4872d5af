package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

const collectionCustomerEvents = "customer_events"

// EventRepository implements ports.AuditRecorder using MongoDB.
type EventRepository struct {
	col *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection(collectionCustomerEvents)}
}

var _ ports.AuditRecorder = (*EventRepository)(nil)

// InsertEvent persists a customer mutation to the customer_events audit
// collection. Replays of the same event id are ignored.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.CustomerEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	balance, err := toDecimal128(event.Balance)
	if err != nil {
		return err
	}
	doc := bson.M{
		"_id":          event.ID,
		"customer_id":  event.CustomerID,
		"action":       string(event.Action),
		"actor":        event.Actor,
		"balance":      balance,
		"timestamp":    event.Timestamp.UTC(),
		"processed_at": time.Now().UTC(),
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert customer event: %w", err)
	}
	return nil
}

// EnsureIndexes indexes events by customer for history lookups.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}
