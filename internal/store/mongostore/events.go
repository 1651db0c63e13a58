package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/store"
)

// EventLog relies on the _id uniqueness of webhook_events: the first insert
// wins and every later delivery of the same id hits a duplicate key.
type EventLog struct {
	col *mongo.Collection
}

func NewEventLog(db *mongo.Database) *EventLog {
	return &EventLog{col: db.Collection(database.WebhookEventsCollection)}
}

func (l *EventLog) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := l.col.InsertOne(ctx, models.WebhookEvent{
		ID:          eventID,
		Type:        eventType,
		ProcessedAt: time.Now(),
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(translate(err), store.ErrDuplicate) {
		return false, nil
	}
	return false, err
}

func (l *EventLog) Forget(ctx context.Context, eventID string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := l.col.DeleteOne(ctx, bson.M{"_id": eventID})
	return err
}
