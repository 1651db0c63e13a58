package models

import "time"

// WebhookEvent records a processed gateway event id.
type WebhookEvent struct {
	ID          string    `bson:"_id" json:"id"`
	Type        string    `bson:"type" json:"type"`
	ProcessedAt time.Time `bson:"processedAt" json:"processedAt"`
}
