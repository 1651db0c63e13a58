package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken stores the sha256 of an opaque refresh string, never the
// string itself. Rotation revokes the old row and links its successor.
type RefreshToken struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"user" json:"user"`
	TokenHash       string              `bson:"tokenHash" json:"-"`
	UserAgent       string              `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	ExpiresAt       time.Time           `bson:"expiresAt" json:"expiresAt"`
	Revoked         bool                `bson:"revoked" json:"revoked"`
	ReplacedByToken *primitive.ObjectID `bson:"replacedByToken,omitempty" json:"replacedByToken,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
}

func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
