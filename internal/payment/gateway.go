// Package payment wraps the card payment gateway behind a small interface so
// the order workflow never depends on SDK types.
package payment

import (
	"context"
	"errors"
	"strings"
)

const (
	StatusSucceeded = "succeeded"

	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"

	secretDelimiter = "_secret_"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("payment gateway not configured")
)

// Intent is the gateway's record of an attempt to collect an amount.
type Intent struct {
	ID             string
	ClientSecret   string
	Status         string
	Amount         int64
	Currency       string
	Metadata       map[string]string
	FailureMessage string
}

// Event is a verified asynchronous notification. Intent is nil for event
// types that do not carry a payment intent.
type Event struct {
	ID     string
	Type   string
	Intent *Intent
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error)
	AnnotateIntent(ctx context.Context, intentID string, metadata map[string]string) error
	RetrieveIntent(ctx context.Context, intentID string) (Intent, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// NormalizeIntentID accepts an intent id or a client secret and returns the id.
func NormalizeIntentID(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, secretDelimiter); i >= 0 {
		return ref[:i]
	}
	return ref
}
