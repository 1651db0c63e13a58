// Package paymenttest provides an in-memory payment gateway for tests.
package paymenttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/payment"
)

const Signature = "test-signature"

var ErrUnknownIntent = errors.New("no such payment intent")

// Gateway records intents in memory. Webhook payloads are the JSON produced
// by Payload and are accepted only with Signature.
type Gateway struct {
	mu        sync.Mutex
	intents   map[string]payment.Intent
	seq       int
	CreateErr error
	Retrieves int
}

func New() *Gateway {
	return &Gateway{intents: map[string]payment.Intent{}}
}

func (g *Gateway) CreateIntent(_ context.Context, amountMinor int64, currency string, metadata map[string]string) (payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CreateErr != nil {
		return payment.Intent{}, g.CreateErr
	}
	g.seq++
	id := fmt.Sprintf("pi_test_%d", g.seq)
	intent := payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret_test",
		Status:       "requires_payment_method",
		Amount:       amountMinor,
		Currency:     currency,
		Metadata:     copyMetadata(metadata),
	}
	g.intents[id] = intent
	return intent, nil
}

func (g *Gateway) AnnotateIntent(_ context.Context, intentID string, metadata map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return ErrUnknownIntent
	}
	for k, v := range metadata {
		intent.Metadata[k] = v
	}
	g.intents[intentID] = intent
	return nil
}

func (g *Gateway) RetrieveIntent(_ context.Context, intentID string) (payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Retrieves++
	intent, ok := g.intents[intentID]
	if !ok {
		return payment.Intent{}, ErrUnknownIntent
	}
	intent.Metadata = copyMetadata(intent.Metadata)
	return intent, nil
}

type webhookBody struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Intent *payment.Intent `json:"intent"`
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (payment.Event, error) {
	if signature != Signature {
		return payment.Event{}, payment.ErrInvalidSignature
	}
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return payment.Event{}, err
	}
	return payment.Event{ID: body.ID, Type: body.Type, Intent: body.Intent}, nil
}

// SetStatus changes an intent's status as the customer's card flow would.
func (g *Gateway) SetStatus(intentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := g.intents[intentID]
	intent.Status = status
	g.intents[intentID] = intent
}

// Intent returns the stored intent.
func (g *Gateway) Intent(intentID string) payment.Intent {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := g.intents[intentID]
	intent.Metadata = copyMetadata(intent.Metadata)
	return intent
}

// Payload builds a webhook body carrying the current state of an intent.
func (g *Gateway) Payload(eventID, eventType, intentID string) []byte {
	intent := g.Intent(intentID)
	body, _ := json.Marshal(webhookBody{ID: eventID, Type: eventType, Intent: &intent})
	return body
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ payment.Gateway = (*Gateway)(nil)
