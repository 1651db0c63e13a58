package memstore

import (
	"context"
	"sync"
)

type EventLog struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewEventLog() *EventLog {
	return &EventLog{seen: map[string]string{}}
}

func (l *EventLog) MarkProcessed(_ context.Context, eventID, eventType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[eventID]; ok {
		return false, nil
	}
	l.seen[eventID] = eventType
	return true, nil
}

func (l *EventLog) Forget(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.seen, eventID)
	return nil
}
