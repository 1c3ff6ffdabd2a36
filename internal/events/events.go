package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// EVENT TYPES
// ===============================

// Event is the interface all domain events implement
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	Name      string
	Timestamp time.Time
}

func (e BaseEvent) EventName() string {
	return e.Name
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// ParticipationApprovedEvent fires after a review approval commits. Handlers
// run best-effort; failures never affect the approval itself.
type ParticipationApprovedEvent struct {
	BaseEvent
	ChallengeID     int64
	ParticipationID int64
	UserID          int64
	Contribution    int
	BadgeReward     string
}

// NewParticipationApprovedEvent creates an approval event
func NewParticipationApprovedEvent(challengeID, participationID, userID int64, contribution int, badgeReward string) *ParticipationApprovedEvent {
	return &ParticipationApprovedEvent{
		BaseEvent: BaseEvent{
			Name:      "participation.approved",
			Timestamp: time.Now(),
		},
		ChallengeID:     challengeID,
		ParticipationID: participationID,
		UserID:          userID,
		Contribution:    contribution,
		BadgeReward:     badgeReward,
	}
}

// ===============================
// EVENT BUS
// ===============================

// Handler processes a published event
type Handler func(ctx context.Context, event Event) error

// EventBus dispatches events to registered handlers
type EventBus interface {
	Subscribe(eventName string, handler Handler)
	Publish(ctx context.Context, event Event)
}

// inMemoryBus is a synchronous in-process event bus. Handler errors are
// logged and swallowed.
type inMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewInMemoryBus creates a new in-process event bus
func NewInMemoryBus(logger *zap.Logger) EventBus {
	return &inMemoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (b *inMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *inMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventName()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					b.logger.Error("Event handler panicked",
						zap.String("event", event.EventName()),
						zap.Any("panic", p),
					)
				}
			}()

			if err := handler(ctx, event); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event", event.EventName()),
					zap.Error(err),
				)
			}
		}()
	}
}
