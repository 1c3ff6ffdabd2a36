package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInMemoryBus(t *testing.T) {
	t.Run("delivers to all subscribers of the event", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())

		calls := 0
		bus.Subscribe("participation.approved", func(ctx context.Context, e Event) error {
			calls++
			return nil
		})
		bus.Subscribe("participation.approved", func(ctx context.Context, e Event) error {
			calls++
			return nil
		})
		bus.Subscribe("other.event", func(ctx context.Context, e Event) error {
			calls += 100
			return nil
		})

		bus.Publish(context.Background(), NewParticipationApprovedEvent(1, 2, 3, 1, "Tree Master"))

		assert.Equal(t, 2, calls)
	})

	t.Run("handler errors and panics are contained", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())

		ran := false
		bus.Subscribe("participation.approved", func(ctx context.Context, e Event) error {
			return errors.New("badge store down")
		})
		bus.Subscribe("participation.approved", func(ctx context.Context, e Event) error {
			panic("boom")
		})
		bus.Subscribe("participation.approved", func(ctx context.Context, e Event) error {
			ran = true
			return nil
		})

		assert.NotPanics(t, func() {
			bus.Publish(context.Background(), NewParticipationApprovedEvent(1, 2, 3, 1, "Tree Master"))
		})
		assert.True(t, ran, "later handlers still run")
	})

	t.Run("event carries approval details", func(t *testing.T) {
		event := NewParticipationApprovedEvent(10, 20, 30, 5, "Tree Master")

		assert.Equal(t, "participation.approved", event.EventName())
		assert.Equal(t, int64(10), event.ChallengeID)
		assert.Equal(t, int64(20), event.ParticipationID)
		assert.Equal(t, int64(30), event.UserID)
		assert.Equal(t, 5, event.Contribution)
		assert.Equal(t, "Tree Master", event.BadgeReward)
		assert.False(t, event.OccurredAt().IsZero())
	})
}
