package services

import (
	"context"
	"errors"

	"ecoquest/internal/events"
	"ecoquest/internal/repositories"

	"go.uber.org/zap"
)

// badgeService implements BadgeService
type badgeService struct {
	repo   repositories.BadgeRepository
	logger *zap.Logger
}

// NewBadgeService creates a new badge service
func NewBadgeService(repo repositories.BadgeRepository, logger *zap.Logger) BadgeService {
	return &badgeService{
		repo:   repo,
		logger: logger,
	}
}

// AwardByName grants the named badge to the user. A badge that does not
// exist is a logged no-op so challenges can reference rewards before the
// badge catalog catches up. Duplicate grants are absorbed by the store.
func (s *badgeService) AwardByName(ctx context.Context, userID int64, name string) error {
	if name == "" {
		return nil
	}

	badge, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("Badge not found, skipping award",
				zap.String("badge", name),
				zap.Int64("user_id", userID),
			)
			return nil
		}
		return err
	}

	awarded, err := s.repo.AwardToUser(ctx, userID, badge.ID)
	if err != nil {
		return err
	}

	if awarded {
		s.logger.Info("Badge granted",
			zap.String("badge", name),
			zap.Int64("user_id", userID),
		)
	}

	return nil
}

// SubscribeBadgeAwards wires badge issuance to participation approvals
func SubscribeBadgeAwards(bus events.EventBus, badges BadgeService, logger *zap.Logger) {
	bus.Subscribe("participation.approved", func(ctx context.Context, event events.Event) error {
		approved, ok := event.(*events.ParticipationApprovedEvent)
		if !ok {
			return nil
		}

		if err := badges.AwardByName(ctx, approved.UserID, approved.BadgeReward); err != nil {
			logger.Error("Badge award failed",
				zap.Int64("user_id", approved.UserID),
				zap.String("badge", approved.BadgeReward),
				zap.Error(err),
			)
			return err
		}

		return nil
	})
}
