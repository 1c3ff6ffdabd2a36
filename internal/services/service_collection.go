package services

import (
	"ecoquest/internal/cache"
	"ecoquest/internal/events"
	"ecoquest/internal/repositories"
	"ecoquest/internal/storage"

	"go.uber.org/zap"
)

// ServiceCollection bundles all services for injection into handlers
type ServiceCollection struct {
	ChallengeService ChallengeService
	BadgeService     BadgeService
	Bus              events.EventBus
}

// NewServiceCollection wires repositories, storage, cache and the event bus
// into the service layer. Badge issuance is subscribed to approvals here so
// every caller gets the same side-effect wiring.
func NewServiceCollection(
	challengeRepo repositories.ChallengeRepository,
	badgeRepo repositories.BadgeRepository,
	store storage.ObjectStorage,
	cacheProvider cache.Cache,
	config *ChallengeServiceConfig,
	logger *zap.Logger,
) *ServiceCollection {
	bus := events.NewInMemoryBus(logger)

	badgeService := NewBadgeService(badgeRepo, logger)
	SubscribeBadgeAwards(bus, badgeService, logger)

	challengeService := NewChallengeService(challengeRepo, store, bus, cacheProvider, config, logger)

	return &ServiceCollection{
		ChallengeService: challengeService,
		BadgeService:     badgeService,
		Bus:              bus,
	}
}
