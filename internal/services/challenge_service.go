package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecoquest/internal/cache"
	"ecoquest/internal/events"
	"ecoquest/internal/imaging"
	"ecoquest/internal/models"
	"ecoquest/internal/repositories"
	"ecoquest/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const challengeListKey = "challenges:active"

func challengeKey(id int64) string {
	return fmt.Sprintf("challenges:%d", id)
}

// ChallengeServiceConfig holds challenge service configuration
type ChallengeServiceConfig struct {
	DefaultGoal         int
	DefaultCategory     string
	DefaultBadgeReward  string
	DefaultContribution int

	// TerminalStatuses lists review statuses that can no longer change.
	// Rejected submissions stay reviewable unless added here.
	TerminalStatuses []string

	// RestrictedRoles may manage challenges but not join them
	RestrictedRoles []string

	// AllowedFormats is the raster allow-list for uploaded photos, checked
	// against the sniffed content type of the raw bytes before the pipeline
	// runs. The pipeline can decode more formats than this; the list is
	// what callers are permitted to send.
	AllowedFormats []string

	// PhotoFolder is the storage folder for uploaded photos and the base
	// under which public IDs are derived from delivery URLs
	PhotoFolder string

	CacheTTL    time.Duration
	Compression imaging.Options
}

// DefaultChallengeServiceConfig returns the standard configuration
func DefaultChallengeServiceConfig() *ChallengeServiceConfig {
	return &ChallengeServiceConfig{
		DefaultGoal:         1000,
		DefaultCategory:     "Environmental",
		DefaultBadgeReward:  "Tree Master",
		DefaultContribution: 1,
		TerminalStatuses:    []string{models.StatusApproved},
		RestrictedRoles:     []string{"admin", "partner"},
		AllowedFormats:      []string{"jpeg", "jpg", "png", "gif", "webp"},
		PhotoFolder:         "eco-quest",
		CacheTTL:            5 * time.Minute,
		Compression:         imaging.DefaultOptions(),
	}
}

// challengeService implements ChallengeService
type challengeService struct {
	repo   repositories.ChallengeRepository
	store  storage.ObjectStorage
	bus    events.EventBus
	cache  cache.Cache
	config *ChallengeServiceConfig
	logger *zap.Logger
}

// NewChallengeService creates a new challenge service
func NewChallengeService(
	repo repositories.ChallengeRepository,
	store storage.ObjectStorage,
	bus events.EventBus,
	cacheProvider cache.Cache,
	config *ChallengeServiceConfig,
	logger *zap.Logger,
) ChallengeService {
	if config == nil {
		config = DefaultChallengeServiceConfig()
	}

	return &challengeService{
		repo:   repo,
		store:  store,
		bus:    bus,
		cache:  cacheProvider,
		config: config,
		logger: logger,
	}
}

// ===============================
// CHALLENGE MANAGEMENT
// ===============================

func (s *challengeService) CreateChallenge(ctx context.Context, req *CreateChallengeRequest) (*models.Challenge, error) {
	if req.Title == "" {
		return nil, NewValidationError("Title is required", nil)
	}

	challenge := &models.Challenge{
		Title:       req.Title,
		Description: req.Description,
		Goal:        req.Goal,
		Category:    req.Category,
		BadgeReward: req.BadgeReward,
		EndDate:     req.EndDate,
		IsActive:    true,
	}

	if challenge.Goal <= 0 {
		challenge.Goal = s.config.DefaultGoal
	}
	if challenge.Category == "" {
		challenge.Category = s.config.DefaultCategory
	}
	if challenge.BadgeReward == "" {
		challenge.BadgeReward = s.config.DefaultBadgeReward
	}

	if len(req.Photo) > 0 {
		stored, err := s.processPhoto(ctx, req.Photo)
		if err != nil {
			return nil, err
		}
		challenge.ImageURL = &stored.SecureURL
	} else if req.ImageURL != "" {
		challenge.ImageURL = &req.ImageURL
	}

	if err := s.repo.Create(ctx, challenge); err != nil {
		s.logger.Error("Failed to create challenge", zap.Error(err))
		return nil, NewInternalError("Failed to create challenge")
	}

	s.invalidate(ctx, challengeListKey)

	s.logger.Info("Challenge created",
		zap.Int64("challenge_id", challenge.ID),
		zap.String("title", challenge.Title),
	)

	return challenge, nil
}

func (s *challengeService) UpdateChallenge(ctx context.Context, req *UpdateChallengeRequest) (*models.Challenge, error) {
	challenge, err := s.repo.GetByID(ctx, req.ChallengeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return nil, NewInternalError("Failed to update challenge")
	}

	if req.Title != nil {
		challenge.Title = *req.Title
	}
	if req.Description != nil {
		challenge.Description = *req.Description
	}
	if req.Goal != nil {
		challenge.Goal = *req.Goal
	}
	if req.CurrentProgress != nil {
		challenge.CurrentProgress = *req.CurrentProgress
	}
	if req.IsActive != nil {
		challenge.IsActive = *req.IsActive
	}
	if req.EndDate != nil {
		challenge.EndDate = req.EndDate
	}

	if len(req.Photo) > 0 {
		stored, err := s.processPhoto(ctx, req.Photo)
		if err != nil {
			return nil, err
		}
		challenge.ImageURL = &stored.SecureURL
	}

	if err := s.repo.Update(ctx, challenge); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to update challenge", zap.Error(err))
		return nil, NewInternalError("Failed to update challenge")
	}

	s.invalidate(ctx, challengeListKey, challengeKey(challenge.ID))

	return challenge, nil
}

func (s *challengeService) DeleteChallenge(ctx context.Context, challengeID int64) error {
	challenge, err := s.repo.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return NewInternalError("Failed to delete challenge")
	}

	// Best-effort image cleanup; a storage failure never blocks the delete
	if challenge.ImageURL != nil && *challenge.ImageURL != "" {
		publicID := storage.ExtractPublicID(*challenge.ImageURL, s.config.PhotoFolder)
		if publicID != "" {
			if err := s.store.Delete(ctx, publicID); err != nil {
				s.logger.Warn("Failed to delete challenge image",
					zap.Int64("challenge_id", challengeID),
					zap.String("public_id", publicID),
					zap.Error(err),
				)
			}
		}
	}

	if err := s.repo.Delete(ctx, challengeID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to delete challenge", zap.Error(err))
		return NewInternalError("Failed to delete challenge")
	}

	s.invalidate(ctx, challengeListKey, challengeKey(challengeID))

	s.logger.Info("Challenge deleted", zap.Int64("challenge_id", challengeID))
	return nil
}

func (s *challengeService) GetChallenge(ctx context.Context, challengeID int64) (*models.Challenge, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, challengeKey(challengeID)); err == nil {
			var challenge models.Challenge
			if err := json.Unmarshal(data, &challenge); err == nil {
				return &challenge, nil
			}
		}
	}

	challenge, err := s.repo.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to get challenge", zap.Error(err))
		return nil, NewInternalError("Failed to get challenge")
	}

	s.cacheSet(ctx, challengeKey(challengeID), challenge)

	return challenge, nil
}

func (s *challengeService) ListChallenges(ctx context.Context) ([]*models.Challenge, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, challengeListKey); err == nil {
			var challenges []*models.Challenge
			if err := json.Unmarshal(data, &challenges); err == nil {
				return challenges, nil
			}
		}
	}

	challenges, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list challenges", zap.Error(err))
		return nil, NewInternalError("Failed to list challenges")
	}

	s.cacheSet(ctx, challengeListKey, challenges)

	return challenges, nil
}

// ===============================
// PARTICIPATION LIFECYCLE
// ===============================

func (s *challengeService) JoinChallenge(ctx context.Context, req *JoinChallengeRequest) (*models.Participation, error) {
	if slices.Contains(s.config.RestrictedRoles, req.UserRole) {
		return nil, NewForbiddenError("Admins cannot join challenges")
	}

	if len(req.Photo) == 0 {
		return nil, NewValidationError("Photo proof is required", nil)
	}

	if _, err := s.repo.GetByID(ctx, req.ChallengeID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return nil, NewInternalError("Failed to join challenge")
	}

	// Pre-check saves an upload on the common duplicate path; the unique
	// constraint still guards the race
	if _, err := s.repo.GetParticipation(ctx, req.ChallengeID, req.UserID); err == nil {
		return nil, NewAlreadyJoinedError()
	} else if !errors.Is(err, repositories.ErrNotFound) {
		s.logger.Error("Failed to check participation", zap.Error(err))
		return nil, NewInternalError("Failed to join challenge")
	}

	stored, err := s.processPhoto(ctx, req.Photo)
	if err != nil {
		return nil, err
	}

	contribution := req.Contribution
	if contribution <= 0 {
		contribution = s.config.DefaultContribution
	}

	participation := &models.Participation{
		ChallengeID:  req.ChallengeID,
		UserID:       req.UserID,
		Contribution: contribution,
		PhotoURL:     stored.SecureURL,
		Status:       models.StatusPending,
	}

	if err := s.repo.CreateParticipation(ctx, participation); err != nil {
		// The photo is already uploaded; try not to orphan it
		s.cleanupPhoto(ctx, stored.PublicID)

		if errors.Is(err, repositories.ErrDuplicateParticipation) {
			return nil, NewAlreadyJoinedError()
		}
		s.logger.Error("Failed to create participation", zap.Error(err))
		return nil, NewInternalError("Failed to join challenge")
	}

	s.invalidate(ctx, challengeListKey, challengeKey(req.ChallengeID))

	s.logger.Info("User joined challenge",
		zap.Int64("challenge_id", req.ChallengeID),
		zap.Int64("user_id", req.UserID),
		zap.Int64("participation_id", participation.ID),
	)

	return participation, nil
}

func (s *challengeService) ReviewParticipation(ctx context.Context, req *ReviewParticipationRequest) (*models.Participation, error) {
	if req.Decision != models.StatusApproved && req.Decision != models.StatusRejected {
		return nil, NewInvalidDecisionError(req.Decision)
	}

	challenge, err := s.repo.GetByID(ctx, req.ChallengeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return nil, NewInternalError("Failed to review participation")
	}

	participation, err := s.repo.ReviewParticipation(
		ctx,
		req.ChallengeID,
		req.ParticipationID,
		req.ReviewerID,
		req.Decision,
		s.config.TerminalStatuses,
	)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, NewNotFoundError("Participation not found")
		case errors.Is(err, repositories.ErrAlreadyReviewed):
			return nil, NewAlreadyApprovedError()
		default:
			s.logger.Error("Failed to review participation", zap.Error(err))
			return nil, NewInternalError("Failed to review participation")
		}
	}

	s.invalidate(ctx, challengeListKey, challengeKey(req.ChallengeID))

	s.logger.Info("Participation reviewed",
		zap.Int64("challenge_id", req.ChallengeID),
		zap.Int64("participation_id", participation.ID),
		zap.Int64("reviewer_id", req.ReviewerID),
		zap.String("decision", req.Decision),
	)

	// Badge issuance is a post-commit side effect: handler failures are
	// logged by the bus and never roll back the approval
	if req.Decision == models.StatusApproved && s.bus != nil {
		s.bus.Publish(ctx, events.NewParticipationApprovedEvent(
			challenge.ID,
			participation.ID,
			participation.UserID,
			participation.Contribution,
			challenge.BadgeReward,
		))
	}

	return participation, nil
}

func (s *challengeService) ListPendingParticipations(ctx context.Context, challengeID int64) ([]*models.Participation, error) {
	if _, err := s.repo.GetByID(ctx, challengeID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("Challenge not found")
		}
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return nil, NewInternalError("Failed to list pending participations")
	}

	participations, err := s.repo.ListPendingParticipations(ctx, challengeID)
	if err != nil {
		s.logger.Error("Failed to list pending participations", zap.Error(err))
		return nil, NewInternalError("Failed to list pending participations")
	}

	return participations, nil
}

// ===============================
// HELPERS
// ===============================

// processPhoto validates the raw upload against the format allow-list, then
// runs the compression pipeline and hands the result to storage
func (s *challengeService) processPhoto(ctx context.Context, photo []byte) (*storage.StoredObject, error) {
	if err := s.validatePhotoFormat(photo); err != nil {
		return nil, err
	}

	result, err := imaging.SmartCompress(photo, s.config.Compression)
	if err != nil {
		s.logger.Error("Image compression failed", zap.Error(err))
		return nil, NewCompressionError(err)
	}

	s.logger.Info("Image compressed",
		zap.String("format", result.Format),
		zap.Int("original_size", result.OriginalSize),
		zap.Int("compressed_size", result.CompressedSize),
		zap.Int("ratio_percent", result.CompressionRatio),
	)

	stored, err := s.store.Store(ctx, result.Buffer, s.config.PhotoFolder)
	if err != nil {
		s.logger.Error("Image upload failed", zap.Error(err))
		return nil, NewStorageError(err)
	}

	return stored, nil
}

// validatePhotoFormat sniffs the raw bytes and rejects source formats
// outside the allow-list. The pipeline registers extra decoders (bmp, tiff),
// so this check must run on the original payload, not the pipeline output.
func (s *challengeService) validatePhotoFormat(photo []byte) error {
	contentType := http.DetectContentType(photo)
	for _, format := range s.config.AllowedFormats {
		if contentType == "image/"+strings.TrimSpace(format) {
			return nil
		}
	}

	s.logger.Warn("Photo format not allowed", zap.String("content_type", contentType))
	return NewValidationError(
		fmt.Sprintf("Unsupported image format. Allowed formats: %s", strings.Join(s.config.AllowedFormats, ", ")), nil)
}

func (s *challengeService) cleanupPhoto(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.store.Delete(ctx, publicID); err != nil {
		s.logger.Warn("Failed to clean up orphaned photo",
			zap.String("public_id", publicID),
			zap.Error(err),
		)
	}
}

func (s *challengeService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.logger.Debug("Cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *challengeService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Debug("Cache invalidation failed", zap.Error(err))
	}
}
