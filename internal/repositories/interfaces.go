package repositories

import (
	"context"
	"errors"

	"ecoquest/internal/models"
)

// Sentinel errors returned by repositories. Services translate these into
// their own error taxonomy.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateParticipation = errors.New("participation already exists")
	ErrAlreadyReviewed        = errors.New("participation already reviewed")
)

// ChallengeRepository defines data access for challenges and their
// participations.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id int64) (*models.Challenge, error)
	ListActive(ctx context.Context) ([]*models.Challenge, error)
	Update(ctx context.Context, challenge *models.Challenge) error
	Delete(ctx context.Context, id int64) error

	CreateParticipation(ctx context.Context, participation *models.Participation) error
	GetParticipation(ctx context.Context, challengeID, userID int64) (*models.Participation, error)
	ListPendingParticipations(ctx context.Context, challengeID int64) ([]*models.Participation, error)

	// ReviewParticipation atomically records a review decision. The status
	// update and, on approval, the progress increment happen in one
	// transaction. Participations whose status is in terminalStatuses are
	// rejected with ErrAlreadyReviewed.
	ReviewParticipation(ctx context.Context, challengeID, participationID, reviewerID int64, status string, terminalStatuses []string) (*models.Participation, error)
}

// BadgeRepository defines data access for badges and grants.
type BadgeRepository interface {
	GetByName(ctx context.Context, name string) (*models.Badge, error)

	// AwardToUser grants a badge at most once per (user, badge). It reports
	// whether a new grant was created.
	AwardToUser(ctx context.Context, userID, badgeID int64) (bool, error)
}
