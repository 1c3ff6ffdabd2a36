package services

import (
	"context"
	"time"

	"ecoquest/internal/models"
)

// ===============================
// SERVICE INTERFACES
// ===============================

// ChallengeService manages challenges and the participation lifecycle
type ChallengeService interface {
	CreateChallenge(ctx context.Context, req *CreateChallengeRequest) (*models.Challenge, error)
	UpdateChallenge(ctx context.Context, req *UpdateChallengeRequest) (*models.Challenge, error)
	DeleteChallenge(ctx context.Context, challengeID int64) error
	GetChallenge(ctx context.Context, challengeID int64) (*models.Challenge, error)
	ListChallenges(ctx context.Context) ([]*models.Challenge, error)

	JoinChallenge(ctx context.Context, req *JoinChallengeRequest) (*models.Participation, error)
	ReviewParticipation(ctx context.Context, req *ReviewParticipationRequest) (*models.Participation, error)
	ListPendingParticipations(ctx context.Context, challengeID int64) ([]*models.Participation, error)
}

// BadgeService issues badges to users
type BadgeService interface {
	// AwardByName grants the named badge to the user. Unknown badge names
	// are a logged no-op; repeated grants are absorbed.
	AwardByName(ctx context.Context, userID int64, name string) error
}

// ===============================
// REQUEST TYPES
// ===============================

// CreateChallengeRequest carries a new challenge definition. Photo holds the
// raw uploaded image when a file part was sent; ImageURL is the fallback
// when the caller supplies a ready-made URL instead.
type CreateChallengeRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=200"`
	Description string     `json:"description" validate:"required,max=2000"`
	Goal        int        `json:"goal" validate:"omitempty,gt=0"`
	Category    string     `json:"category" validate:"omitempty,max=100"`
	BadgeReward string     `json:"badge_reward" validate:"omitempty,max=100"`
	EndDate     *time.Time `json:"end_date"`
	ImageURL    string     `json:"image_url" validate:"omitempty,url"`
	Photo       []byte     `json:"-"`
}

// UpdateChallengeRequest patches challenge fields; nil pointers are left
// untouched.
type UpdateChallengeRequest struct {
	ChallengeID     int64      `json:"-" validate:"required,gt=0"`
	Title           *string    `json:"title" validate:"omitempty,min=3,max=200"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	Goal            *int       `json:"goal" validate:"omitempty,gt=0"`
	CurrentProgress *int       `json:"current_progress" validate:"omitempty,gte=0"`
	IsActive        *bool      `json:"is_active"`
	EndDate         *time.Time `json:"end_date"`
	Photo           []byte     `json:"-"`
}

// JoinChallengeRequest carries a user's submission with photo proof
type JoinChallengeRequest struct {
	ChallengeID  int64  `json:"-" validate:"required,gt=0"`
	UserID       int64  `json:"-" validate:"required,gt=0"`
	UserRole     string `json:"-"`
	Contribution int    `json:"contribution" validate:"omitempty,gt=0"`
	Photo        []byte `json:"-"`
}

// ReviewParticipationRequest carries an admin review decision
type ReviewParticipationRequest struct {
	ChallengeID     int64  `json:"-" validate:"required,gt=0"`
	ParticipationID int64  `json:"-" validate:"required,gt=0"`
	ReviewerID      int64  `json:"-" validate:"required,gt=0"`
	Decision        string `json:"decision" validate:"required"`
}
