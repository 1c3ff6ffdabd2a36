package models

import "time"

// Participation review statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Challenge represents a communal environmental goal users contribute to
// via reviewed photo submissions.
type Challenge struct {
	ID              int64      `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	Goal            int        `json:"goal" db:"goal"`
	CurrentProgress int        `json:"current_progress" db:"current_progress"`
	Category        string     `json:"category" db:"category"`
	BadgeReward     string     `json:"badge_reward" db:"badge_reward"`
	ImageURL        *string    `json:"image_url,omitempty" db:"image_url"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	EndDate         *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	// Participants is loaded in submission order (insertion order).
	Participants []Participation `json:"participants,omitempty" db:"-"`
}

// Participation is one user's submission toward a challenge. It is owned by
// its parent challenge; at most one participation exists per (challenge, user).
type Participation struct {
	ID           int64      `json:"id" db:"id"`
	ChallengeID  int64      `json:"challenge_id" db:"challenge_id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	Contribution int        `json:"contribution" db:"contribution"`
	PhotoURL     string     `json:"photo_url" db:"photo_url"`
	Status       string     `json:"status" db:"status"`
	ReviewedBy   *int64     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Badge represents a reward definition users can earn by having challenge
// submissions approved. Identity for award lookups is the unique name.
type Badge struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserBadge is the grant record tying a badge to a user. A (user, badge)
// pair is granted at most once.
type UserBadge struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	BadgeID   int64     `json:"badge_id" db:"badge_id"`
	AwardedAt time.Time `json:"awarded_at" db:"awarded_at"`
}
