package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"ecoquest/internal/database"
	"ecoquest/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// challengeRepository implements ChallengeRepository over Postgres
type challengeRepository struct {
	*BaseRepository
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *database.Manager, logger *zap.Logger) ChallengeRepository {
	return &challengeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// ===============================
// CHALLENGE OPERATIONS
// ===============================

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	query := `
		INSERT INTO challenges (title, description, goal, current_progress, category, badge_reward, image_url, is_active, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(ctx, query,
		challenge.Title,
		challenge.Description,
		challenge.Goal,
		challenge.CurrentProgress,
		challenge.Category,
		challenge.BadgeReward,
		challenge.ImageURL,
		challenge.IsActive,
		challenge.EndDate,
	).Scan(&challenge.ID, &challenge.CreatedAt, &challenge.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	query := `
		SELECT id, title, description, goal, current_progress, category, badge_reward, image_url, is_active, end_date, created_at, updated_at
		FROM challenges
		WHERE id = $1`

	challenge, err := r.scanChallenge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	participants, err := r.loadParticipations(ctx, challenge.ID)
	if err != nil {
		return nil, err
	}
	challenge.Participants = participants

	return challenge, nil
}

func (r *challengeRepository) ListActive(ctx context.Context) ([]*models.Challenge, error) {
	query := `
		SELECT id, title, description, goal, current_progress, category, badge_reward, image_url, is_active, end_date, created_at, updated_at
		FROM challenges
		WHERE is_active = TRUE
		ORDER BY created_at DESC`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*models.Challenge
	byID := make(map[int64]*models.Challenge)

	for rows.Next() {
		challenge, err := r.scanChallengeRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, challenge)
		byID[challenge.ID] = challenge
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}

	if len(challenges) == 0 {
		return challenges, nil
	}

	// Attach participants with a single query instead of one per challenge
	ids := make([]int64, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}

	pQuery := `
		SELECT id, challenge_id, user_id, contribution, photo_url, status, reviewed_by, reviewed_at, created_at
		FROM participations
		WHERE challenge_id = ANY($1)
		ORDER BY id ASC`

	pRows, err := r.QueryContext(ctx, pQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load participations: %w", err)
	}
	defer pRows.Close()

	for pRows.Next() {
		var p models.Participation
		if err := scanParticipationRows(pRows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		if parent, ok := byID[p.ChallengeID]; ok {
			parent.Participants = append(parent.Participants, p)
		}
	}
	if err := pRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participations: %w", err)
	}

	return challenges, nil
}

func (r *challengeRepository) Update(ctx context.Context, challenge *models.Challenge) error {
	query := `
		UPDATE challenges
		SET title = $2, description = $3, goal = $4, current_progress = $5, category = $6,
		    badge_reward = $7, image_url = $8, is_active = $9, end_date = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query,
		challenge.ID,
		challenge.Title,
		challenge.Description,
		challenge.Goal,
		challenge.CurrentProgress,
		challenge.Category,
		challenge.BadgeReward,
		challenge.ImageURL,
		challenge.IsActive,
		challenge.EndDate,
	).Scan(&challenge.UpdatedAt)

	if err != nil {
		if r.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update challenge: %w", err)
	}

	return nil
}

func (r *challengeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ===============================
// PARTICIPATION OPERATIONS
// ===============================

func (r *challengeRepository) CreateParticipation(ctx context.Context, participation *models.Participation) error {
	query := `
		INSERT INTO participations (challenge_id, user_id, contribution, photo_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		participation.ChallengeID,
		participation.UserID,
		participation.Contribution,
		participation.PhotoURL,
		participation.Status,
	).Scan(&participation.ID, &participation.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateParticipation
		}
		return fmt.Errorf("failed to create participation: %w", err)
	}

	return nil
}

func (r *challengeRepository) GetParticipation(ctx context.Context, challengeID, userID int64) (*models.Participation, error) {
	query := `
		SELECT id, challenge_id, user_id, contribution, photo_url, status, reviewed_by, reviewed_at, created_at
		FROM participations
		WHERE challenge_id = $1 AND user_id = $2`

	var p models.Participation
	err := scanParticipationRow(r.QueryRowContext(ctx, query, challengeID, userID), &p)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}

	return &p, nil
}

func (r *challengeRepository) ListPendingParticipations(ctx context.Context, challengeID int64) ([]*models.Participation, error) {
	query := `
		SELECT id, challenge_id, user_id, contribution, photo_url, status, reviewed_by, reviewed_at, created_at
		FROM participations
		WHERE challenge_id = $1 AND status = $2
		ORDER BY id ASC`

	rows, err := r.QueryContext(ctx, query, challengeID, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending participations: %w", err)
	}
	defer rows.Close()

	var participations []*models.Participation
	for rows.Next() {
		var p models.Participation
		if err := scanParticipationRows(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participations: %w", err)
	}

	return participations, nil
}

func (r *challengeRepository) ReviewParticipation(ctx context.Context, challengeID, participationID, reviewerID int64, status string, terminalStatuses []string) (*models.Participation, error) {
	var reviewed models.Participation

	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		var currentStatus string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM participations WHERE id = $1 AND challenge_id = $2 FOR UPDATE`,
			participationID, challengeID,
		).Scan(&currentStatus)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock participation: %w", err)
		}

		if slices.Contains(terminalStatuses, currentStatus) {
			return ErrAlreadyReviewed
		}

		err = scanParticipationRow(tx.QueryRowContext(ctx, `
			UPDATE participations
			SET status = $2, reviewed_by = $3, reviewed_at = NOW()
			WHERE id = $1
			RETURNING id, challenge_id, user_id, contribution, photo_url, status, reviewed_by, reviewed_at, created_at`,
			participationID, status, reviewerID,
		), &reviewed)
		if err != nil {
			return fmt.Errorf("failed to update participation: %w", err)
		}

		if status == models.StatusApproved {
			// Atomic increment keeps progress equal to the sum of approved
			// contributions under concurrent reviews
			_, err = tx.ExecContext(ctx, `
				UPDATE challenges
				SET current_progress = current_progress + $2, updated_at = NOW()
				WHERE id = $1`,
				challengeID, reviewed.Contribution,
			)
			if err != nil {
				return fmt.Errorf("failed to advance progress: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &reviewed, nil
}

// ===============================
// SCAN HELPERS
// ===============================

func (r *challengeRepository) scanChallenge(row *sql.Row) (*models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Goal, &c.CurrentProgress,
		&c.Category, &c.BadgeReward, &c.ImageURL, &c.IsActive, &c.EndDate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepository) scanChallengeRows(rows *sql.Rows) (*models.Challenge, error) {
	var c models.Challenge
	err := rows.Scan(
		&c.ID, &c.Title, &c.Description, &c.Goal, &c.CurrentProgress,
		&c.Category, &c.BadgeReward, &c.ImageURL, &c.IsActive, &c.EndDate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepository) loadParticipations(ctx context.Context, challengeID int64) ([]models.Participation, error) {
	query := `
		SELECT id, challenge_id, user_id, contribution, photo_url, status, reviewed_by, reviewed_at, created_at
		FROM participations
		WHERE challenge_id = $1
		ORDER BY id ASC`

	rows, err := r.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participations: %w", err)
	}
	defer rows.Close()

	var participations []models.Participation
	for rows.Next() {
		var p models.Participation
		if err := scanParticipationRows(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participations: %w", err)
	}

	return participations, nil
}

func scanParticipationRow(row *sql.Row, p *models.Participation) error {
	return row.Scan(
		&p.ID, &p.ChallengeID, &p.UserID, &p.Contribution, &p.PhotoURL,
		&p.Status, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt,
	)
}

func scanParticipationRows(rows *sql.Rows, p *models.Participation) error {
	return rows.Scan(
		&p.ID, &p.ChallengeID, &p.UserID, &p.Contribution, &p.PhotoURL,
		&p.Status, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt,
	)
}
