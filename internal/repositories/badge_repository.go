package repositories

import (
	"context"
	"fmt"

	"ecoquest/internal/database"
	"ecoquest/internal/models"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over Postgres
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *badgeRepository) GetByName(ctx context.Context, name string) (*models.Badge, error) {
	query := `
		SELECT id, name, description, icon, is_active, created_at
		FROM badges
		WHERE name = $1`

	var b models.Badge
	err := r.QueryRowContext(ctx, query, name).Scan(
		&b.ID, &b.Name, &b.Description, &b.Icon, &b.IsActive, &b.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}

	return &b, nil
}

func (r *badgeRepository) AwardToUser(ctx context.Context, userID, badgeID int64) (bool, error) {
	// ON CONFLICT DO NOTHING makes the grant at-most-once under retries
	// and concurrent approvals
	query := `
		INSERT INTO user_badges (user_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING`

	result, err := r.ExecContext(ctx, query, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		r.logger.Info("Badge awarded",
			zap.Int64("user_id", userID),
			zap.Int64("badge_id", badgeID),
		)
	}

	return affected > 0, nil
}
