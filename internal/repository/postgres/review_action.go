package postgres

import (
	"context"
	"database/sql"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/repository"

	"github.com/google/uuid"
)

type reviewActionRepository struct {
	db *sql.DB
}

func NewReviewActionRepository(db *sql.DB) repository.ReviewActionRepository {
	return &reviewActionRepository{db: db}
}

func (r *reviewActionRepository) ListByApplication(ctx context.Context, appID uuid.UUID) ([]domain.ReviewAction, error) {
	query := `SELECT id, app_id, actor_id, action, reason, COALESCE(meta::text, ''), created_at
	          FROM review_actions WHERE app_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []domain.ReviewAction
	for rows.Next() {
		var a domain.ReviewAction
		var reason sql.NullString
		var meta string
		if err := rows.Scan(&a.ID, &a.ApplicationID, &a.ActorID, &a.Action, &reason, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			a.Reason = &reason.String
		}
		if meta != "" {
			a.Meta = []byte(meta)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *reviewActionRepository) CountByAction(ctx context.Context, appID uuid.UUID, action domain.ReviewActionType) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM review_actions WHERE app_id = $1 AND action = $2`, appID, string(action),
	).Scan(&count)
	return count, err
}
