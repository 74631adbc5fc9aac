package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const applicationColumns = `id, short_code, guild_id, user_id, status, created_at,
	submitted_at, decided_at, permanently_rejected, permanent_reject_at`

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner, extra ...any) (*domain.Application, error) {
	app := &domain.Application{}
	var submittedAt, decidedAt, permanentAt sql.NullTime
	dest := []any{
		&app.ID, &app.ShortCode, &app.GuildID, &app.UserID, &app.Status, &app.CreatedAt,
		&submittedAt, &decidedAt, &app.PermanentlyRejected, &permanentAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	app.SubmittedAt = nullTime(submittedAt)
	app.DecidedAt = nullTime(decidedAt)
	app.PermanentRejectAt = nullTime(permanentAt)
	return app, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

type lockedApplication struct {
	status              domain.ApplicationStatus
	permanentlyRejected bool
	permanentRejectAt   sql.NullTime
}

// lockApplication takes the row lock every mutating transaction starts with.
// Locking the application first, always, keeps concurrent claim and decision
// transactions on one application serialized and deadlock free.
func lockApplication(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*lockedApplication, error) {
	l := &lockedApplication{}
	err := tx.QueryRowContext(ctx,
		`SELECT status, permanently_rejected, permanent_reject_at FROM applications WHERE id = $1 FOR UPDATE`, id,
	).Scan(&l.status, &l.permanentlyRejected, &l.permanentRejectAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func insertReviewAction(ctx context.Context, tx *sql.Tx, appID uuid.UUID, actorID string, action domain.ReviewActionType, reason *string, meta []byte, at time.Time) (int64, error) {
	var metaArg any
	if len(meta) > 0 {
		metaArg = string(meta)
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO review_actions (app_id, actor_id, action, reason, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		appID, actorID, string(action), reason, metaArg, at,
	).Scan(&id)
	return id, err
}
