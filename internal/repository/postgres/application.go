package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"

	"github.com/google/uuid"
)

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	logger.EnterMethod("applicationRepository.Create", "guildID", app.GuildID, "userID", app.UserID)

	query := `INSERT INTO applications (id, short_code, guild_id, user_id, status, created_at, permanently_rejected)
	          VALUES ($1, $2, $3, $4, $5, $6, false)`
	_, err := r.db.ExecContext(ctx, query, app.ID, app.ShortCode, app.GuildID, app.UserID, string(app.Status), app.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.Create", err, "guildID", app.GuildID, "userID", app.UserID)
		if isUniqueViolation(err) {
			return domain.ErrOpenApplication
		}
		return err
	}

	logger.ExitMethod("applicationRepository.Create", "applicationID", app.ID)
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return app, err
}

func (r *applicationRepository) FindByShortCode(ctx context.Context, guildID, code string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
	          WHERE guild_id = $1 AND short_code = $2 ORDER BY created_at DESC LIMIT 2`
	apps, err := r.queryApplications(ctx, query, guildID, code)
	if err != nil {
		return nil, err
	}
	switch len(apps) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return &apps[0], nil
	}
	return nil, domain.ErrAmbiguousShortCode
}

func (r *applicationRepository) FindPendingByUser(ctx context.Context, guildID, userID string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
	          WHERE guild_id = $1 AND user_id = $2 AND status IN ('submitted', 'needs_info')
	          ORDER BY created_at DESC LIMIT 1`
	app, err := scanApplication(r.db.QueryRowContext(ctx, query, guildID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return app, err
}

func (r *applicationRepository) ListOpenByGuild(ctx context.Context, guildID string) ([]domain.Application, error) {
	query := `SELECT a.id, a.short_code, a.guild_id, a.user_id, a.status, a.created_at,
	                 a.submitted_at, a.decided_at, a.permanently_rejected, a.permanent_reject_at,
	                 c.reviewer_id, c.claimed_at
	          FROM applications a
	          LEFT JOIN review_claims c ON c.app_id = a.id
	          WHERE a.guild_id = $1 AND a.status IN ('submitted', 'needs_info')
	          ORDER BY a.submitted_at ASC NULLS LAST, a.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		var reviewerID sql.NullString
		var claimedAt sql.NullTime
		app, err := scanApplication(rows, &reviewerID, &claimedAt)
		if err != nil {
			return nil, err
		}
		if reviewerID.Valid {
			app.Claim = &domain.Claim{ApplicationID: app.ID, ReviewerID: reviewerID.String, ClaimedAt: claimedAt.Time.UTC()}
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func (r *applicationRepository) LatestDecidedByUser(ctx context.Context, guildID, userID string) (*domain.Application, bool, error) {
	query := `SELECT ` + applicationColumns + `,
	                 EXISTS (SELECT 1 FROM applications p
	                         WHERE p.guild_id = $1 AND p.user_id = $2 AND p.permanently_rejected)
	          FROM applications
	          WHERE guild_id = $1 AND user_id = $2 AND status <> 'draft'
	          ORDER BY created_at DESC LIMIT 1`
	var blocked bool
	app, err := scanApplication(r.db.QueryRowContext(ctx, query, guildID, userID), &blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return app, blocked, nil
}

func (r *applicationRepository) Submit(ctx context.Context, id uuid.UUID, actorID string, at time.Time) (*domain.ReviewAction, error) {
	logger.EnterMethod("applicationRepository.Submit", "applicationID", id, "actorID", actorID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	locked, err := lockApplication(ctx, tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.Submit", err, "applicationID", id)
		return nil, err
	}
	if locked.status != domain.ApplicationStatusDraft && locked.status != domain.ApplicationStatusNeedsInfo {
		return nil, domain.ErrNotSubmittable
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE applications SET status = 'submitted', submitted_at = $2 WHERE id = $1 AND status = $3`,
		id, at, string(locked.status))
	if err != nil {
		return nil, fmt.Errorf("failed to submit application: %w", err)
	}

	meta := []byte(fmt.Sprintf(`{"from":%q}`, locked.status))
	actionID, err := insertReviewAction(ctx, tx, id, actorID, domain.ReviewActionSubmit, nil, meta, at)
	if err != nil {
		return nil, fmt.Errorf("failed to write review action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logger.ExitMethod("applicationRepository.Submit", "applicationID", id, "reviewActionID", actionID)
	return &domain.ReviewAction{
		ID:            actionID,
		ApplicationID: id,
		ActorID:       actorID,
		Action:        domain.ReviewActionSubmit,
		Meta:          meta,
		CreatedAt:     at,
	}, nil
}

func (r *applicationRepository) queryApplications(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}
