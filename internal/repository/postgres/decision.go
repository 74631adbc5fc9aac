package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"

	"github.com/google/uuid"
)

type decisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) repository.DecisionRepository {
	return &decisionRepository{db: db}
}

// Decide re-reads the status under the row lock, validates the transition,
// writes it and its audit row, all in one transaction. A losing racer sees the
// winner's committed status and gets DecisionAlready without writing anything.
func (r *decisionRepository) Decide(ctx context.Context, d domain.Decision) (domain.DecisionResult, error) {
	logger.EnterMethod("decisionRepository.Decide", "applicationID", d.ApplicationID, "action", d.Action, "actorID", d.ActorID)
	if err := d.Validate(); err != nil {
		return domain.DecisionResult{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DecisionResult{}, err
	}
	defer tx.Rollback()

	locked, err := lockApplication(ctx, tx, d.ApplicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DecisionResult{Kind: domain.DecisionNotFound}, nil
	}
	if err != nil {
		logger.ExitMethodWithError("decisionRepository.Decide", err, "applicationID", d.ApplicationID)
		return domain.DecisionResult{}, err
	}

	if kind := d.Evaluate(locked.status); kind != domain.DecisionOK {
		logger.ExitMethod("decisionRepository.Decide", "applicationID", d.ApplicationID, "kind", kind)
		return domain.DecisionResult{Kind: kind, Status: locked.status}, nil
	}

	target := d.Target()
	var res sql.Result
	if d.IsTerminal() {
		permanent := d.Action == domain.ReviewActionPermanentReject
		var permanentAt *time.Time
		if permanent {
			permanentAt = &d.At
		}
		res, err = tx.ExecContext(ctx,
			`UPDATE applications
			 SET status = $1, decided_at = $2, permanently_rejected = $3, permanent_reject_at = $4
			 WHERE id = $5 AND status = $6`,
			string(target), d.At, permanent, permanentAt, d.ApplicationID, string(locked.status))
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE applications SET status = $1 WHERE id = $2 AND status = $3`,
			string(target), d.ApplicationID, string(locked.status))
	}
	if err != nil {
		logger.ExitMethodWithError("decisionRepository.Decide", err, "applicationID", d.ApplicationID)
		return domain.DecisionResult{}, fmt.Errorf("failed to update application status: %w", err)
	}
	updated, err := res.RowsAffected()
	logger.DatabaseResult("update_application_status", updated, err, "applicationID", d.ApplicationID)
	if err != nil {
		return domain.DecisionResult{}, err
	}
	if updated == 0 {
		return domain.DecisionResult{Kind: domain.DecisionAlready, Status: locked.status}, nil
	}

	claim, err := claimInTx(ctx, tx, d.ApplicationID)
	if err != nil {
		return domain.DecisionResult{}, fmt.Errorf("failed to read claim: %w", err)
	}

	meta := d.Meta
	if len(meta) == 0 {
		meta, _ = json.Marshal(map[string]string{"from": string(locked.status), "to": string(target)})
	}
	actionID, err := insertReviewAction(ctx, tx, d.ApplicationID, d.ActorID, d.Action, d.Reason, meta, d.At)
	if err != nil {
		return domain.DecisionResult{}, fmt.Errorf("failed to write review action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.DecisionResult{}, err
	}

	logger.ExitMethod("decisionRepository.Decide", "applicationID", d.ApplicationID, "reviewActionID", actionID)
	return domain.DecisionResult{Kind: domain.DecisionOK, ReviewActionID: actionID, Status: target, Claim: claim}, nil
}

// claimInTx reads the active claim; claim and unclaim take the same row lock
// first, so it cannot change before the transaction ends.
func claimInTx(ctx context.Context, tx *sql.Tx, appID uuid.UUID) (*domain.Claim, error) {
	c := &domain.Claim{ApplicationID: appID}
	err := tx.QueryRowContext(ctx,
		`SELECT reviewer_id, claimed_at FROM review_claims WHERE app_id = $1`, appID,
	).Scan(&c.ReviewerID, &c.ClaimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Unblock clears the permanent flag. The status stays rejected.
func (r *decisionRepository) Unblock(ctx context.Context, appID uuid.UUID, actorID string, reason *string, at time.Time) (domain.UnblockOutcome, int64, error) {
	logger.EnterMethod("decisionRepository.Unblock", "applicationID", appID, "actorID", actorID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	locked, err := lockApplication(ctx, tx, appID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UnblockNotFound, 0, nil
	}
	if err != nil {
		logger.ExitMethodWithError("decisionRepository.Unblock", err, "applicationID", appID)
		return "", 0, err
	}
	if !locked.permanentlyRejected {
		return domain.UnblockNotBlocked, 0, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET permanently_rejected = false, permanent_reject_at = NULL WHERE id = $1 AND permanently_rejected`, appID); err != nil {
		return "", 0, fmt.Errorf("failed to clear permanent rejection: %w", err)
	}

	meta := map[string]any{}
	if locked.permanentRejectAt.Valid {
		meta["permanent_reject_at"] = locked.permanentRejectAt.Time.UTC()
	}
	metaJSON, _ := json.Marshal(meta)
	actionID, err := insertReviewAction(ctx, tx, appID, actorID, domain.ReviewActionUnblock, reason, metaJSON, at)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write review action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", 0, err
	}

	logger.ExitMethod("decisionRepository.Unblock", "applicationID", appID, "reviewActionID", actionID)
	return domain.UnblockOK, actionID, nil
}
