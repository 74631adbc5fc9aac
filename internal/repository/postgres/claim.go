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

type claimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) repository.ClaimRepository {
	return &claimRepository{db: db}
}

// Claim inserts the claim row and its audit row in one transaction. The insert
// is the compare-and-swap: an existing row for the application, committed or
// racing in, makes it a no-op reported as ClaimAlreadyClaimed.
func (r *claimRepository) Claim(ctx context.Context, appID uuid.UUID, reviewerID string, at time.Time) (domain.ClaimOutcome, error) {
	logger.EnterMethod("claimRepository.Claim", "applicationID", appID, "reviewerID", reviewerID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	locked, err := lockApplication(ctx, tx, appID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClaimAppNotFound, nil
	}
	if err != nil {
		logger.ExitMethodWithError("claimRepository.Claim", err, "applicationID", appID)
		return "", err
	}
	if !locked.status.IsOpen() {
		return domain.ClaimInvalidStatus, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO review_claims (app_id, reviewer_id, claimed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (app_id) DO NOTHING`,
		appID, reviewerID, at)
	if isUniqueViolation(err) {
		return domain.ClaimAlreadyClaimed, nil
	}
	if err != nil {
		logger.ExitMethodWithError("claimRepository.Claim", err, "applicationID", appID)
		return "", fmt.Errorf("failed to insert claim: %w", err)
	}
	inserted, err := res.RowsAffected()
	logger.DatabaseResult("insert_claim", inserted, err, "applicationID", appID)
	if err != nil {
		return "", err
	}
	if inserted == 0 {
		return domain.ClaimAlreadyClaimed, nil
	}

	if _, err := insertReviewAction(ctx, tx, appID, reviewerID, domain.ReviewActionClaim, nil, nil, at); err != nil {
		return "", fmt.Errorf("failed to write review action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	logger.ExitMethod("claimRepository.Claim", "applicationID", appID, "reviewerID", reviewerID)
	return domain.ClaimOK, nil
}

func (r *claimRepository) Unclaim(ctx context.Context, appID uuid.UUID, reviewerID string) (domain.ClaimOutcome, error) {
	logger.EnterMethod("claimRepository.Unclaim", "applicationID", appID, "reviewerID", reviewerID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := lockApplication(ctx, tx, appID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ClaimAppNotFound, nil
		}
		logger.ExitMethodWithError("claimRepository.Unclaim", err, "applicationID", appID)
		return "", err
	}

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT reviewer_id FROM review_claims WHERE app_id = $1`, appID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClaimNotClaimed, nil
	}
	if err != nil {
		return "", err
	}
	if owner != reviewerID {
		return domain.ClaimNotOwner, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_claims WHERE app_id = $1 AND reviewer_id = $2`, appID, reviewerID); err != nil {
		return "", fmt.Errorf("failed to delete claim: %w", err)
	}
	if _, err := insertReviewAction(ctx, tx, appID, reviewerID, domain.ReviewActionUnclaim, nil, nil, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to write review action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	logger.ExitMethod("claimRepository.Unclaim", "applicationID", appID, "reviewerID", reviewerID)
	return domain.ClaimOK, nil
}

func (r *claimRepository) GetClaim(ctx context.Context, appID uuid.UUID) (*domain.Claim, error) {
	c := &domain.Claim{}
	err := r.db.QueryRowContext(ctx,
		`SELECT app_id, reviewer_id, claimed_at FROM review_claims WHERE app_id = $1`, appID,
	).Scan(&c.ApplicationID, &c.ReviewerID, &c.ClaimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Rows another transaction holds are skipped and picked up by a later sweep.
const staleClaimsQuery = `SELECT c.app_id, a.guild_id, c.reviewer_id, c.claimed_at
	FROM review_claims c
	JOIN applications a ON a.id = c.app_id
	WHERE c.claimed_at < $1 AND a.status IN ('submitted', 'needs_info')
	ORDER BY c.claimed_at
	FOR UPDATE OF a, c SKIP LOCKED`

func (r *claimRepository) ReleaseStale(ctx context.Context, cutoff time.Time) ([]domain.Claim, error) {
	logger.EnterMethod("claimRepository.ReleaseStale", "cutoff", cutoff)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	logger.DatabaseCall("select_stale_claims", staleClaimsQuery, "cutoff", cutoff)
	rows, err := tx.QueryContext(ctx, staleClaimsQuery, cutoff)
	if err != nil {
		return nil, err
	}
	var stale []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.ApplicationID, &c.GuildID, &c.ReviewerID, &c.ClaimedAt); err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, c := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_claims WHERE app_id = $1 AND reviewer_id = $2`, c.ApplicationID, c.ReviewerID); err != nil {
			return nil, fmt.Errorf("failed to release claim: %w", err)
		}
		meta, _ := json.Marshal(map[string]any{"reviewer_id": c.ReviewerID, "claimed_at": c.ClaimedAt})
		if _, err := insertReviewAction(ctx, tx, c.ApplicationID, domain.SystemActorID, domain.ReviewActionClaimExpired, nil, meta, now); err != nil {
			return nil, fmt.Errorf("failed to write review action: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logger.ExitMethod("claimRepository.ReleaseStale", "released", len(stale))
	return stale, nil
}
