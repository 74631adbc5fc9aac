package postgres

import (
	"context"
	"testing"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionRepository_Decide(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDecisionRepository(db)
	ctx := context.Background()
	appID := uuid.New()
	now := time.Now().UTC()

	t.Run("Approve", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusSubmitted, false, nil))
		mock.ExpectExec("UPDATE applications").
			WithArgs("approved", sqlmock.AnyArg(), false, nil, appID.String(), "submitted").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT reviewer_id, claimed_at FROM review_claims WHERE app_id = \$1`).WithArgs(appID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"reviewer_id", "claimed_at"}).AddRow("mod-2", now.Add(-time.Hour)))
		mock.ExpectQuery("INSERT INTO review_actions").
			WithArgs(appID.String(), "mod-1", "approve", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
		mock.ExpectCommit()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionApprove, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionOK, res.Kind)
		assert.Equal(t, int64(21), res.ReviewActionID)
		assert.Equal(t, domain.ApplicationStatusApproved, res.Status)
		require.NotNil(t, res.Claim)
		assert.Equal(t, "mod-2", res.Claim.ReviewerID)
		assert.Equal(t, appID, res.Claim.ApplicationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyTerminalWritesNothing", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusRejected, false, nil))
		mock.ExpectRollback()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionApprove, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionAlready, res.Kind)
		assert.Equal(t, domain.ApplicationStatusRejected, res.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PermanentReject", func(t *testing.T) {
		reason := "Ban evasion"
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusNeedsInfo, false, nil))
		mock.ExpectExec("UPDATE applications").
			WithArgs("rejected", sqlmock.AnyArg(), true, sqlmock.AnyArg(), appID.String(), "needs_info").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT reviewer_id, claimed_at FROM review_claims").WithArgs(appID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"reviewer_id", "claimed_at"}))
		mock.ExpectQuery("INSERT INTO review_actions").
			WithArgs(appID.String(), "mod-1", "permanent_reject", reason, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(22)))
		mock.ExpectCommit()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionPermanentReject, Reason: &reason, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionOK, res.Kind)
		assert.Equal(t, domain.ApplicationStatusRejected, res.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RequestInfo", func(t *testing.T) {
		reason := "Need age verification"
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusSubmitted, false, nil))
		mock.ExpectExec("UPDATE applications SET status").
			WithArgs("needs_info", appID.String(), "submitted").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT reviewer_id, claimed_at FROM review_claims").WithArgs(appID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"reviewer_id", "claimed_at"}))
		mock.ExpectQuery("INSERT INTO review_actions").
			WithArgs(appID.String(), "mod-1", "needs_info", reason, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(23)))
		mock.ExpectCommit()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionNeedsInfo, Reason: &reason, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionOK, res.Kind)
		assert.Equal(t, domain.ApplicationStatusNeedsInfo, res.Status)
		assert.Nil(t, res.Claim)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CompareAndSwapMiss", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusSubmitted, false, nil))
		mock.ExpectExec("UPDATE applications").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-2", Action: domain.ReviewActionKick, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionAlready, res.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"status", "permanently_rejected", "permanent_reject_at"}))
		mock.ExpectRollback()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionApprove, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionNotFound, res.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DraftIsInvalid", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusDraft, false, nil))
		mock.ExpectRollback()

		res, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionApprove, At: now})
		assert.NoError(t, err)
		assert.Equal(t, domain.DecisionInvalidStatus, res.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BlankReasonOpensNoTransaction", func(t *testing.T) {
		blank := "   "
		_, err := repo.Decide(ctx, domain.Decision{ApplicationID: appID, ActorID: "mod-1", Action: domain.ReviewActionReject, Reason: &blank, At: now})
		assert.ErrorIs(t, err, domain.ErrReasonRequired)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDecisionRepository_Unblock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDecisionRepository(db)
	ctx := context.Background()
	appID := uuid.New()
	now := time.Now().UTC()

	t.Run("Blocked", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusRejected, true, now.Add(-time.Hour)))
		mock.ExpectExec(`UPDATE applications SET permanently_rejected = false, permanent_reject_at = NULL WHERE id = \$1`).WithArgs(appID.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO review_actions").
			WithArgs(appID.String(), "mod-1", "unblock", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(30)))
		mock.ExpectCommit()

		outcome, actionID, err := repo.Unblock(ctx, appID, "mod-1", nil, now)
		assert.NoError(t, err)
		assert.Equal(t, domain.UnblockOK, outcome)
		assert.Equal(t, int64(30), actionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotBlocked", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(appID.String()).WillReturnRows(lockRows(domain.ApplicationStatusRejected, false, nil))
		mock.ExpectRollback()

		outcome, _, err := repo.Unblock(ctx, appID, "mod-1", nil, now)
		assert.NoError(t, err)
		assert.Equal(t, domain.UnblockNotBlocked, outcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
