package repository

import (
	"context"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/google/uuid"
)

// ApplicationRepository is the read side of the Application Store plus the
// applicant-driven writes (open, submit). Moderator-driven writes live in
// ClaimRepository and DecisionRepository.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	// FindByShortCode returns domain.ErrAmbiguousShortCode when the code matches
	// more than one application in the guild.
	FindByShortCode(ctx context.Context, guildID, code string) (*domain.Application, error)
	FindPendingByUser(ctx context.Context, guildID, userID string) (*domain.Application, error)
	ListOpenByGuild(ctx context.Context, guildID string) ([]domain.Application, error)
	// LatestDecidedByUser returns the most recent non-draft application and
	// whether any application of the user in the guild is permanently rejected.
	LatestDecidedByUser(ctx context.Context, guildID, userID string) (*domain.Application, bool, error)
	Submit(ctx context.Context, id uuid.UUID, actorID string, at time.Time) (*domain.ReviewAction, error)
}

type ClaimRepository interface {
	Claim(ctx context.Context, appID uuid.UUID, reviewerID string, at time.Time) (domain.ClaimOutcome, error)
	Unclaim(ctx context.Context, appID uuid.UUID, reviewerID string) (domain.ClaimOutcome, error)
	GetClaim(ctx context.Context, appID uuid.UUID) (*domain.Claim, error)
	// ReleaseStale drops claims older than the cutoff on open applications,
	// writing one claim_expired row per released claim.
	ReleaseStale(ctx context.Context, cutoff time.Time) ([]domain.Claim, error)
}

type DecisionRepository interface {
	Decide(ctx context.Context, d domain.Decision) (domain.DecisionResult, error)
	Unblock(ctx context.Context, appID uuid.UUID, actorID string, reason *string, at time.Time) (domain.UnblockOutcome, int64, error)
}

type ReviewActionRepository interface {
	ListByApplication(ctx context.Context, appID uuid.UUID) ([]domain.ReviewAction, error)
	CountByAction(ctx context.Context, appID uuid.UUID, action domain.ReviewActionType) (int, error)
}
