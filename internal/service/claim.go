package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"
)

type claimService struct {
	resolver  Resolver
	claimRepo repository.ClaimRepository
	hooks     Hooks
	now       func() time.Time
}

func NewClaimService(resolver Resolver, claimRepo repository.ClaimRepository, hooks Hooks) ClaimService {
	return &claimService{
		resolver:  resolver,
		claimRepo: claimRepo,
		hooks:     hooks,
		now:       time.Now,
	}
}

func (s *claimService) Claim(ctx context.Context, guildID, ref, reviewerID string) (domain.ClaimOutcome, error) {
	if reviewerID == "" {
		return "", domain.ErrMalformedID
	}
	app, err := s.resolver.Resolve(ctx, guildID, ref)
	if errors.Is(err, domain.ErrNotFound) {
		s.hooks.Metrics.ObserveClaim("claim", string(domain.ClaimAppNotFound))
		return domain.ClaimAppNotFound, nil
	}
	if err != nil {
		s.hooks.storageFault(ctx, "resolve", err, "guild_id", guildID, "ref", ref)
		return "", err
	}

	outcome, err := s.claimRepo.Claim(ctx, app.ID, reviewerID, s.now().UTC())
	if err != nil {
		s.hooks.storageFault(ctx, "claim", err, "application_id", app.ID, "guild_id", guildID, "actor_id", reviewerID)
		return "", fmt.Errorf("failed to claim application: %w", err)
	}
	s.hooks.Metrics.ObserveClaim("claim", string(outcome))
	if outcome == domain.ClaimOK {
		s.hooks.invalidate(ctx, guildID)
	}

	logger.InfoContext(ctx, "Claim processed", "application_id", app.ID, "actor_id", reviewerID, "outcome", outcome)
	return outcome, nil
}

func (s *claimService) Unclaim(ctx context.Context, guildID, ref, reviewerID string) (domain.ClaimOutcome, error) {
	if reviewerID == "" {
		return "", domain.ErrMalformedID
	}
	app, err := s.resolver.Resolve(ctx, guildID, ref)
	if errors.Is(err, domain.ErrNotFound) {
		s.hooks.Metrics.ObserveClaim("unclaim", string(domain.ClaimAppNotFound))
		return domain.ClaimAppNotFound, nil
	}
	if err != nil {
		s.hooks.storageFault(ctx, "resolve", err, "guild_id", guildID, "ref", ref)
		return "", err
	}

	outcome, err := s.claimRepo.Unclaim(ctx, app.ID, reviewerID)
	if err != nil {
		s.hooks.storageFault(ctx, "unclaim", err, "application_id", app.ID, "guild_id", guildID, "actor_id", reviewerID)
		return "", fmt.Errorf("failed to unclaim application: %w", err)
	}
	s.hooks.Metrics.ObserveClaim("unclaim", string(outcome))
	if outcome == domain.ClaimOK {
		s.hooks.invalidate(ctx, guildID)
	}

	logger.InfoContext(ctx, "Unclaim processed", "application_id", app.ID, "actor_id", reviewerID, "outcome", outcome)
	return outcome, nil
}

func (s *claimService) GetClaim(ctx context.Context, guildID, ref string) (*domain.Claim, error) {
	app, err := s.resolver.Resolve(ctx, guildID, ref)
	if err != nil {
		return nil, err
	}
	return s.claimRepo.GetClaim(ctx, app.ID)
}

// GuardAgainstOtherOwner returns a caution for the acting moderator when the
// claim belongs to someone else, or "" when there is nothing to warn about.
func GuardAgainstOtherOwner(claim *domain.Claim, actingUserID string) string {
	if claim == nil || claim.ReviewerID == actingUserID {
		return ""
	}
	return fmt.Sprintf("This application is claimed by %s since %s. Your action was applied anyway.",
		claim.ReviewerID, claim.ClaimedAt.UTC().Format(time.RFC3339))
}
