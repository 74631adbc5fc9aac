package service

import (
	"context"
	"fmt"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"
)

type maintenanceService struct {
	claimRepo repository.ClaimRepository
	hooks     Hooks
	now       func() time.Time
}

func NewMaintenanceService(claimRepo repository.ClaimRepository, hooks Hooks) MaintenanceService {
	return &maintenanceService{claimRepo: claimRepo, hooks: hooks, now: time.Now}
}

// ReleaseStaleClaims drops claims held longer than ttl on applications that
// are still under review, so an absent moderator never strands one.
func (s *maintenanceService) ReleaseStaleClaims(ctx context.Context, ttl time.Duration) ([]domain.Claim, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: claim ttl must be positive", domain.ErrInvalidInput)
	}
	cutoff := s.now().UTC().Add(-ttl)

	released, err := s.claimRepo.ReleaseStale(ctx, cutoff)
	if err != nil {
		s.hooks.storageFault(ctx, "release_stale_claims", err, "cutoff", cutoff)
		return nil, fmt.Errorf("failed to release stale claims: %w", err)
	}

	guilds := make(map[string]struct{})
	for _, c := range released {
		s.hooks.Metrics.ObserveClaim("expire", string(domain.ClaimOK))
		logger.InfoContext(ctx, "Stale claim released",
			"application_id", c.ApplicationID, "guild_id", c.GuildID, "reviewer_id", c.ReviewerID, "claimed_at", c.ClaimedAt)
		if _, seen := guilds[c.GuildID]; !seen {
			guilds[c.GuildID] = struct{}{}
			s.hooks.invalidate(ctx, c.GuildID)
		}
	}
	return released, nil
}
