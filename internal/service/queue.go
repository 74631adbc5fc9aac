package service

import (
	"context"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"
)

type queueService struct {
	resolver   Resolver
	appRepo    repository.ApplicationRepository
	claimRepo  repository.ClaimRepository
	actionRepo repository.ReviewActionRepository
	hooks      Hooks
}

func NewQueueService(
	resolver Resolver,
	appRepo repository.ApplicationRepository,
	claimRepo repository.ClaimRepository,
	actionRepo repository.ReviewActionRepository,
	hooks Hooks,
) QueueService {
	return &queueService{
		resolver:   resolver,
		appRepo:    appRepo,
		claimRepo:  claimRepo,
		actionRepo: actionRepo,
		hooks:      hooks,
	}
}

// ListOpen reads through the guild's cache entry. A cache failure falls back
// to the store without filling.
func (s *queueService) ListOpen(ctx context.Context, guildID string) ([]domain.Application, error) {
	if guildID == "" {
		return nil, domain.ErrMalformedID
	}

	var version uint64
	fill := s.hooks.Cache != nil
	if fill {
		apps, v, ok, err := s.hooks.Cache.Get(ctx, guildID)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "Open applications cache unavailable", "guild_id", guildID, "error", err)
			fill = false
		case ok:
			s.hooks.Metrics.ObserveCache(true)
			return apps, nil
		default:
			s.hooks.Metrics.ObserveCache(false)
			version = v
		}
	}

	apps, err := s.appRepo.ListOpenByGuild(ctx, guildID)
	if err != nil {
		s.hooks.storageFault(ctx, "list_open", err, "guild_id", guildID)
		return nil, err
	}
	if apps == nil {
		apps = []domain.Application{}
	}
	if fill {
		if err := s.hooks.Cache.Set(ctx, guildID, version, apps); err != nil {
			logger.WarnContext(ctx, "Failed to fill open applications cache", "guild_id", guildID, "error", err)
		}
	}
	return apps, nil
}

func (s *queueService) Get(ctx context.Context, guildID, ref string) (*domain.Application, error) {
	app, err := s.resolver.Resolve(ctx, guildID, ref)
	if err != nil {
		return nil, err
	}
	claim, err := s.claimRepo.GetClaim(ctx, app.ID)
	if err != nil {
		s.hooks.storageFault(ctx, "get_claim", err, "application_id", app.ID, "guild_id", guildID)
		return nil, err
	}
	app.Claim = claim
	return app, nil
}

// ListActions returns the application's audit trail, oldest first.
func (s *queueService) ListActions(ctx context.Context, guildID, ref string) ([]domain.ReviewAction, error) {
	app, err := s.resolver.Resolve(ctx, guildID, ref)
	if err != nil {
		return nil, err
	}
	actions, err := s.actionRepo.ListByApplication(ctx, app.ID)
	if err != nil {
		s.hooks.storageFault(ctx, "list_actions", err, "application_id", app.ID, "guild_id", guildID)
		return nil, err
	}
	return actions, nil
}
