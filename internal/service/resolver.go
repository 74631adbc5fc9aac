package service

import (
	"context"
	"strings"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/repository"

	"github.com/google/uuid"
)

type resolver struct {
	appRepo repository.ApplicationRepository
}

func NewResolver(appRepo repository.ApplicationRepository) Resolver {
	return &resolver{appRepo: appRepo}
}

func (r *resolver) Resolve(ctx context.Context, guildID, ref string) (*domain.Application, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || guildID == "" {
		return nil, domain.ErrMalformedID
	}

	if len(ref) > 7 {
		id, err := uuid.Parse(ref)
		if err != nil {
			return nil, domain.ErrMalformedID
		}
		app, err := r.appRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		// Another guild's application is reported exactly like a missing one.
		if !app.BelongsTo(guildID) {
			return nil, domain.ErrNotFound
		}
		return app, nil
	}

	code, err := domain.NormalizeShortCode(ref)
	if err != nil {
		return nil, err
	}
	return r.appRepo.FindByShortCode(ctx, guildID, code)
}

func (r *resolver) PendingForUser(ctx context.Context, guildID, userID string) (*domain.Application, error) {
	if guildID == "" || userID == "" {
		return nil, domain.ErrMalformedID
	}
	return r.appRepo.FindPendingByUser(ctx, guildID, userID)
}
