package service

import (
	"context"
	"fmt"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/repository"
)

type reapplicationPolicy struct {
	appRepo repository.ApplicationRepository
	now     func() time.Time
}

func NewReapplicationPolicy(appRepo repository.ApplicationRepository) ReapplicationPolicy {
	return &reapplicationPolicy{appRepo: appRepo, now: time.Now}
}

// CanReapply is a pure read. A permanent block wins over any cooldown; an
// application still under review blocks until it is decided.
func (p *reapplicationPolicy) CanReapply(ctx context.Context, guildID, userID string, cooldownHours int) (domain.ReapplyDecision, error) {
	if guildID == "" || userID == "" {
		return domain.ReapplyDecision{}, domain.ErrMalformedID
	}
	if cooldownHours < 0 {
		return domain.ReapplyDecision{}, fmt.Errorf("%w: cooldown must not be negative", domain.ErrInvalidInput)
	}

	last, blocked, err := p.appRepo.LatestDecidedByUser(ctx, guildID, userID)
	if err != nil {
		return domain.ReapplyDecision{}, fmt.Errorf("failed to read application history: %w", err)
	}
	if blocked {
		d := domain.ReapplyDecision{Allowed: false, Reason: domain.ReapplyBlockedPermanent}
		if last != nil {
			d.LastStatus = string(last.Status)
			d.LastDecision = last.DecidedAt
		}
		return d, nil
	}
	if last == nil {
		return domain.ReapplyDecision{Allowed: true}, nil
	}

	d := domain.ReapplyDecision{LastStatus: string(last.Status), LastDecision: last.DecidedAt}
	if last.Status.IsOpen() {
		d.Reason = domain.ReapplyBlockedPending
		return d, nil
	}
	if last.DecidedAt == nil {
		d.Allowed = true
		return d, nil
	}

	retryAfter := last.DecidedAt.Add(time.Duration(cooldownHours) * time.Hour)
	if p.now().Before(retryAfter) {
		d.Reason = domain.ReapplyBlockedCooldown
		d.RetryAfter = &retryAfter
		return d, nil
	}
	d.Allowed = true
	return d, nil
}
