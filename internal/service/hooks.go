package service

import (
	"context"
	"errors"

	"gatekeeper-backend/internal/cache"
	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/events"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/metrics"
)

// Hooks run the side effects of a committed mutation: the guild's
// open-applications cache is invalidated before the caller gets its result,
// and status changes are handed to the publisher. Neither can undo the commit,
// so their failures are logged only. Every field may be nil.
type Hooks struct {
	Cache     cache.OpenApplications
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

func (a Hooks) invalidate(ctx context.Context, guildID string) {
	if a.Cache == nil {
		return
	}
	if err := a.Cache.Invalidate(ctx, guildID); err != nil {
		logger.ErrorContext(ctx, "Failed to invalidate open applications cache", "guild_id", guildID, "error", err)
	}
}

func (a Hooks) publish(ctx context.Context, change domain.StatusChange) {
	if a.Publisher == nil {
		return
	}
	err := a.Publisher.PublishStatusChange(ctx, change)
	logger.ExternalServiceResult("status_stream", "publish",
		err, "application_id", change.ApplicationID, "status", change.Status)
}

// storageFault logs an unexpected storage error with the request context.
// Expected outcomes and input errors are not faults.
func (a Hooks) storageFault(ctx context.Context, operation string, err error, args ...any) {
	if err == nil || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
		return
	}
	a.Metrics.ObserveStorageFault(operation)
	allArgs := append([]any{"operation", operation, "error", err}, args...)
	logger.ErrorContext(ctx, "Storage fault", allArgs...)
}
