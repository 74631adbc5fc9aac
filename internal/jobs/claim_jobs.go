package jobs

import (
	"context"

	"gatekeeper-backend/internal/logger"
)

// ReleaseStaleClaims drops reviewer claims older than the configured claim TTL
// so abandoned applications return to the unclaimed queue.
func (jr *JobRunner) ReleaseStaleClaims() {
	jr.runWithRecovery("ReleaseStaleClaims", func(ctx context.Context) {
		ttl := jr.config.ClaimTTL()
		released, err := jr.maintenance.ReleaseStaleClaims(ctx, ttl)
		if err != nil {
			logger.Error("Failed to release stale claims", "error", err, "ttl", ttl)
			return
		}
		logger.Info("Released stale claims", "count", len(released), "ttl", ttl)
	})
}
