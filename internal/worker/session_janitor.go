package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/qr-vault/internal/repository"
)

// StartSessionJanitor prunes expired session rows on an interval until ctx
// is cancelled. Resolution checks expiry on read; the janitor only keeps
// the table from growing without bound.
func StartSessionJanitor(ctx context.Context, sessions repository.SessionRepository, interval time.Duration, logger *zap.Logger) {
	if sessions == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := sessions.DeleteExpired(ctx)
				if err != nil {
					logger.Warn("session janitor sweep failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					logger.Info("expired sessions pruned", zap.Int64("count", deleted))
				}
			}
		}
	}()
}
