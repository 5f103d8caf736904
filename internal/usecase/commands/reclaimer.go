package commands

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/pkg/worker"
)

// HoldReclaimer periodically frees holds abandoned past the hold TTL.
type HoldReclaimer struct {
	*worker.Periodic
}

func NewHoldReclaimer(coordinator *ReservationCoordinator, interval time.Duration, logger *slog.Logger) *HoldReclaimer {
	task := func(ctx context.Context) error {
		n, err := coordinator.ReclaimExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("expired holds reclaimed", "count", n)
		}
		return nil
	}
	return &HoldReclaimer{Periodic: worker.NewPeriodic("hold-reclaimer", interval, task, logger)}
}
