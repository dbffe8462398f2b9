package syncer

import (
	"context"
	"time"

	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// Orchestrator drives one external source: mirror upserts, detail
// backfill and downstream ledger processing. One implementation exists
// per portal.
type Orchestrator interface {
	Source() enums.SyncSource
	SyncList(ctx context.Context, opts ListOptions) (*Result, error)
	SyncDetail(ctx context.Context, opts DetailOptions) (*Result, error)
	ProcessEligible(ctx context.Context) (*Result, error)
	FullSync(ctx context.Context, opts FullSyncOptions) (*Result, error)
	RetryRecord(ctx context.Context, naturalKey string) error
}

// waitDetailDelay observes the courtesy delay between detail fetches.
// It is a suspension point: cancellation cuts it short.
func waitDetailDelay(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
