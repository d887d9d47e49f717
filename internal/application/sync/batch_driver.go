package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/tenant"
)

// BatchDriver drives an entity syncer across every page until the external
// CRM is exhausted, with a cooperative delay once enough records have been
// pulled to risk external rate limits.
type BatchDriver struct {
	batchSize     int
	throttleAfter int
	throttleDelay time.Duration
	logger        *zap.Logger
}

// NewBatchDriver creates a BatchDriver. batchSize is the full-sync page
// size; throttleAfter is the accumulated offset past which throttleDelay
// is inserted between batches.
func NewBatchDriver(batchSize, throttleAfter int, throttleDelay time.Duration, logger *zap.Logger) *BatchDriver {
	if batchSize <= 0 {
		batchSize = 100
	}
	if throttleAfter <= 0 {
		throttleAfter = 1000
	}
	if throttleDelay <= 0 {
		throttleDelay = 2 * time.Second
	}
	return &BatchDriver{
		batchSize:     batchSize,
		throttleAfter: throttleAfter,
		throttleDelay: throttleDelay,
		logger:        logger,
	}
}

// Run paginates the syncer from offset zero until hasMore is false and
// returns an aggregate shaped like a single page with hasMore=false and
// fullSyncCompleted=true.
func (d *BatchDriver) Run(ctx context.Context, syncer EntitySyncer, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	opts.FullSync = true
	opts.Limit = d.batchSize
	opts.Offset = 0

	aggregate := &Result{}
	for {
		page, err := syncer.Sync(ctx, t, opts)
		if err != nil {
			return nil, err
		}
		aggregate.merge(page)

		if !page.HasMore {
			break
		}
		opts.Offset = page.NextOffset

		if opts.Offset >= d.throttleAfter {
			d.logger.Debug("throttling full sync between batches",
				zap.String("stage", syncer.Name()),
				zap.String("locationId", t.LocationID),
				zap.Int("offset", opts.Offset))
			select {
			case <-time.After(d.throttleDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	aggregate.HasMore = false
	aggregate.FullSyncCompleted = true
	aggregate.Duration = time.Since(start)
	return aggregate, nil
}
