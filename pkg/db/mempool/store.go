package mempool

import (
	"context"
	"fmt"

	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
	"go.uber.org/zap"
)

// AppendTick persists one tick's rows across the three tables. ClickHouse has
// no cross-table transactions, so the caller must treat an error from here as
// fatal once any of the sends may have landed: a half-recorded tick would
// corrupt the replay invariant. Deltas go first; a tick is only considered
// recorded when its delta rows exist.
func (db *DB) AppendTick(ctx context.Context, batch *mempoolmodels.TickBatch) error {
	if batch.Empty() {
		return nil
	}

	if err := db.insertDeltas(ctx, batch.Deltas); err != nil {
		return fmt.Errorf("append deltas (tick %d): %w", batch.Tick, err)
	}
	if err := db.insertObservations(ctx, batch.Observations); err != nil {
		return fmt.Errorf("append observations (tick %d): %w", batch.Tick, err)
	}
	if err := db.insertRelations(ctx, batch.Relations); err != nil {
		return fmt.Errorf("append relations (tick %d): %w", batch.Tick, err)
	}

	db.Logger.Debug("Tick persisted",
		zap.Uint64("tick", batch.Tick),
		zap.Uint64("chain_height", batch.ChainHeight),
		zap.Int("deltas", len(batch.Deltas)),
		zap.Int("observations", len(batch.Observations)),
		zap.Int("relations", len(batch.Relations)))
	return nil
}
