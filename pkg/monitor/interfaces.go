package monitor

import (
	"context"

	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
	"github.com/canopy-network/mempoolx/pkg/rpc"
)

// NodeClient is the slice of the Bitcoin node's introspection surface the
// monitor consumes. Implemented by pkg/rpc; tests substitute a fake.
type NodeClient interface {
	// MempoolTxIDs returns the complete current set of unconfirmed tx ids.
	MempoolTxIDs(ctx context.Context) ([]string, error)
	// MempoolVerbose returns the full id -> attribute map in one call.
	MempoolVerbose(ctx context.Context) (map[string]*rpc.MempoolEntry, error)
	// MempoolEntry returns one transaction's attribute record, or an error
	// wrapping rpc.ErrTxNotInMempool if it already left the pool.
	MempoolEntry(ctx context.Context, txid string) (*rpc.MempoolEntry, error)
	// ChainInfo returns the current best-block height and hash.
	ChainInfo(ctx context.Context) (*rpc.ChainInfo, error)
}

// Store is the append-only persistence boundary. Implemented by
// pkg/db/mempool on ClickHouse.
type Store interface {
	// MaxTick reports the highest persisted tick; found is false on a
	// fresh database.
	MaxTick(ctx context.Context) (tick uint64, found bool, err error)
	// AppendTick persists one tick's rows as a unit.
	AppendTick(ctx context.Context, batch *mempoolmodels.TickBatch) error
	// ReplayObservedSet folds all delta rows with tick <= throughTick into
	// the membership set as of that tick.
	ReplayObservedSet(ctx context.Context, throughTick uint64) (map[string]struct{}, error)
}
