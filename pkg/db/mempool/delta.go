package mempool

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
)

// initDeltas creates the raw_mempool table. Rows sort by (tick, delta_mode,
// txid); the mode ordering matters because within one tick an "add"/"init"
// must replay before a "rem" for the same txid (races emit both).
func (db *DB) initDeltas(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."raw_mempool" (
			tick UInt64 CODEC(DoubleDelta, LZ4),
			txid String CODEC(ZSTD(1)),
			delta_mode LowCardinality(String),
			chain_height UInt64 CODEC(DoubleDelta, LZ4)
		) ENGINE = MergeTree
		ORDER BY (tick, delta_mode, txid)
	`, db.Name)
	return db.Db.Exec(ctx, query)
}

// insertDeltas appends one tick's membership changes.
func (db *DB) insertDeltas(ctx context.Context, deltas []*mempoolmodels.Delta) error {
	if len(deltas) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."raw_mempool" (tick, txid, delta_mode, chain_height) VALUES`, db.Name)
	batch, err := db.Db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, d := range deltas {
		if err := batch.Append(d.Tick, d.TxID, d.DeltaMode, d.ChainHeight); err != nil {
			return err
		}
	}

	return batch.Send()
}

// MaxTick returns the highest tick present in raw_mempool. The second return
// is false when the table is empty (fresh database).
func (db *DB) MaxTick(ctx context.Context) (uint64, bool, error) {
	query := fmt.Sprintf(`SELECT max(tick), count() FROM "%s"."raw_mempool"`, db.Name)

	var maxTick, rows uint64
	if err := db.Db.QueryRow(ctx, query).Scan(&maxTick, &rows); err != nil {
		return 0, false, fmt.Errorf("query max tick: %w", err)
	}
	if rows == 0 {
		return 0, false, nil
	}
	return maxTick, true, nil
}

// ReplayObservedSet folds every delta row with tick <= throughTick, in tick
// order, into the membership set as of that tick. add inserts, rem deletes.
// An init row marks a session baseline: the first one seen for a tick resets
// the set, so replays spanning process restarts do not carry over members
// from a session that ended without rem rows.
func (db *DB) ReplayObservedSet(ctx context.Context, throughTick uint64) (map[string]struct{}, error) {
	query := fmt.Sprintf(`
		SELECT tick, txid, delta_mode
		FROM "%s"."raw_mempool"
		WHERE tick <= ?
		ORDER BY tick, delta_mode, txid
	`, db.Name)

	rows, err := db.Db.Query(ctx, query, throughTick)
	if err != nil {
		return nil, fmt.Errorf("query deltas: %w", err)
	}
	defer rows.Close()

	members := make(map[string]struct{})
	var baselineTick uint64
	var sawBaseline bool

	for rows.Next() {
		var tick uint64
		var txid, mode string
		if err := rows.Scan(&tick, &txid, &mode); err != nil {
			return nil, fmt.Errorf("scan delta row: %w", err)
		}

		switch mode {
		case mempoolmodels.DeltaModeInit:
			if !sawBaseline || baselineTick != tick {
				members = make(map[string]struct{})
				baselineTick = tick
				sawBaseline = true
			}
			members[txid] = struct{}{}
		case mempoolmodels.DeltaModeAdd:
			members[txid] = struct{}{}
		case mempoolmodels.DeltaModeRemove:
			delete(members, txid)
		default:
			return nil, fmt.Errorf("unknown delta mode %q for txid %s", mode, txid)
		}
	}

	return members, rows.Err()
}
