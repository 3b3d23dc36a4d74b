package mempool

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
)

// initObservations creates the unconfirmed_txs table. One row per txid per
// monitoring session, written at first sighting and never touched again.
func (db *DB) initObservations(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."unconfirmed_txs" (
			tick UInt64 CODEC(DoubleDelta, LZ4),
			txid String CODEC(ZSTD(1)),
			wtxid String CODEC(ZSTD(1)),
			fees_base Decimal(16, 8),
			fees_ancestor Decimal(16, 8),
			fees_descendant Decimal(16, 8),
			fees_modified Decimal(16, 8),
			vsize UInt32,
			weight UInt32,
			ancestorsize UInt64,
			descendantsize UInt64,
			ancestorcount UInt64,
			descendantcount UInt64,
			bip125_replaceable Bool,
			depends Bool,
			spentby Bool,
			height UInt64 CODEC(DoubleDelta, LZ4),
			time DateTime CODEC(DoubleDelta, LZ4)
		) ENGINE = MergeTree
		ORDER BY (tick, txid)
	`, db.Name)
	return db.Db.Exec(ctx, query)
}

// insertObservations appends first-sighting attribute rows.
func (db *DB) insertObservations(ctx context.Context, obs []*mempoolmodels.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."unconfirmed_txs" (
		tick, txid, wtxid,
		fees_base, fees_ancestor, fees_descendant, fees_modified,
		vsize, weight, ancestorsize, descendantsize,
		ancestorcount, descendantcount,
		bip125_replaceable, depends, spentby,
		height, time
	) VALUES`, db.Name)

	batch, err := db.Db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, o := range obs {
		err = batch.Append(
			o.Tick,
			o.TxID,
			o.WTxID,
			o.FeesBase,
			o.FeesAncestor,
			o.FeesDescendant,
			o.FeesModified,
			o.VSize,
			o.Weight,
			o.AncestorSize,
			o.DescendantSize,
			o.AncestorCount,
			o.DescendantCount,
			o.BIP125Replaceable,
			o.Depends,
			o.SpentBy,
			o.Height,
			o.Time,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
