package mempool

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
)

// initRelations creates the ancestor_descend table holding the unconfirmed
// dependency graph edges recorded at first observation.
func (db *DB) initRelations(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."ancestor_descend" (
			tick UInt64 CODEC(DoubleDelta, LZ4),
			txid String CODEC(ZSTD(1)),
			relation LowCardinality(String),
			rel_txid String CODEC(ZSTD(1))
		) ENGINE = MergeTree
		ORDER BY (tick, txid, relation)
	`, db.Name)
	return db.Db.Exec(ctx, query)
}

// insertRelations appends dependency edges for newly observed transactions.
func (db *DB) insertRelations(ctx context.Context, rels []*mempoolmodels.Relation) error {
	if len(rels) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."ancestor_descend" (tick, txid, relation, rel_txid) VALUES`, db.Name)
	batch, err := db.Db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, r := range rels {
		if err := batch.Append(r.Tick, r.TxID, r.Relation, r.RelTxID); err != nil {
			return err
		}
	}

	return batch.Send()
}
