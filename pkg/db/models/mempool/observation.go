package mempool

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is the one-time attribute snapshot captured the first time a
// transaction is seen in the pool during a monitoring session
// (unconfirmed_txs table). Rows are never updated; if attributes drift
// between ticks only membership is tracked, not the drift.
type Observation struct {
	Tick  uint64 `ch:"tick"`
	TxID  string `ch:"txid"`
	WTxID string `ch:"wtxid"`

	// Fee components in BTC.
	FeesBase       decimal.Decimal `ch:"fees_base"`
	FeesAncestor   decimal.Decimal `ch:"fees_ancestor"`
	FeesDescendant decimal.Decimal `ch:"fees_descendant"`
	FeesModified   decimal.Decimal `ch:"fees_modified"`

	VSize          uint32 `ch:"vsize"`
	Weight         uint32 `ch:"weight"`
	AncestorSize   uint64 `ch:"ancestorsize"`
	DescendantSize uint64 `ch:"descendantsize"`

	AncestorCount   uint64 `ch:"ancestorcount"`
	DescendantCount uint64 `ch:"descendantcount"`

	BIP125Replaceable bool `ch:"bip125_replaceable"`
	Depends           bool `ch:"depends"`
	SpentBy           bool `ch:"spentby"`

	// Block height the node reported when the tx entered its pool.
	Height uint64 `ch:"height"`
	// Unix time the node first saw the tx.
	Time time.Time `ch:"time"`
}
