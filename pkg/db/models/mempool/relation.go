package mempool

// Relation vocabulary. "ancestor" edges point at the transactions the subject
// spends from while unconfirmed, "descend" edges at the ones spending it.
const (
	RelationAncestor = "ancestor"
	RelationDescend  = "descend"
)

// Relation is one directed edge of the unconfirmed dependency graph
// (ancestor_descend table), recorded only at the subject transaction's
// first-observation tick.
type Relation struct {
	Tick     uint64 `ch:"tick"`
	TxID     string `ch:"txid"`
	Relation string `ch:"relation"`
	RelTxID  string `ch:"rel_txid"`
}
