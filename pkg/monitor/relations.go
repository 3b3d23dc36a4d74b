package monitor

import (
	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
	"github.com/canopy-network/mempoolx/pkg/rpc"
)

// ExtractRelations derives the dependency edges for a newly observed
// transaction from its attribute record: one ancestor edge per entry in
// depends, one descend edge per entry in spentby. The ancestorcount and
// descendantcount include the transaction itself, so a count of 1 means no
// unconfirmed relatives and the corresponding list is skipped.
//
// An id in depends/spentby may itself have left the pool already; the edge
// is still recorded with the bare id, no attribute row is fabricated for it.
func ExtractRelations(tick uint64, txid string, entry *rpc.MempoolEntry) []*mempoolmodels.Relation {
	var edges []*mempoolmodels.Relation

	if entry.AncestorCount > 1 {
		for _, parent := range entry.Depends {
			edges = append(edges, &mempoolmodels.Relation{
				Tick:     tick,
				TxID:     txid,
				Relation: mempoolmodels.RelationAncestor,
				RelTxID:  parent,
			})
		}
	}

	if entry.DescendantCount > 1 {
		for _, child := range entry.SpentBy {
			edges = append(edges, &mempoolmodels.Relation{
				Tick:     tick,
				TxID:     txid,
				Relation: mempoolmodels.RelationDescend,
				RelTxID:  child,
			})
		}
	}

	return edges
}
