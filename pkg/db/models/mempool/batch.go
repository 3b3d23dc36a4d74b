package mempool

// TickBatch carries every row produced by one sampling tick. A batch is
// persisted as a unit: either all of its rows land or the tick is abandoned.
type TickBatch struct {
	Tick        uint64
	ChainHeight uint64

	Deltas       []*Delta
	Observations []*Observation
	Relations    []*Relation
}

// Empty reports whether the batch carries no rows at all. Quiet ticks (no
// membership change) still advance the tick counter but write nothing.
func (b *TickBatch) Empty() bool {
	return len(b.Deltas) == 0 && len(b.Observations) == 0 && len(b.Relations) == 0
}
