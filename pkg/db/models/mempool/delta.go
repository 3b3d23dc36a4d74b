package mempool

// Delta modes. "init" rows are the synthetic baseline dump emitted once per
// monitoring session; for replay purposes they mean the same as "add".
const (
	DeltaModeInit   = "init"
	DeltaModeAdd    = "add"
	DeltaModeRemove = "rem"
)

// Delta is one membership change for one transaction at one tick
// (raw_mempool table). For a given txid the add/rem rows strictly alternate
// across ticks; replaying them in tick order reconstructs the pool at any
// sampled instant.
type Delta struct {
	Tick        uint64 `ch:"tick"`
	TxID        string `ch:"txid"`
	DeltaMode   string `ch:"delta_mode"`
	ChainHeight uint64 `ch:"chain_height"`
}
