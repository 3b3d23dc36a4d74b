package monitor

import "time"

// Status is the externally visible snapshot of the sampling loop, refreshed
// after every completed tick. The ops endpoints and the replay audit read it;
// the loop is the only writer.
type Status struct {
	Tick          uint64    `json:"tick"`
	MempoolSize   int       `json:"mempool_size"`
	ObservedTotal int       `json:"observed_total"`
	ChainHeight   uint64    `json:"chain_height"`
	BestBlockHash string    `json:"best_block_hash"`
	LastTickTime  time.Time `json:"last_tick_time"`
	Ready         bool      `json:"ready"`
}

// snapshot pairs the public status with the membership set it was computed
// from. The members map is immutable once published; the next tick swaps in
// a freshly built map instead of mutating this one.
type snapshot struct {
	status  Status
	members map[string]struct{}
}
