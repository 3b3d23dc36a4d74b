package monitor

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// VerifyReplay replays the persisted delta log through the last completed
// tick and compares the result against the live membership set published at
// that tick. A mismatch means the append-only log can no longer reconstruct
// the pool, which is the one thing this system exists to guarantee.
//
// Safe to call concurrently with the loop: both sides of the comparison come
// from the same immutable snapshot, and the replay is bounded by its tick.
func (m *Monitor) VerifyReplay(ctx context.Context) error {
	s := m.snap.Load()
	if s == nil {
		// Nothing persisted yet, nothing to verify.
		return nil
	}

	replayed, err := m.store.ReplayObservedSet(ctx, s.status.Tick)
	if err != nil {
		return fmt.Errorf("replay through tick %d: %w", s.status.Tick, err)
	}

	var missing, extra []string
	for txid := range s.members {
		if _, ok := replayed[txid]; !ok {
			missing = append(missing, txid)
		}
	}
	for txid := range replayed {
		if _, ok := s.members[txid]; !ok {
			extra = append(extra, txid)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		m.logger.Info("Replay audit passed",
			zap.Uint64("tick", s.status.Tick),
			zap.Int("members", len(replayed)))
		return nil
	}

	sort.Strings(missing)
	sort.Strings(extra)
	return fmt.Errorf("replay mismatch at tick %d: %d missing (e.g. %v), %d extra (e.g. %v)",
		s.status.Tick, len(missing), sample(missing, 5), len(extra), sample(extra, 5))
}

func sample(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
