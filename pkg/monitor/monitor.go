package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
	"github.com/canopy-network/mempoolx/pkg/rpc"
)

// Config parameterizes the sampling loop.
type Config struct {
	// Interval between polls. Ticks never overlap; a slow tick delays the
	// next one rather than skipping or running it concurrently.
	Interval time.Duration

	// MaxConsecutiveFailures is how many abandoned ticks in a row are
	// tolerated before the node is considered gone and Run returns.
	MaxConsecutiveFailures int

	// Clock defaults to the real clock; tests inject a fake.
	Clock clockwork.Clock
}

// Monitor drives the sampling loop: fetch the current mempool, diff it
// against the previous tick's snapshot, persist the delta plus first-sighting
// attribute rows and relation edges, then sleep until the next interval.
//
// All loop state (previous snapshot, tick counter, failure streak) is owned
// by the single Run goroutine. Concurrent readers get the atomically swapped
// snapshot and the observed-txid index, never the loop's own maps.
type Monitor struct {
	logger *zap.Logger
	node   NodeClient
	store  Store

	clock       clockwork.Clock
	interval    time.Duration
	maxFailures int

	previous map[string]struct{}
	tick     uint64
	failures int

	// observed maps txid -> first-observation tick for this session. The
	// loop writes it after each persisted tick; FirstObserved reads it
	// from the ops server's goroutines.
	observed *xsync.Map[string, uint64]

	snap atomic.Pointer[snapshot]
}

// New wires a Monitor; Run does the work.
func New(logger *zap.Logger, node NodeClient, store Store, cfg Config) *Monitor {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Monitor{
		logger:      logger.Named("monitor"),
		node:        node,
		store:       store,
		clock:       clock,
		interval:    cfg.Interval,
		maxFailures: cfg.MaxConsecutiveFailures,
		observed:    xsync.NewMap[string, uint64](),
	}
}

// Status returns the last published loop snapshot. Zero value until the
// first tick has been persisted.
func (m *Monitor) Status() Status {
	if s := m.snap.Load(); s != nil {
		return s.status
	}
	return Status{}
}

// FirstObserved reports the tick at which txid was first seen during this
// session. Served over the ops endpoint while the loop keeps writing the
// index, hence the concurrent map.
func (m *Monitor) FirstObserved(txid string) (uint64, bool) {
	return m.observed.Load(txid)
}

// Run executes the sampling loop until ctx is cancelled or a fatal error
// occurs. The tick counter resumes after the highest tick already persisted,
// and the first poll emits a baseline dump of everything currently in the
// pool, so a restart never floods the log with false adds.
func (m *Monitor) Run(ctx context.Context) error {
	last, found, err := m.store.MaxTick(ctx)
	if err != nil {
		return fmt.Errorf("seed tick counter: %w", err)
	}
	if found {
		m.tick = last + 1
		m.logger.Info("Resuming after an earlier session",
			zap.Uint64("last_persisted_tick", last),
			zap.Uint64("next_tick", m.tick))
	}

	for {
		if err := m.pollOnce(ctx); err != nil {
			if !errors.Is(err, rpc.ErrConnectivity) {
				// Persistence failures are fatal, even when a stop has
				// already been requested: the write phase spans three
				// non-transactional sends, so the tick may be half
				// recorded and the replay invariant broken.
				return err
			}
			if ctx.Err() != nil {
				// Stop arrived mid-fetch; the tick was fully abandoned.
				m.logger.Info("Monitor stopped", zap.Uint64("next_tick", m.tick))
				return nil
			}

			m.failures++
			m.logger.Warn("Tick abandoned, will retry at next interval",
				zap.Uint64("tick", m.tick),
				zap.Int("consecutive_failures", m.failures),
				zap.Error(err))
			if m.failures >= m.maxFailures {
				return fmt.Errorf("node unreachable for %d consecutive ticks: %w", m.failures, err)
			}
		} else {
			m.failures = 0
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopped", zap.Uint64("next_tick", m.tick))
			return nil
		case <-m.clock.After(m.interval):
		}
	}
}

// pollOnce runs one tick: a fetch phase that builds the complete batch, then
// a write phase. Any error in the fetch phase abandons the tick with nothing
// written and previous_ids untouched. The write phase runs on a
// cancellation-free context so a stop request never leaves a tick half
// recorded.
func (m *Monitor) pollOnce(ctx context.Context) error {
	info, err := m.node.ChainInfo(ctx)
	if err != nil {
		return err
	}

	var (
		batch         *mempoolmodels.TickBatch
		current       map[string]struct{}
		newlyObserved []string
	)
	if m.previous == nil {
		batch, current, newlyObserved, err = m.baselineTick(ctx, info)
	} else {
		batch, current, newlyObserved, err = m.deltaTick(ctx, info)
	}
	if err != nil {
		return err
	}

	if err := m.store.AppendTick(context.WithoutCancel(ctx), batch); err != nil {
		return fmt.Errorf("persist tick %d: %w", batch.Tick, err)
	}

	for _, txid := range newlyObserved {
		m.observed.Store(txid, batch.Tick)
	}
	m.previous = current
	m.publish(batch.Tick, info, current)
	m.tick++
	return nil
}

// baselineTick emits the synthetic session baseline: every transaction
// currently in the pool gets an init delta row, an observation row and its
// relation edges. Later diffs start from this snapshot.
func (m *Monitor) baselineTick(ctx context.Context, info *rpc.ChainInfo) (*mempoolmodels.TickBatch, map[string]struct{}, []string, error) {
	entries, err := m.node.MempoolVerbose(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]string, 0, len(entries))
	current := make(map[string]struct{}, len(entries))
	for txid := range entries {
		ids = append(ids, txid)
		current[txid] = struct{}{}
	}
	sort.Strings(ids)

	batch := &mempoolmodels.TickBatch{Tick: m.tick, ChainHeight: info.Height}
	newlyObserved := make([]string, 0, len(ids))

	for _, txid := range ids {
		entry := entries[txid]
		batch.Deltas = append(batch.Deltas, &mempoolmodels.Delta{
			Tick:        m.tick,
			TxID:        txid,
			DeltaMode:   mempoolmodels.DeltaModeInit,
			ChainHeight: info.Height,
		})
		batch.Observations = append(batch.Observations, newObservation(m.tick, txid, entry))
		batch.Relations = append(batch.Relations, ExtractRelations(m.tick, txid, entry)...)
		newlyObserved = append(newlyObserved, txid)
	}

	m.logger.Info("Baseline dump",
		zap.Uint64("tick", m.tick),
		zap.Int("pool_size", len(ids)),
		zap.Uint64("chain_height", info.Height),
		zap.String("best_block", info.BestBlockHash))
	return batch, current, newlyObserved, nil
}

// deltaTick diffs the current id set against the previous tick's and builds
// the rows for this tick. Ids that vanish between the id-set fetch and the
// attribute fetch are recorded as added-and-removed within the tick and
// dropped from the stored snapshot, keeping the per-txid alternation intact.
func (m *Monitor) deltaTick(ctx context.Context, info *rpc.ChainInfo) (*mempoolmodels.TickBatch, map[string]struct{}, []string, error) {
	ids, err := m.node.MempoolTxIDs(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	current := make(map[string]struct{}, len(ids))
	for _, txid := range ids {
		current[txid] = struct{}{}
	}

	added, removed := Diff(m.previous, current)
	batch := &mempoolmodels.TickBatch{Tick: m.tick, ChainHeight: info.Height}

	for _, txid := range removed {
		batch.Deltas = append(batch.Deltas, &mempoolmodels.Delta{
			Tick:        m.tick,
			TxID:        txid,
			DeltaMode:   mempoolmodels.DeltaModeRemove,
			ChainHeight: info.Height,
		})
	}

	var newlyObserved []string
	for _, txid := range added {
		entry, err := m.node.MempoolEntry(ctx, txid)
		if errors.Is(err, rpc.ErrTxNotInMempool) {
			batch.Deltas = append(batch.Deltas,
				&mempoolmodels.Delta{Tick: m.tick, TxID: txid, DeltaMode: mempoolmodels.DeltaModeAdd, ChainHeight: info.Height},
				&mempoolmodels.Delta{Tick: m.tick, TxID: txid, DeltaMode: mempoolmodels.DeltaModeRemove, ChainHeight: info.Height},
			)
			delete(current, txid)
			continue
		}
		if err != nil {
			return nil, nil, nil, err
		}

		batch.Deltas = append(batch.Deltas, &mempoolmodels.Delta{
			Tick:        m.tick,
			TxID:        txid,
			DeltaMode:   mempoolmodels.DeltaModeAdd,
			ChainHeight: info.Height,
		})

		if _, seen := m.observed.Load(txid); !seen {
			batch.Observations = append(batch.Observations, newObservation(m.tick, txid, entry))
			batch.Relations = append(batch.Relations, ExtractRelations(m.tick, txid, entry)...)
			newlyObserved = append(newlyObserved, txid)
		}
	}

	if len(added) > 0 || len(removed) > 0 {
		m.logger.Debug("Mempool delta",
			zap.Uint64("tick", m.tick),
			zap.Int("added", len(added)),
			zap.Int("removed", len(removed)),
			zap.Uint64("chain_height", info.Height))
	}
	return batch, current, newlyObserved, nil
}

// publish swaps in the post-tick snapshot for concurrent readers.
func (m *Monitor) publish(tick uint64, info *rpc.ChainInfo, members map[string]struct{}) {
	m.snap.Store(&snapshot{
		status: Status{
			Tick:          tick,
			MempoolSize:   len(members),
			ObservedTotal: m.observed.Size(),
			ChainHeight:   info.Height,
			BestBlockHash: info.BestBlockHash,
			LastTickTime:  m.clock.Now(),
			Ready:         true,
		},
		members: members,
	})
}

// newObservation converts a node attribute record into the one-time
// observation row. The depends/spentby flags are derived from the relative
// counts, matching how the node reports relatives including the tx itself.
func newObservation(tick uint64, txid string, entry *rpc.MempoolEntry) *mempoolmodels.Observation {
	return &mempoolmodels.Observation{
		Tick:              tick,
		TxID:              txid,
		WTxID:             entry.WTxID,
		FeesBase:          entry.Fees.Base,
		FeesAncestor:      entry.Fees.Ancestor,
		FeesDescendant:    entry.Fees.Descendant,
		FeesModified:      entry.Fees.Modified,
		VSize:             entry.VSize,
		Weight:            entry.Weight,
		AncestorSize:      entry.AncestorSize,
		DescendantSize:    entry.DescendantSize,
		AncestorCount:     entry.AncestorCount,
		DescendantCount:   entry.DescendantCount,
		BIP125Replaceable: entry.BIP125Replaceable,
		Depends:           entry.AncestorCount > 1,
		SpentBy:           entry.DescendantCount > 1,
		Height:            entry.Height,
		Time:              time.Unix(entry.Time, 0).UTC(),
	}
}
