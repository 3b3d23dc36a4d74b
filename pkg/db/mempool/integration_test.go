//go:build integration

package mempool_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	chcontainer "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"go.uber.org/zap"

	mempooldb "github.com/canopy-network/mempoolx/pkg/db/mempool"
	mempoolmodels "github.com/canopy-network/mempoolx/pkg/db/models/mempool"
)

var (
	testDSN    string
	testLogger *zap.Logger
)

// TestMain starts one ClickHouse container for the whole package. Each test
// gets its own database so they stay independent.
func TestMain(m *testing.M) {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	if _, err := exec.LookPath("docker"); err != nil {
		fmt.Println("docker not available, skipping integration tests")
		return
	}

	testLogger = zap.NewNop()
	ctx := context.Background()

	container, err := chcontainer.Run(ctx,
		"clickhouse/clickhouse-server:24.1",
		chcontainer.WithUsername("default"),
		chcontainer.WithPassword(""),
		chcontainer.WithDatabase("default"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start clickhouse container: %v\n", err)
		exitCode = 1
		return
	}
	defer func() { _ = container.Terminate(ctx) }()

	testDSN, err = container.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container connection string: %v\n", err)
		exitCode = 1
		return
	}

	exitCode = m.Run()
}

func newTestDB(t *testing.T, name string) *mempooldb.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := mempooldb.New(ctx, testLogger, testDSN, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func observation(tick uint64, txid string) *mempoolmodels.Observation {
	return &mempoolmodels.Observation{
		Tick:            tick,
		TxID:            txid,
		WTxID:           "w" + txid,
		FeesBase:        decimal.RequireFromString("0.00014100"),
		FeesAncestor:    decimal.RequireFromString("0.00014100"),
		FeesDescendant:  decimal.RequireFromString("0.00028200"),
		FeesModified:    decimal.RequireFromString("0.00014100"),
		VSize:           141,
		Weight:          561,
		AncestorSize:    141,
		DescendantSize:  282,
		AncestorCount:   1,
		DescendantCount: 2,
		Height:          804348,
		Time:            time.Unix(1693248611, 0).UTC(),
	}
}

func TestMaxTickOnFreshDatabase(t *testing.T) {
	db := newTestDB(t, "it_fresh")
	ctx := context.Background()

	_, found, err := db.MaxTick(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAppendTickAndMaxTick(t *testing.T) {
	db := newTestDB(t, "it_append")
	ctx := context.Background()

	batch := &mempoolmodels.TickBatch{
		Tick:        7,
		ChainHeight: 804348,
		Deltas: []*mempoolmodels.Delta{
			{Tick: 7, TxID: "txA", DeltaMode: mempoolmodels.DeltaModeInit, ChainHeight: 804348},
		},
		Observations: []*mempoolmodels.Observation{observation(7, "txA")},
		Relations: []*mempoolmodels.Relation{
			{Tick: 7, TxID: "txA", Relation: mempoolmodels.RelationDescend, RelTxID: "txB"},
		},
	}
	require.NoError(t, db.AppendTick(ctx, batch))

	tick, found, err := db.MaxTick(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(7), tick)
}

func TestAppendEmptyTickWritesNothing(t *testing.T) {
	db := newTestDB(t, "it_empty")
	ctx := context.Background()

	require.NoError(t, db.AppendTick(ctx, &mempoolmodels.TickBatch{Tick: 3, ChainHeight: 1}))

	_, found, err := db.MaxTick(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReplayObservedSet(t *testing.T) {
	db := newTestDB(t, "it_replay")
	ctx := context.Background()

	height := uint64(804348)
	batches := []*mempoolmodels.TickBatch{
		{Tick: 0, ChainHeight: height, Deltas: []*mempoolmodels.Delta{
			{Tick: 0, TxID: "txA", DeltaMode: mempoolmodels.DeltaModeInit, ChainHeight: height},
			{Tick: 0, TxID: "txB", DeltaMode: mempoolmodels.DeltaModeInit, ChainHeight: height},
		}},
		{Tick: 1, ChainHeight: height, Deltas: []*mempoolmodels.Delta{
			{Tick: 1, TxID: "txC", DeltaMode: mempoolmodels.DeltaModeAdd, ChainHeight: height},
			{Tick: 1, TxID: "txA", DeltaMode: mempoolmodels.DeltaModeRemove, ChainHeight: height},
		}},
		{Tick: 2, ChainHeight: height, Deltas: []*mempoolmodels.Delta{
			// Evicted between the id fetch and the attribute fetch: both
			// rows land in the same tick and must cancel out on replay.
			{Tick: 2, TxID: "txGone", DeltaMode: mempoolmodels.DeltaModeAdd, ChainHeight: height},
			{Tick: 2, TxID: "txGone", DeltaMode: mempoolmodels.DeltaModeRemove, ChainHeight: height},
			{Tick: 2, TxID: "txB", DeltaMode: mempoolmodels.DeltaModeRemove, ChainHeight: height},
		}},
	}
	for _, b := range batches {
		require.NoError(t, db.AppendTick(ctx, b))
	}

	expectations := map[uint64]map[string]struct{}{
		0: {"txA": {}, "txB": {}},
		1: {"txB": {}, "txC": {}},
		2: {"txC": {}},
	}
	for tick, expected := range expectations {
		members, err := db.ReplayObservedSet(ctx, tick)
		require.NoError(t, err)
		assert.Equal(t, expected, members, "tick %d", tick)
	}
}

func TestReplayResetsAtSessionBaseline(t *testing.T) {
	db := newTestDB(t, "it_sessions")
	ctx := context.Background()

	// First session baselines {txA} and dies without recording its removal.
	require.NoError(t, db.AppendTick(ctx, &mempoolmodels.TickBatch{
		Tick: 0, ChainHeight: 1,
		Deltas: []*mempoolmodels.Delta{
			{Tick: 0, TxID: "txA", DeltaMode: mempoolmodels.DeltaModeInit, ChainHeight: 1},
		},
	}))
	// Second session baselines {txB}; txA must not leak into its replay.
	require.NoError(t, db.AppendTick(ctx, &mempoolmodels.TickBatch{
		Tick: 1, ChainHeight: 2,
		Deltas: []*mempoolmodels.Delta{
			{Tick: 1, TxID: "txB", DeltaMode: mempoolmodels.DeltaModeInit, ChainHeight: 2},
		},
	}))

	members, err := db.ReplayObservedSet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"txB": {}}, members)
}

func TestObservationRoundTrip(t *testing.T) {
	db := newTestDB(t, "it_observations")
	ctx := context.Background()

	want := observation(5, "txA")
	want.BIP125Replaceable = true
	want.SpentBy = true
	require.NoError(t, db.AppendTick(ctx, &mempoolmodels.TickBatch{
		Tick: 5, ChainHeight: 804348,
		Deltas: []*mempoolmodels.Delta{
			{Tick: 5, TxID: "txA", DeltaMode: mempoolmodels.DeltaModeAdd, ChainHeight: 804348},
		},
		Observations: []*mempoolmodels.Observation{want},
	}))

	query := fmt.Sprintf(`SELECT fees_base, vsize, bip125_replaceable, spentby, time FROM "%s"."unconfirmed_txs" WHERE txid = 'txA'`, db.Name)
	var (
		feesBase    decimal.Decimal
		vsize       uint32
		replaceable bool
		spentBy     bool
		seenAt      time.Time
	)
	require.NoError(t, db.Db.QueryRow(ctx, query).Scan(&feesBase, &vsize, &replaceable, &spentBy, &seenAt))

	assert.True(t, feesBase.Equal(want.FeesBase), "fees_base came back as %s", feesBase)
	assert.Equal(t, uint32(141), vsize)
	assert.True(t, replaceable)
	assert.True(t, spentBy)
	assert.Equal(t, want.Time.Unix(), seenAt.Unix())
}

func TestRelationRows(t *testing.T) {
	db := newTestDB(t, "it_relations")
	ctx := context.Background()

	require.NoError(t, db.AppendTick(ctx, &mempoolmodels.TickBatch{
		Tick: 4, ChainHeight: 10,
		Deltas: []*mempoolmodels.Delta{
			{Tick: 4, TxID: "txChild", DeltaMode: mempoolmodels.DeltaModeAdd, ChainHeight: 10},
		},
		Relations: []*mempoolmodels.Relation{
			{Tick: 4, TxID: "txChild", Relation: mempoolmodels.RelationAncestor, RelTxID: "txParent1"},
			{Tick: 4, TxID: "txChild", Relation: mempoolmodels.RelationAncestor, RelTxID: "txParent2"},
		},
	}))

	query := fmt.Sprintf(`SELECT count() FROM "%s"."ancestor_descend" WHERE txid = 'txChild' AND relation = 'ancestor'`, db.Name)
	var count uint64
	require.NoError(t, db.Db.QueryRow(ctx, query).Scan(&count))
	assert.Equal(t, uint64(2), count)
}
