package mempool

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/mempoolx/pkg/db/clickhouse"
)

// DB owns the three append-only tables of the monitor: raw_mempool (deltas),
// unconfirmed_txs (observations) and ancestor_descend (relations). Only
// INSERT and SELECT are ever issued against them.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects to ClickHouse and initializes the monitor schema.
func New(ctx context.Context, logger *zap.Logger, dsn, dbName string) (*DB, error) {
	name := clickhouse.SanitizeName(dbName)

	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", "mempool_db"),
	), dsn, name)
	if err != nil {
		return nil, err
	}

	db := &DB{
		Client: client,
		Name:   name,
	}

	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitializeDB creates the three tables if they do not already exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"raw_mempool", db.initDeltas},
		{"unconfirmed_txs", db.initObservations},
		{"ancestor_descend", db.initRelations},
	}

	for _, init := range inits {
		if err := init.fn(ctx); err != nil {
			return fmt.Errorf("init table %s: %w", init.name, err)
		}
	}

	db.Logger.Info("Monitor schema ready", zap.String("database", db.Name))
	return nil
}
