package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopy-network/mempoolx/pkg/config"
	mempooldb "github.com/canopy-network/mempoolx/pkg/db/mempool"
	"github.com/canopy-network/mempoolx/pkg/logging"
	"github.com/canopy-network/mempoolx/pkg/monitor"
	"github.com/canopy-network/mempoolx/pkg/rpc"
)

// App owns the monitor's moving parts: the sampling loop, the ClickHouse
// store, the node client, the ops HTTP server and the optional replay audit.
type App struct {
	Logger  *zap.Logger
	Config  *config.Config
	DB      *mempooldb.DB
	Node    *rpc.Client
	Monitor *monitor.Monitor
	Cron    *cron.Cron
	Server  *http.Server
}

// Initialize wires the application. Configuration problems and unreachable
// backing services are fatal here; nothing has started sampling yet.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	db, err := mempooldb.New(ctx, logger, cfg.ClickHouseAddr, cfg.DatabaseName)
	if err != nil {
		logger.Fatal("Unable to initialize database", zap.Error(err))
	}

	node, err := rpc.New(logger, rpc.Opts{
		Host: cfg.RPCHost,
		User: cfg.RPCUser,
		Pass: cfg.RPCPass,
	})
	if err != nil {
		logger.Fatal("Unable to create node client", zap.Error(err))
	}

	mon := monitor.New(logger, node, db, monitor.Config{
		Interval:               cfg.PollInterval,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	})

	app := &App{
		Logger:  logger,
		Config:  cfg,
		DB:      db,
		Node:    node,
		Monitor: mon,
	}

	app.SetupServer()
	if err := app.SetupAudit(ctx); err != nil {
		logger.Fatal("Unable to schedule replay audit", zap.Error(err))
	}

	return app
}

// Start runs the sampling loop until ctx is cancelled or the loop dies, then
// tears everything down. The loop itself guarantees the in-flight tick is
// fully persisted or fully abandoned before it returns.
func (a *App) Start(ctx context.Context) {
	go func() {
		a.Logger.Info("Ops server listening", zap.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Ops server failed", zap.Error(err))
		}
	}()
	if a.Cron != nil {
		a.Cron.Start()
		a.Logger.Info("Replay audit scheduled", zap.String("cron_spec", a.Config.AuditCronSpec))
	}

	err := a.Monitor.Run(ctx)

	a.Stop()
	if err != nil {
		a.Logger.Fatal("Monitor exited", zap.Error(err))
	}
}

// Stop releases every resource acquired in Initialize.
func (a *App) Stop() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("Ops server shutdown", zap.Error(err))
	}

	a.Node.Shutdown()
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("Database close", zap.Error(err))
	}
	a.Logger.Info("Monitor shut down cleanly")
}

// SetupAudit registers the periodic replay-invariant audit when a cron spec
// is configured. Each run is bounded so a slow replay cannot pile up.
func (a *App) SetupAudit(ctx context.Context) error {
	if a.Config.AuditCronSpec == "" {
		return nil
	}

	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := a.Cron.AddFunc(a.Config.AuditCronSpec, func() {
		actx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := a.Monitor.VerifyReplay(actx); err != nil {
			a.Logger.Error("Replay audit failed", zap.Error(err))
		}
	})
	return err
}
