package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/constructorio-go/internal/humanity"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/config"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/server"
	"github.com/GriffinCanCode/constructorio-go/internal/queue"
	"github.com/GriffinCanCode/constructorio-go/internal/shared/id"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
	"github.com/GriffinCanCode/constructorio-go/internal/tracker"
	"github.com/GriffinCanCode/constructorio-go/internal/transport"
)

func main() {
	cfg := config.LoadOrDefault()

	scriptPath := flag.String("script", "", "YAML event script to replay")
	dbPath := flag.String("db", cfg.Storage.Path, "SQLite backlog file (empty keeps the backlog in memory)")
	userAgent := flag.String("ua", cfg.Tracker.UserAgent, "User agent reported to the bot heuristic")
	webdriver := flag.Bool("webdriver", false, "Report browser automation")
	logLevel := flag.String("log-level", cfg.Logging.Level, "Log level")
	statusAddr := flag.String("status-addr", cfg.Status.Addr, "Serve health, metrics and backlog on this address until interrupted")
	flag.Parse()

	cfg.Storage.Path = *dbPath
	cfg.Tracker.UserAgent = *userAgent
	cfg.Logging.Level = *logLevel
	cfg.Status.Addr = *statusAddr

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *scriptPath == "" {
		logger.Fatal("-script is required")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	script, err := LoadScript(*scriptPath)
	if err != nil {
		logger.Fatal("failed to load script", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := humanity.Environment{UserAgent: cfg.Tracker.UserAgent, Webdriver: *webdriver}
	if err := run(ctx, cfg, env, script, logger); err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, env humanity.Environment, script *Script, logger *logging.Logger) error {
	local, closeLocal, err := openLocal(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeLocal()

	clientID, err := id.LoadClientID(local)
	if err != nil {
		logger.Warn("client id not persisted", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	sender := transport.NewHTTPSender(transport.Config{
		Timeout:   cfg.Transport.RequestTimeout,
		RateLimit: cfg.Transport.RateLimitRPS,
		UserAgent: env.UserAgent,
	}, logger)

	rt := Runtime{
		Local:  local,
		Sender: sender,
		Env:    env,
		Queue: queue.Options{
			SendTrackingEvents: cfg.Queue.SendTrackingEvents,
			TrackingSendDelay:  cfg.Queue.TrackingSendDelay,
		},
		Tracker: tracker.Config{
			APIKey:       cfg.Tracker.APIKey,
			ServiceURL:   cfg.Tracker.ServiceURL,
			UserID:       cfg.Tracker.UserID,
			Segments:     cfg.Tracker.Segments,
			Referrer:     cfg.Tracker.Referrer,
			SendReferrer: cfg.Tracker.SendReferrer,
		},
		Logger:   logger,
		Metrics:  metrics,
		ClientID: clientID,
		Sessions: id.NewSessions(local),
	}

	status := make(chan error, 1)
	if cfg.Status.Addr != "" {
		srv := server.New(server.Config{
			Addr:        cfg.Status.Addr,
			Development: cfg.Logging.Development,
		}, reg, local, logger)
		go func() { status <- srv.Run(ctx) }()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tab := range script.Tabs {
		tab := tab
		g.Go(func() error {
			return runTab(gctx, rt, tab)
		})
	}
	err = g.Wait()

	snap := metrics.Snapshot()
	logger.Info("replay finished",
		zap.String("client_id", clientID.String()),
		zap.Int64("enqueued", snap.Enqueued),
		zap.Int64("dropped", snap.Dropped),
		zap.Int64("sent", snap.Sent),
		zap.Int64("failed", snap.Failed),
		zap.String("breaker", sender.BreakerState().String()))
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		logger.Info("serving status until interrupted", zap.String("addr", cfg.Status.Addr))
		return <-status
	}
	return nil
}

// openLocal opens the durable backlog store wrapped so that quota failures
// fall back to memory
func openLocal(ctx context.Context, cfg config.StorageConfig) (storage.Store, func(), error) {
	if cfg.Path == "" {
		mem := storage.NewMemoryStoreWithQuota(int(cfg.LocalQuotaBytes))
		return storage.NewOverflowStore(mem), func() {}, nil
	}

	db, err := storage.OpenSQLite(ctx, cfg.Path, cfg.LocalQuotaBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open backlog store: %w", err)
	}
	return storage.NewOverflowStore(db), func() { _ = db.Close() }, nil
}
