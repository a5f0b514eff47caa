// Package main runs the bridged token ledger service: the transfer engine,
// the HTTP API with the WebSocket event stream, durable event and snapshot
// stores, the optional ClickHouse analytics sink, and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bridged-token-ledger/internal/accesscontrol"
	"bridged-token-ledger/internal/api"
	"bridged-token-ledger/internal/config"
	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/engine"
	"bridged-token-ledger/internal/events"
	"bridged-token-ledger/internal/exemption"
	"bridged-token-ledger/internal/feepolicy"
	"bridged-token-ledger/internal/ledger"
	"bridged-token-ledger/internal/observability"
	"bridged-token-ledger/internal/storage"
	chstore "bridged-token-ledger/internal/storage/clickhouse"
	"bridged-token-ledger/internal/storage/instrumented"
	"bridged-token-ledger/internal/storage/memory"
	"bridged-token-ledger/internal/storage/migrations"
	pgstore "bridged-token-ledger/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// Flags override the environment for the operational knobs.
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	cfg.HTTPAddr = *httpAddr
	cfg.MetricsAddr = *metricsAddr
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.UseMemory = *useMemory

	if cfg.AdminAddress == "" {
		logger.Fatal("LEDGER_ADMIN_ADDRESS is required")
	}
	if cfg.FeeCollector == "" {
		logger.Fatal("LEDGER_FEE_COLLECTOR is required")
	}
	if cfg.MaxSupply == "" {
		logger.Fatal("LEDGER_MAX_SUPPLY is required")
	}
	if cfg.InitialThreshold == "" {
		logger.Fatal("LEDGER_FEE_WAIVER_THRESHOLD is required")
	}
	if !cfg.UseMemory && cfg.PostgresDSN == "" {
		logger.Fatal("--postgres-dsn is required unless --use-memory is set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	admin, err := domain.ParseAddress(cfg.AdminAddress)
	if err != nil {
		return err
	}
	collector, err := domain.ParseAddress(cfg.FeeCollector)
	if err != nil {
		return err
	}
	maxSupply, err := domain.ParseAmount(cfg.MaxSupply)
	if err != nil {
		return err
	}
	threshold, err := domain.ParseAmount(cfg.InitialThreshold)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics("")

	// Stores, wrapped with query metrics.
	var (
		eventStore    storage.EventStore
		snapshotStore storage.SnapshotStore
	)
	if cfg.UseMemory {
		eventStore = instrumented.NewEventStore(memory.NewEventStore(), "memory_events", metrics)
		snapshotStore = instrumented.NewSnapshotStore(memory.NewSnapshotStore(), "memory_snapshots", metrics)
		logger.Println("using in-memory storage")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		eventStore = instrumented.NewEventStore(pgstore.NewEventStore(pool), "postgres_events", metrics)
		snapshotStore = instrumented.NewSnapshotStore(pgstore.NewSnapshotStore(pool), "postgres_snapshots", metrics)
		logger.Println("using postgres storage")
	}

	// Event pipeline: in-memory journal, durable store, WebSocket stream,
	// optional ClickHouse analytics sink.
	journal := events.NewJournal()
	hub := events.NewHub(nil, logger)
	defer hub.Close()

	sinks := []events.Recorder{journal, events.NewStoreRecorder(eventStore), hub}

	var chSink *chstore.Sink
	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return err
		}
		chSink = chstore.NewSink(chstore.NewEventAnalyticsStore(conn), 0)
		sinks = append(sinks, chSink)
		logger.Println("clickhouse analytics sink enabled")
	}
	recorder := events.NewMulti(logger, sinks...)

	// Engine.
	acl, err := accesscontrol.NewRegistry(admin)
	if err != nil {
		return err
	}
	supply, err := ledger.NewSupplyLedger(maxSupply)
	if err != nil {
		return err
	}
	exemptions, err := exemption.NewRegistry(acl, supply, threshold)
	if err != nil {
		return err
	}
	policy, err := buildFeePolicy(cfg)
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.Options{
		Token: domain.TokenInfo{
			Name:     cfg.TokenName,
			Symbol:   cfg.TokenSymbol,
			Decimals: cfg.TokenDecimals,
		},
		AccessControl: acl,
		Ledger:        supply,
		Exemptions:    exemptions,
		FeePolicy:     policy,
		FeeCollector:  collector,
		Recorder:      recorder,
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	if err := recoverState(ctx, eng, snapshotStore, eventStore, logger); err != nil {
		return err
	}
	if err := grantGenesisRoles(ctx, eng, admin, cfg); err != nil {
		return err
	}

	// HTTP API.
	server := api.NewServer(api.Options{
		Engine:     eng,
		EventStore: eventStore,
		Hub:        hub,
		Metrics:    metrics,
		Logger:     log.New(os.Stdout, "[api] ", log.LstdFlags),
	})
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: observability.Handler()}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("API listening on %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Background loops: periodic snapshots, sink flushes, gauge refresh.
	go snapshotLoop(ctx, eng, snapshotStore, cfg.SnapshotInterval, logger)
	go maintenanceLoop(ctx, journal, hub, chSink, metrics, cfg.FlushInterval, logger)

	select {
	case <-ctx.Done():
		logger.Println("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Shutdown(shutdownCtx)

	if chSink != nil {
		if err := chSink.Flush(shutdownCtx); err != nil {
			logger.Printf("final clickhouse flush: %v", err)
		}
	}
	// Final snapshot so a restart replays as little as possible.
	if err := saveSnapshot(shutdownCtx, eng, snapshotStore); err != nil {
		logger.Printf("final snapshot: %v", err)
	}
	return nil
}

// buildFeePolicy assembles the fee policy from configuration. The antibot
// window, when enabled, runs from service launch.
func buildFeePolicy(cfg config.Config) (*feepolicy.Policy, error) {
	fallback := feepolicy.DirectionSell
	if cfg.DefaultDirection == "buy" {
		fallback = feepolicy.DirectionBuy
	}
	direction := feepolicy.StaticDirection(fallback)
	if len(cfg.VenueAddresses) > 0 {
		venues := make(map[domain.Address]struct{}, len(cfg.VenueAddresses))
		for _, raw := range cfg.VenueAddresses {
			venue, err := domain.ParseAddress(raw)
			if err != nil {
				return nil, err
			}
			venues[venue] = struct{}{}
		}
		direction = feepolicy.DirectionByCounterparty(venues, fallback)
	}

	var antibotEnd int64
	if cfg.AntibotWindow > 0 {
		antibotEnd = time.Now().Add(cfg.AntibotWindow).UnixMilli()
	}

	return feepolicy.NewPolicy(feepolicy.Config{
		Standard: feepolicy.Schedule{
			BuyNumerator:  cfg.StandardBuyFee,
			SellNumerator: cfg.StandardSellFee,
		},
		Antibot: feepolicy.Schedule{
			BuyNumerator:  cfg.AntibotBuyFee,
			SellNumerator: cfg.AntibotSellFee,
		},
		Denominator:      cfg.FeeDenominator,
		MaximumNumerator: cfg.FeeMaximumNumerator,
		AntibotEndTime:   antibotEnd,
		Direction:        direction,
	})
}

// recoverState loads the latest snapshot and replays the journal tail.
func recoverState(ctx context.Context, eng *engine.Engine, snapshots storage.SnapshotStore, eventStore storage.EventStore, logger *log.Logger) error {
	snap, err := snapshots.GetLatest(ctx)
	switch {
	case err == nil:
		if err := eng.RestoreSnapshot(snap); err != nil {
			return err
		}
		logger.Printf("restored snapshot at seq=%d", snap.Sequence)
	case errors.Is(err, storage.ErrNotFound):
		// Fresh ledger.
	default:
		return err
	}

	last, err := eventStore.LastSequence(ctx)
	if err != nil {
		return err
	}
	if last <= eng.LastSequence() {
		return nil
	}
	records, err := eventStore.GetBySequenceRange(ctx, eng.LastSequence()+1, last)
	if err != nil {
		return err
	}
	tail := make([]domain.EventRecord, len(records))
	for i, record := range records {
		tail[i] = *record
	}
	if err := eng.Replay(tail); err != nil {
		return err
	}
	logger.Printf("replayed %d journal records, now at seq=%d", len(tail), eng.LastSequence())
	return nil
}

// grantGenesisRoles grants the configured bridge and operator roles. Grants
// are idempotent, so re-running after a restart is safe.
func grantGenesisRoles(ctx context.Context, eng *engine.Engine, admin domain.Address, cfg config.Config) error {
	now := time.Now().UnixMilli()
	grant := func(role domain.Role, raws []string) error {
		for _, raw := range raws {
			account, err := domain.ParseAddress(raw)
			if err != nil {
				return err
			}
			if err := eng.GrantRole(ctx, admin, role, account, now); err != nil {
				return err
			}
		}
		return nil
	}
	if err := grant(domain.RoleMinter, cfg.Minters); err != nil {
		return err
	}
	if err := grant(domain.RoleBurner, cfg.Burners); err != nil {
		return err
	}
	return grant(domain.RoleWhitelistManager, cfg.WhitelistManagers)
}

// snapshotLoop periodically persists engine state.
func snapshotLoop(ctx context.Context, eng *engine.Engine, snapshots storage.SnapshotStore, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saveSnapshot(ctx, eng, snapshots); err != nil {
				logger.Printf("snapshot: %v", err)
			}
		}
	}
}

// saveSnapshot persists the current state; an unchanged journal position is
// not an error.
func saveSnapshot(ctx context.Context, eng *engine.Engine, snapshots storage.SnapshotStore) error {
	snap := eng.Snapshot(time.Now().UnixMilli())
	err := snapshots.Save(ctx, snap)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// maintenanceLoop flushes the analytics sink and refreshes gauges.
func maintenanceLoop(ctx context.Context, journal *events.Journal, hub *events.Hub, sink *chstore.Sink, metrics *observability.Metrics, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.JournalSize.Set(float64(journal.Len()))
			metrics.StreamClients.Set(float64(hub.ClientCount()))
			if sink != nil {
				if err := sink.Flush(ctx); err != nil {
					logger.Printf("clickhouse flush: %v", err)
					metrics.EventSinkErrors.WithLabelValues("clickhouse").Inc()
				}
			}
		}
	}
}
