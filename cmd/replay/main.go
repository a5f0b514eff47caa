// Package main rebuilds ledger state from the durable event journal and
// verifies the supply invariants. It is an offline audit tool: it never
// writes, so it is safe to run against a live database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"bridged-token-ledger/internal/accesscontrol"
	"bridged-token-ledger/internal/config"
	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/engine"
	"bridged-token-ledger/internal/exemption"
	"bridged-token-ledger/internal/feepolicy"
	"bridged-token-ledger/internal/ledger"
	"bridged-token-ledger/internal/storage"
	"bridged-token-ledger/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	fromSnapshot := flag.Bool("from-snapshot", true, "Start from the latest snapshot instead of replaying from sequence 1")
	flag.Parse()

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	cfg.PostgresDSN = *postgresDSN

	ctx := context.Background()
	if err := run(ctx, cfg, *fromSnapshot, logger); err != nil {
		logger.Fatalf("replay failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, fromSnapshot bool, logger *log.Logger) error {
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	eventStore := postgres.NewEventStore(pool)
	snapshotStore := postgres.NewSnapshotStore(pool)

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if fromSnapshot {
		snap, err := snapshotStore.GetLatest(ctx)
		switch {
		case err == nil:
			if err := eng.RestoreSnapshot(snap); err != nil {
				return fmt.Errorf("restore snapshot seq=%d: %w", snap.Sequence, err)
			}
			logger.Printf("starting from snapshot at seq=%d taken %s", snap.Sequence,
				time.UnixMilli(snap.TakenAt).UTC().Format(time.RFC3339))
		case errors.Is(err, storage.ErrNotFound):
			logger.Println("no snapshot found, replaying from sequence 1")
		default:
			return err
		}
	}

	last, err := eventStore.LastSequence(ctx)
	if err != nil {
		return err
	}
	replayed := 0
	if last > eng.LastSequence() {
		records, err := eventStore.GetBySequenceRange(ctx, eng.LastSequence()+1, last)
		if err != nil {
			return err
		}
		tail := make([]domain.EventRecord, len(records))
		counts := make(map[string]int)
		for i, record := range records {
			tail[i] = *record
			counts[record.Type]++
		}
		if err := eng.Replay(tail); err != nil {
			return err
		}
		replayed = len(tail)
		for eventType, n := range counts {
			logger.Printf("  %-22s %d", eventType, n)
		}
	}

	// Replay re-runs the supply arithmetic, so reaching this point means
	// every movement applied cleanly. Re-check the closed-books invariant
	// against the final state explicitly.
	snap := eng.Snapshot(time.Now().UnixMilli())
	total, err := domain.ParseAmount(snap.TotalSupply)
	if err != nil {
		return err
	}
	sum, err := sumBalances(snap.Balances)
	if err != nil {
		return err
	}
	if sum.Cmp(total) != 0 {
		return fmt.Errorf("balance sum %s does not match total supply %s", sum, total)
	}
	if maxSupply := eng.MaxSupply(); total.Cmp(maxSupply) > 0 {
		return fmt.Errorf("total supply %s exceeds cap %s", total, maxSupply)
	}

	logger.Printf("replayed %d records, head seq=%d", replayed, eng.LastSequence())
	logger.Printf("total supply %s across %d holders: OK", snap.TotalSupply, len(snap.Balances))
	return nil
}

// buildEngine assembles the engine with a nil recorder: replay must not
// re-emit the events it is consuming.
func buildEngine(cfg config.Config) (*engine.Engine, error) {
	admin, err := domain.ParseAddress(cfg.AdminAddress)
	if err != nil {
		return nil, fmt.Errorf("admin address: %w", err)
	}
	collector, err := domain.ParseAddress(cfg.FeeCollector)
	if err != nil {
		return nil, fmt.Errorf("fee collector: %w", err)
	}
	maxSupply, err := domain.ParseAmount(cfg.MaxSupply)
	if err != nil {
		return nil, fmt.Errorf("max supply: %w", err)
	}
	threshold, err := domain.ParseAmount(cfg.InitialThreshold)
	if err != nil {
		return nil, fmt.Errorf("fee waiver threshold: %w", err)
	}

	acl, err := accesscontrol.NewRegistry(admin)
	if err != nil {
		return nil, err
	}
	supply, err := ledger.NewSupplyLedger(maxSupply)
	if err != nil {
		return nil, err
	}
	exemptions, err := exemption.NewRegistry(acl, supply, threshold)
	if err != nil {
		return nil, err
	}
	// The fee schedule never runs during replay; journal records carry the
	// amounts that were actually moved.
	policy, err := feepolicy.NewPolicy(feepolicy.Config{
		Standard:         feepolicy.Schedule{BuyNumerator: cfg.StandardBuyFee, SellNumerator: cfg.StandardSellFee},
		Antibot:          feepolicy.Schedule{BuyNumerator: cfg.AntibotBuyFee, SellNumerator: cfg.AntibotSellFee},
		Denominator:      cfg.FeeDenominator,
		MaximumNumerator: cfg.FeeMaximumNumerator,
		Direction:        feepolicy.StaticDirection(feepolicy.DirectionSell),
	})
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Options{
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
	})
}

func sumBalances(balances map[string]string) (*big.Int, error) {
	sum := new(big.Int)
	for account, raw := range balances {
		amount, err := domain.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", account, err)
		}
		sum.Add(sum, amount)
	}
	return sum, nil
}
