// Command sidewalletd exposes the ingestion and scoring core as a
// standalone operator CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/web3-fighter/sidewallet-analytics/internal/config"
	"github.com/web3-fighter/sidewallet-analytics/internal/ingest"
	"github.com/web3-fighter/sidewallet-analytics/internal/obslog"
	"github.com/web3-fighter/sidewallet-analytics/internal/scoring"
	"github.com/web3-fighter/sidewallet-analytics/internal/solrpc"
	"github.com/web3-fighter/sidewallet-analytics/internal/walletstore"
	"github.com/web3-fighter/sidewallet-analytics/internal/walletstore/pgstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sidewalletd",
		Short: "side-wallet analytics core: ingestion and scoring",
	}
	registerIngest(root)
	registerIngestBatch(root)
	registerBackfill(root)
	registerScore(root)
	return root
}

func registerIngest(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ingest <wallet>",
		Short: "ingest one wallet's recent signatures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, orch, err := bootstrap()
			if err != nil {
				return err
			}
			_ = cfg
			stats, err := orch.IngestWallet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			log.Infow("ingest complete", "wallet", args[0], "stats", stats)
			return printJSON(stats)
		},
	}
	root.AddCommand(cmd)
}

func registerIngestBatch(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ingest-batch <wallet...>",
		Short: "ingest multiple wallets with bounded concurrency",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, orch, err := bootstrap()
			if err != nil {
				return err
			}
			stats, err := orch.IngestWallets(cmd.Context(), args)
			if err != nil {
				return err
			}
			log.Infow("batch ingest complete", "stats", stats)
			return printJSON(stats)
		},
	}
	root.AddCommand(cmd)
}

func registerBackfill(root *cobra.Command) {
	var limit int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "ingest wallets currently appearing in the edge aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, orch, err := bootstrap()
			if err != nil {
				return err
			}
			stats, err := orch.BackfillFromEdges(cmd.Context(), limit)
			if err != nil {
				return err
			}
			log.Infow("backfill complete", "stats", stats)
			return printJSON(stats)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max wallets to backfill")
	root.AddCommand(cmd)
}

func registerScore(root *cobra.Command) {
	var depth int
	var threshold float64
	var limit int
	var lookbackDays int

	cmd := &cobra.Command{
		Use:   "score <wallet>",
		Short: "compute ranked side-wallet candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeFn, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if !cmd.Flags().Changed("depth") {
				depth = cfg.ScoringMaxDepth
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.ScoringThreshold
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.ScoringLimit
			}
			if !cmd.Flags().Changed("lookback-days") {
				lookbackDays = cfg.ScoringLookbackDays
			}

			engine := scoring.New(store)
			params := scoring.Params{
				MaxDepth:     uint8(depth),
				Threshold:    threshold,
				Limit:        limit,
				LookbackDays: lookbackDays,
			}
			candidates, err := engine.ComputeSideWallets(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printJSON(candidates)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 3, "max BFS depth")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.35, "score threshold")
	cmd.Flags().IntVar(&limit, "limit", 25, "max candidates returned")
	cmd.Flags().IntVar(&lookbackDays, "lookback-days", 90, "evidence lookback window in days")
	root.AddCommand(cmd)
}

func bootstrap() (*config.Config, *obslog.Logger, *ingest.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := obslog.New(cfg.LogLevel)

	store, _, err := openStore(context.Background(), cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	http := resty.New().SetBaseURL(cfg.RPCEndpoint)
	rpc := solrpc.New(http, solrpc.Config{
		Endpoint:    cfg.RPCEndpoint,
		MinInterval: cfg.RPCMinInterval,
		MaxRetries:  cfg.RPCMaxRetries,
	}, log)

	orch := ingest.New(rpc, store, log, ingest.Config{
		BatchSize:       cfg.IngestBatchSize,
		MaxConcurrent:   cfg.IngestMaxConcurrent,
		BatchDelay:      cfg.IngestBatchDelay,
		MaxAgeDays:      cfg.IngestMaxAgeDays,
		ContinueOnError: cfg.IngestContinueOnError,
	})

	return cfg, log, orch, nil
}

func openStore(ctx context.Context, cfg *config.Config) (walletstore.Store, func(), error) {
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == "memory" {
		return walletstore.NewMemoryStore(), func() {}, nil
	}
	store, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
