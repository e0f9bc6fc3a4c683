// Package ingest is the Ingestion Orchestrator: pipelines the RPC Client
// through the Transfer Parser into the Store, with bounded concurrency
// and backfill.
package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/web3-fighter/sidewallet-analytics/internal/obslog"
	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
	"github.com/web3-fighter/sidewallet-analytics/internal/solrpc"
	"github.com/web3-fighter/sidewallet-analytics/internal/txparser"
	"github.com/web3-fighter/sidewallet-analytics/internal/walletstore"
)

// Config parameterizes all three jobs.
type Config struct {
	BatchSize         int
	MaxConcurrent     int
	BatchDelay        time.Duration
	MaxAgeDays        int
	ContinueOnError   bool
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = time.Second
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
	return c
}

// ParseCache avoids re-parsing a signature seen twice within one job. A
// concurrent keyed map: readers take shared access, writers exclusive.
type ParseCache struct {
	m sync.Map
}

func (c *ParseCache) Load(sig string) (*txparser.ParsedTransaction, bool) {
	v, ok := c.m.Load(sig)
	if !ok {
		return nil, false
	}
	return v.(*txparser.ParsedTransaction), true
}

func (c *ParseCache) Store(sig string, p *txparser.ParsedTransaction) {
	c.m.Store(sig, p)
}

// Orchestrator drives RPC -> Parser -> Store.
type Orchestrator struct {
	rpc   solrpc.Client
	store walletstore.Store
	log   *obslog.Logger
	cfg   Config
	cache *ParseCache
}

func New(rpc solrpc.Client, store walletstore.Store, log *obslog.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{rpc: rpc, store: store, log: log, cfg: cfg.withDefaults(), cache: &ParseCache{}}
}

// IngestWallet fetches up to batch_size recent signatures for wallet,
// parses and stores each one not older than max_age_days.
func (o *Orchestrator) IngestWallet(ctx context.Context, wallet string) (sidewallet.IngestionStats, error) {
	var stats sidewallet.IngestionStats

	sigs, err := o.rpc.ListSignatures(ctx, wallet, uint64(o.cfg.BatchSize), "")
	if err != nil {
		return stats, err
	}
	stats.TotalSignatures = len(sigs)

	cutoff := time.Now().AddDate(0, 0, -o.cfg.MaxAgeDays).Unix()
	seen := make(map[string]bool, len(sigs))

	for _, sig := range sigs {
		if seen[sig.Signature] {
			stats.SkippedDuplicate++
			continue
		}
		seen[sig.Signature] = true

		if sig.BlockTime != nil && *sig.BlockTime < cutoff {
			continue
		}

		if err := o.ingestOne(ctx, sig.Signature); err != nil {
			if kind, ok := sidewallet.KindOf(err); ok && kind == sidewallet.KindParseError {
				stats.ParseFailed++
			} else {
				stats.IngestedFailed++
			}
			o.log.Warnw("ingest signature failed", "signature", sig.Signature, "err", err)
			if !o.cfg.ContinueOnError {
				return stats, err
			}
			continue
		}
		stats.IngestedOK++
	}

	return stats, nil
}

func (o *Orchestrator) ingestOne(ctx context.Context, signature string) error {
	parsed, ok := o.cache.Load(signature)
	if !ok {
		raw, err := o.rpc.GetTransaction(ctx, signature)
		if err != nil {
			return err
		}
		p, err := txparser.Parse(signature, raw)
		if err != nil {
			return err
		}
		parsed = p
		o.cache.Store(signature, parsed)

		blob, err := json.Marshal(raw)
		if err != nil {
			return sidewallet.ParseError("marshal transaction blob", err)
		}
		if err := o.store.StoreTransactionBlob(ctx, sidewallet.TransactionRecord{
			Signature:           parsed.Signature,
			Slot:                parsed.Slot,
			BlockTime:           parsed.BlockTime,
			Success:             parsed.Success,
			Fee:                 parsed.Fee,
			SOLTransfersCount:   len(parsed.SolTransfers),
			TokenTransfersCount: len(parsed.TokenTransfers),
			Blob:                blob,
		}); err != nil {
			return err
		}
	}

	for _, e := range parsed.ToEvents() {
		inserted, err := o.store.UpsertTransferEvent(ctx, e)
		if err != nil {
			return err
		}
		// A signature re-ingested in a later job (the seen set and
		// ParseCache above are both scoped to one job) must leave
		// tx_count/totals unchanged, so the edge is only ever updated the
		// first time this event is stored.
		if !inserted {
			continue
		}
		if e.From == "" || e.To == "" {
			continue
		}
		now := time.Now()
		if e.BlockTime != nil {
			now = time.Unix(*e.BlockTime, 0)
		}
		var deltaSOL float64
		var deltaToken uint64
		if e.Kind == sidewallet.TransferSOL {
			deltaSOL = e.AmountSOL
		} else {
			deltaToken = uint64(e.TokenAmount)
		}
		if err := o.store.UpsertWalletEdge(ctx, e.From, e.To, deltaSOL, deltaToken, now); err != nil {
			return err
		}
	}

	return nil
}

// IngestWallets chunks wallets into groups of max_concurrent, runs each
// chunk in parallel, sleeping batch_delay between chunks.
func (o *Orchestrator) IngestWallets(ctx context.Context, wallets []string) (sidewallet.BatchIngestionStats, error) {
	var batch sidewallet.BatchIngestionStats
	var mu sync.Mutex

	for start := 0; start < len(wallets); start += o.cfg.MaxConcurrent {
		end := start + o.cfg.MaxConcurrent
		if end > len(wallets) {
			end = len(wallets)
		}
		chunk := wallets[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, w := range chunk {
			w := w
			g.Go(func() error {
				stats, err := o.IngestWallet(gctx, w)
				mu.Lock()
				batch.Add(stats, err == nil)
				mu.Unlock()
				if err != nil {
					o.log.Warnw("ingest wallet failed", "wallet", w, "err", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return batch, err
		}

		if end < len(wallets) {
			select {
			case <-ctx.Done():
				return batch, ctx.Err()
			case <-time.After(o.cfg.BatchDelay):
			}
		}
	}

	return batch, nil
}

// BackfillFromEdges ingests up to limit wallets currently appearing in
// the edge aggregate.
func (o *Orchestrator) BackfillFromEdges(ctx context.Context, limit int) (sidewallet.BatchIngestionStats, error) {
	wallets, err := o.store.ListEdgeWallets(ctx, limit)
	if err != nil {
		return sidewallet.BatchIngestionStats{}, err
	}
	return o.IngestWallets(ctx, wallets)
}
