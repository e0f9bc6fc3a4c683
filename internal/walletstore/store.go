// Package walletstore is the Event/Edge Store: idempotent persistence of
// transfer events and wallet-edge aggregates, plus the analytical query
// surface the Scoring Engine reads from.
package walletstore

import (
	"context"
	"time"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
)

// Store is satisfied by both the in-memory backend and the PostgreSQL
// backend (pgstore.Store). Callers depend on this contract only.
type Store interface {
	// UpsertTransferEvent reports whether this call actually inserted a new
	// event (true) or found (signature, event_index) already present
	// (false), so callers can keep downstream aggregates idempotent too.
	UpsertTransferEvent(ctx context.Context, e sidewallet.TransferEvent) (bool, error)
	UpsertWalletEdge(ctx context.Context, from, to string, deltaSOL float64, deltaToken uint64, now time.Time) error
	StoreTransactionBlob(ctx context.Context, rec sidewallet.TransactionRecord) error

	SharedInboundSenders(ctx context.Context, a, b string, since time.Time, limit int) ([]sidewallet.SharedSignal, error)
	TopCounterparties(ctx context.Context, wallet string, since time.Time, limit int) ([]sidewallet.SharedSignal, error)
	TopOutboundRecipients(ctx context.Context, wallet string, since time.Time, limit int) ([]sidewallet.WalletVolumeSignal, error)
	TransfersBetween(ctx context.Context, a, b string) ([]sidewallet.TransferEvent, error)
	OutboundTransfersInWindow(ctx context.Context, wallet string, start, end time.Time) ([]sidewallet.TransferEvent, error)
	WalletConnections(ctx context.Context, wallet string) ([]sidewallet.WalletEdge, error)
	BehavioralProfile(ctx context.Context, wallet string, since time.Time) (*sidewallet.BehavioralProfile, error)
	TemporalOverlap(ctx context.Context, a, b string, since time.Time, windowMinutes int) (*sidewallet.TemporalOverlap, error)

	// ListEdgeWallets returns up to limit distinct wallet addresses
	// currently appearing as an endpoint of a wallet edge, ordered by
	// most recently active first. Used by the backfill job.
	ListEdgeWallets(ctx context.Context, limit int) ([]string, error)
}

const maxConnections = 100
