package scoring

import (
	"context"
	"time"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
)

// stubStore is a minimal walletstore.Store double driven entirely by
// fixed, per-test fixtures - no locking, no real aggregation.
type stubStore struct {
	edges          map[string][]sidewallet.WalletEdge
	funders        map[string][]sidewallet.SharedSignal
	counterparties map[string][]sidewallet.SharedSignal
	profiles       map[string]*sidewallet.BehavioralProfile
	overlaps       map[string]*sidewallet.TemporalOverlap
}

func newStubStore() *stubStore {
	return &stubStore{
		edges:          map[string][]sidewallet.WalletEdge{},
		funders:        map[string][]sidewallet.SharedSignal{},
		counterparties: map[string][]sidewallet.SharedSignal{},
		profiles:       map[string]*sidewallet.BehavioralProfile{},
		overlaps:       map[string]*sidewallet.TemporalOverlap{},
	}
}

func (s *stubStore) UpsertTransferEvent(context.Context, sidewallet.TransferEvent) (bool, error) {
	return true, nil
}
func (s *stubStore) UpsertWalletEdge(context.Context, string, string, float64, uint64, time.Time) error {
	return nil
}
func (s *stubStore) StoreTransactionBlob(context.Context, sidewallet.TransactionRecord) error {
	return nil
}

func (s *stubStore) SharedInboundSenders(_ context.Context, _, b string, _ time.Time, limit int) ([]sidewallet.SharedSignal, error) {
	out := s.funders[b]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) TopCounterparties(_ context.Context, wallet string, _ time.Time, _ int) ([]sidewallet.SharedSignal, error) {
	return s.counterparties[wallet], nil
}

func (s *stubStore) TopOutboundRecipients(context.Context, string, time.Time, int) ([]sidewallet.WalletVolumeSignal, error) {
	return nil, nil
}

func (s *stubStore) TransfersBetween(context.Context, string, string) ([]sidewallet.TransferEvent, error) {
	return nil, nil
}

func (s *stubStore) OutboundTransfersInWindow(context.Context, string, time.Time, time.Time) ([]sidewallet.TransferEvent, error) {
	return nil, nil
}

func (s *stubStore) WalletConnections(_ context.Context, wallet string) ([]sidewallet.WalletEdge, error) {
	return s.edges[wallet], nil
}

func (s *stubStore) BehavioralProfile(_ context.Context, wallet string, _ time.Time) (*sidewallet.BehavioralProfile, error) {
	p, ok := s.profiles[wallet]
	if !ok {
		return nil, sidewallet.NotFound("insufficient-data")
	}
	return p, nil
}

func (s *stubStore) TemporalOverlap(_ context.Context, a, b string, _ time.Time, _ int) (*sidewallet.TemporalOverlap, error) {
	key := a + "|" + b
	if o, ok := s.overlaps[key]; ok {
		return o, nil
	}
	return &sidewallet.TemporalOverlap{}, nil
}

func (s *stubStore) ListEdgeWallets(context.Context, int) ([]string, error) { return nil, nil }
