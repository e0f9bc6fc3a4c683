package walletstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
)

type edgeKey struct{ from, to string }

// MemoryStore is the embedded backend: a single reader-writer lock over
// three maps, per the concurrency model. No external lifetime is held
// across suspension points (there are none — every operation is
// synchronous in-process).
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]map[int32]sidewallet.TransferEvent
	edges     map[edgeKey]sidewallet.WalletEdge
	txRecords map[string]sidewallet.TransactionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]map[int32]sidewallet.TransferEvent),
		edges:     make(map[edgeKey]sidewallet.WalletEdge),
		txRecords: make(map[string]sidewallet.TransactionRecord),
	}
}

var _ Store = (*MemoryStore)(nil)

// UpsertTransferEvent reports true only the first time (signature,
// event_index) is seen; a duplicate call is a no-op that returns false so
// the orchestrator never re-applies the event's edge delta.
func (s *MemoryStore) UpsertTransferEvent(_ context.Context, e sidewallet.TransferEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := s.events[e.Signature]
	if sig == nil {
		sig = make(map[int32]sidewallet.TransferEvent)
		s.events[e.Signature] = sig
	}
	if _, exists := sig[e.EventIndex]; exists {
		return false, nil
	}
	sig[e.EventIndex] = e
	return true, nil
}

func (s *MemoryStore) UpsertWalletEdge(_ context.Context, from, to string, deltaSOL float64, deltaToken uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{from, to}
	e, ok := s.edges[k]
	if !ok {
		s.edges[k] = sidewallet.WalletEdge{
			From: from, To: to,
			TotalSOL: deltaSOL, TotalToken: deltaToken,
			TxCount:   1,
			FirstSeen: now, LastSeen: now,
		}
		return nil
	}
	e.TotalSOL += deltaSOL
	e.TotalToken += deltaToken
	e.TxCount++
	e.LastSeen = now
	s.edges[k] = e
	return nil
}

// TxRecord returns the stored transaction record for signature, for
// evidence-display tooling that reads the in-memory backend directly (the
// SQL backend serves the same need via the transactions table).
func (s *MemoryStore) TxRecord(signature string) (sidewallet.TransactionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.txRecords[signature]
	return rec, ok
}

func (s *MemoryStore) StoreTransactionBlob(_ context.Context, rec sidewallet.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txRecords[rec.Signature]; exists {
		return nil
	}
	s.txRecords[rec.Signature] = rec
	return nil
}

// allEvents returns a snapshot slice of every stored event, under a read
// lock. Query helpers below build on this rather than on direct map
// access so the lock is never held across a caller's processing.
func (s *MemoryStore) allEvents() []sidewallet.TransferEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sidewallet.TransferEvent
	for _, bySig := range s.events {
		for _, e := range bySig {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStore) allEdges() []sidewallet.WalletEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sidewallet.WalletEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

func sinceOK(bt *int64, since time.Time) bool {
	if since.IsZero() {
		return true
	}
	if bt == nil {
		return true
	}
	return *bt >= since.Unix()
}

func (s *MemoryStore) SharedInboundSenders(_ context.Context, a, b string, since time.Time, limit int) ([]sidewallet.SharedSignal, error) {
	type agg struct {
		count    uint64
		lastSeen uint64
	}
	bySender := make(map[string]*agg)
	for _, e := range s.allEvents() {
		if !sinceOK(e.BlockTime, since) {
			continue
		}
		if e.From == "" {
			continue
		}
		if e.To != a && e.To != b {
			continue
		}
		a0 := bySender[e.From]
		if a0 == nil {
			a0 = &agg{}
			bySender[e.From] = a0
		}
		a0.count++
		if e.BlockTime != nil && uint64(*e.BlockTime) > a0.lastSeen {
			a0.lastSeen = uint64(*e.BlockTime)
		}
	}

	// require the sender to have hit BOTH a and b
	hitA := make(map[string]bool)
	hitB := make(map[string]bool)
	for _, e := range s.allEvents() {
		if !sinceOK(e.BlockTime, since) || e.From == "" {
			continue
		}
		if e.To == a {
			hitA[e.From] = true
		}
		if e.To == b {
			hitB[e.From] = true
		}
	}

	var out []sidewallet.SharedSignal
	for sender, agg := range bySender {
		if hitA[sender] && hitB[sender] {
			out = append(out, sidewallet.SharedSignal{Wallet: sender, Count: agg.count, LastSeenEpoch: agg.lastSeen})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].LastSeenEpoch > out[j].LastSeenEpoch
	})
	return clampSignals(out, limit), nil
}

func (s *MemoryStore) TopCounterparties(_ context.Context, wallet string, since time.Time, limit int) ([]sidewallet.SharedSignal, error) {
	agg := make(map[string]*sidewallet.SharedSignal)
	for _, e := range s.allEvents() {
		if !sinceOK(e.BlockTime, since) {
			continue
		}
		var cp string
		switch wallet {
		case e.From:
			cp = e.To
		case e.To:
			cp = e.From
		default:
			continue
		}
		if cp == "" {
			continue
		}
		sig := agg[cp]
		if sig == nil {
			sig = &sidewallet.SharedSignal{Wallet: cp}
			agg[cp] = sig
		}
		sig.Count++
		if e.BlockTime != nil && uint64(*e.BlockTime) > sig.LastSeenEpoch {
			sig.LastSeenEpoch = uint64(*e.BlockTime)
		}
	}
	out := make([]sidewallet.SharedSignal, 0, len(agg))
	for _, sig := range agg {
		out = append(out, *sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return clampSignals(out, limit), nil
}

func (s *MemoryStore) TopOutboundRecipients(_ context.Context, wallet string, since time.Time, limit int) ([]sidewallet.WalletVolumeSignal, error) {
	agg := make(map[string]*sidewallet.WalletVolumeSignal)
	for _, e := range s.allEvents() {
		if e.From != wallet || !sinceOK(e.BlockTime, since) {
			continue
		}
		sig := agg[e.To]
		if sig == nil {
			sig = &sidewallet.WalletVolumeSignal{Wallet: e.To}
			agg[e.To] = sig
		}
		sig.Count++
		if e.Kind == sidewallet.TransferSOL {
			sig.TotalSOL += e.AmountSOL
		} else {
			sig.TotalTokenUI += e.TokenAmountUI
		}
		if e.BlockTime != nil && uint64(*e.BlockTime) > sig.LastSeenEpoch {
			sig.LastSeenEpoch = uint64(*e.BlockTime)
		}
	}
	out := make([]sidewallet.WalletVolumeSignal, 0, len(agg))
	for _, sig := range agg {
		out = append(out, *sig)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSOL != out[j].TotalSOL {
			return out[i].TotalSOL > out[j].TotalSOL
		}
		if out[i].TotalTokenUI != out[j].TotalTokenUI {
			return out[i].TotalTokenUI > out[j].TotalTokenUI
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TransfersBetween(_ context.Context, a, b string) ([]sidewallet.TransferEvent, error) {
	var out []sidewallet.TransferEvent
	for _, e := range s.allEvents() {
		if e.From == a && e.To == b {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return blockTimeOf(out[i]) > blockTimeOf(out[j]) })
	return out, nil
}

func (s *MemoryStore) OutboundTransfersInWindow(_ context.Context, wallet string, start, end time.Time) ([]sidewallet.TransferEvent, error) {
	var out []sidewallet.TransferEvent
	for _, e := range s.allEvents() {
		if e.From != wallet || e.BlockTime == nil {
			continue
		}
		t := *e.BlockTime
		if t >= start.Unix() && t <= end.Unix() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return blockTimeOf(out[i]) < blockTimeOf(out[j]) })
	return out, nil
}

func (s *MemoryStore) WalletConnections(_ context.Context, wallet string) ([]sidewallet.WalletEdge, error) {
	var out []sidewallet.WalletEdge
	for _, e := range s.allEdges() {
		if e.From == wallet || e.To == wallet {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxCount > out[j].TxCount })
	if len(out) > maxConnections {
		out = out[:maxConnections]
	}
	return out, nil
}

func (s *MemoryStore) BehavioralProfile(_ context.Context, wallet string, since time.Time) (*sidewallet.BehavioralProfile, error) {
	var amounts []float64
	var times []int64
	hours := make(map[int]int)

	for _, e := range s.allEvents() {
		if e.Kind != sidewallet.TransferSOL || e.AmountSOL <= 0 {
			continue
		}
		if e.From != wallet && e.To != wallet {
			continue
		}
		if !sinceOK(e.BlockTime, since) {
			continue
		}
		amounts = append(amounts, e.AmountSOL)
		if e.BlockTime != nil {
			t := *e.BlockTime
			times = append(times, t)
			hours[int(time.Unix(t, 0).UTC().Hour())]++
		}
	}

	if len(amounts) == 0 {
		return nil, sidewallet.NotFound("insufficient-data")
	}

	sort.Float64s(amounts)
	sum := 0.0
	for _, a := range amounts {
		sum += a
	}
	avg := sum / float64(len(amounts))
	median := medianOf(amounts)

	profile := &sidewallet.BehavioralProfile{
		Wallet:         wallet,
		TotalTransfers: uint64(len(amounts)),
		AvgSOLPerTx:    avg,
		MedianSOLPerTx: median,
	}

	if len(times) > 0 {
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
		first, last := times[0], times[len(times)-1]
		profile.FirstTxEpoch = first
		profile.LastTxEpoch = last
		days := (last - first) / 86400
		if days < 1 {
			days = 1
		}
		profile.TotalDaysActive = uint32(days)
		profile.AvgTxPerDay = float64(profile.TotalTransfers) / float64(profile.TotalDaysActive)

		bestHour, bestCount := -1, -1
		for h := 0; h < 24; h++ {
			if c, ok := hours[h]; ok && c > bestCount {
				bestCount = c
				bestHour = h
			}
		}
		if bestHour >= 0 {
			h := int32(bestHour)
			profile.MostActiveHourUTC = &h
		}
	}

	return profile, nil
}

func (s *MemoryStore) TemporalOverlap(_ context.Context, a, b string, since time.Time, windowMinutes int) (*sidewallet.TemporalOverlap, error) {
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	bucketSize := int64(windowMinutes * 60)

	bucketsA := make(map[int64]bool)
	bucketsB := make(map[int64]bool)
	slotsA := make(map[uint64]map[string]bool)
	slotsB := make(map[uint64]map[string]bool)

	for _, e := range s.allEvents() {
		if !sinceOK(e.BlockTime, since) {
			continue
		}
		involvesA := e.From == a || e.To == a
		involvesB := e.From == b || e.To == b
		if involvesA && e.BlockTime != nil {
			bucketsA[*e.BlockTime/bucketSize] = true
		}
		if involvesB && e.BlockTime != nil {
			bucketsB[*e.BlockTime/bucketSize] = true
		}
		if involvesA {
			if slotsA[e.Slot] == nil {
				slotsA[e.Slot] = make(map[string]bool)
			}
			slotsA[e.Slot][e.Signature] = true
		}
		if involvesB {
			if slotsB[e.Slot] == nil {
				slotsB[e.Slot] = make(map[string]bool)
			}
			slotsB[e.Slot][e.Signature] = true
		}
	}

	overlap := 0
	for bucket := range bucketsA {
		if bucketsB[bucket] {
			overlap++
		}
	}
	total := len(bucketsA) + len(bucketsB)
	ratio := 0.0
	if total > 0 {
		ratio = float64(overlap) / float64(total)
	}

	// sameBlock counts distinct A-signatures that share a slot with at
	// least one distinct B-signature, not every co-slot (sigA, sigB) pair
	// — a single A-signature sharing a slot with several B-signatures
	// still only counts once.
	sameBlock := 0
	for slot, sigsA := range slotsA {
		sigsB, ok := slotsB[slot]
		if !ok {
			continue
		}
		for sigA := range sigsA {
			for sigB := range sigsB {
				if sigA != sigB {
					sameBlock++
					break
				}
			}
		}
	}

	return &sidewallet.TemporalOverlap{
		OverlappingWindows: uint32(overlap),
		TotalWindows:       uint32(total),
		OverlapRatio:       ratio,
		SameBlockCount:     uint32(sameBlock),
	}, nil
}

func (s *MemoryStore) ListEdgeWallets(_ context.Context, limit int) ([]string, error) {
	edges := s.allEdges()
	sort.Slice(edges, func(i, j int) bool { return edges[i].LastSeen.After(edges[j].LastSeen) })
	seen := make(map[string]bool)
	var out []string
	for _, e := range edges {
		for _, w := range []string{e.From, e.To} {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
				if limit > 0 && len(out) >= limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func blockTimeOf(e sidewallet.TransferEvent) int64 {
	if e.BlockTime == nil {
		return 0
	}
	return *e.BlockTime
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func clampSignals(in []sidewallet.SharedSignal, limit int) []sidewallet.SharedSignal {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
