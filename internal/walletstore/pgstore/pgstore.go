// Package pgstore is the PostgreSQL-backed Event/Edge Store, satisfying
// walletstore.Store over the schema of spec §6.
package pgstore

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
	"github.com/web3-fighter/sidewallet-analytics/internal/walletstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	signature text PRIMARY KEY,
	slot bigint NOT NULL,
	block_time bigint,
	success boolean NOT NULL,
	fee bigint NOT NULL,
	sol_transfers_count int NOT NULL,
	token_transfers_count int NOT NULL,
	data jsonb,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_slot ON transactions(slot);
CREATE INDEX IF NOT EXISTS idx_transactions_block_time ON transactions(block_time);

CREATE TABLE IF NOT EXISTS wallet_relationships (
	id serial PRIMARY KEY,
	from_wallet text NOT NULL,
	to_wallet text NOT NULL,
	sol_amount double precision NOT NULL DEFAULT 0,
	token_amount bigint NOT NULL DEFAULT 0,
	transaction_count int NOT NULL DEFAULT 0,
	first_seen timestamptz NOT NULL,
	last_seen timestamptz NOT NULL,
	UNIQUE(from_wallet, to_wallet)
);
CREATE INDEX IF NOT EXISTS idx_wallet_rel_from ON wallet_relationships(from_wallet);
CREATE INDEX IF NOT EXISTS idx_wallet_rel_to ON wallet_relationships(to_wallet);
CREATE INDEX IF NOT EXISTS idx_wallet_rel_last_seen ON wallet_relationships(last_seen DESC);

CREATE TABLE IF NOT EXISTS transfer_events (
	id serial PRIMARY KEY,
	signature text NOT NULL,
	event_index int NOT NULL,
	slot bigint NOT NULL,
	block_time bigint,
	kind text NOT NULL,
	instruction_index int NOT NULL,
	transfer_type text NOT NULL,
	from_wallet text,
	to_wallet text,
	mint text,
	amount_lamports bigint,
	amount_sol double precision,
	token_amount bigint,
	token_decimals int,
	token_amount_ui double precision,
	from_token_account text,
	to_token_account text,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE(signature, event_index)
);
CREATE INDEX IF NOT EXISTS idx_transfer_events_signature ON transfer_events(signature);
CREATE INDEX IF NOT EXISTS idx_transfer_events_from ON transfer_events(from_wallet);
CREATE INDEX IF NOT EXISTS idx_transfer_events_to ON transfer_events(to_wallet);
CREATE INDEX IF NOT EXISTS idx_transfer_events_block_time ON transfer_events(block_time);
`

// Store is the pgx-backed implementation of walletstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ walletstore.Store = (*Store)(nil)

// Open connects to connString and ensures the schema exists.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, sidewallet.StorageError("connect", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, sidewallet.StorageError("migrate", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// UpsertTransferEvent reports whether the row was actually inserted (true)
// or the ON CONFLICT DO NOTHING path was taken (false), via the command
// tag's affected-row count, so the orchestrator can skip the edge update
// on a re-ingested signature.
func (s *Store) UpsertTransferEvent(ctx context.Context, e sidewallet.TransferEvent) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO transfer_events (
			signature, event_index, slot, block_time, kind, instruction_index,
			transfer_type, from_wallet, to_wallet, mint, amount_lamports,
			amount_sol, token_amount, token_decimals, token_amount_ui,
			from_token_account, to_token_account
		) VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8,$9,NULL,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (signature, event_index) DO NOTHING
	`,
		e.Signature, e.EventIndex, e.Slot, e.BlockTime, string(e.Kind), e.TransferType,
		nullable(e.From), nullable(e.To), nullable(e.Mint), e.AmountSOL,
		e.TokenAmount, e.TokenDecimals, e.TokenAmountUI,
		nullable(e.FromTokenAccount), nullable(e.ToTokenAccount),
	)
	if err != nil {
		return false, sidewallet.StorageError("upsert_transfer_event", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpsertWalletEdge(ctx context.Context, from, to string, deltaSOL float64, deltaToken uint64, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallet_relationships (from_wallet, to_wallet, sol_amount, token_amount, transaction_count, first_seen, last_seen)
		VALUES ($1,$2,$3,$4,1,$5,$5)
		ON CONFLICT (from_wallet, to_wallet) DO UPDATE SET
			sol_amount = wallet_relationships.sol_amount + EXCLUDED.sol_amount,
			token_amount = wallet_relationships.token_amount + EXCLUDED.token_amount,
			transaction_count = wallet_relationships.transaction_count + 1,
			last_seen = EXCLUDED.last_seen
	`, from, to, deltaSOL, deltaToken, now)
	if err != nil {
		return sidewallet.StorageError("upsert_wallet_edge", err)
	}
	return nil
}

func (s *Store) StoreTransactionBlob(ctx context.Context, rec sidewallet.TransactionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (signature, slot, block_time, success, fee, sol_transfers_count, token_transfers_count, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO NOTHING
	`, rec.Signature, rec.Slot, rec.BlockTime, rec.Success, rec.Fee,
		rec.SOLTransfersCount, rec.TokenTransfersCount, rec.Blob)
	if err != nil {
		return sidewallet.StorageError("store_transaction_blob", err)
	}
	return nil
}

func (s *Store) SharedInboundSenders(ctx context.Context, a, b string, since time.Time, limit int) ([]sidewallet.SharedSignal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT from_wallet, SUM(c) AS cnt, MAX(ls) AS last_seen FROM (
			SELECT from_wallet, COUNT(*) AS c, MAX(block_time) AS ls FROM transfer_events
			WHERE to_wallet = $1 AND from_wallet IS NOT NULL AND block_time >= $3
			GROUP BY from_wallet
			UNION ALL
			SELECT from_wallet, COUNT(*) AS c, MAX(block_time) AS ls FROM transfer_events
			WHERE to_wallet = $2 AND from_wallet IS NOT NULL AND block_time >= $3
			GROUP BY from_wallet
		) t
		GROUP BY from_wallet
		HAVING COUNT(*) = 2
		ORDER BY cnt DESC, last_seen DESC
		LIMIT $4
	`, a, b, since.Unix(), limitOrAll(limit))
	if err != nil {
		return nil, sidewallet.StorageError("shared_inbound_senders", err)
	}
	defer rows.Close()

	var out []sidewallet.SharedSignal
	for rows.Next() {
		var sig sidewallet.SharedSignal
		var last *int64
		if err := rows.Scan(&sig.Wallet, &sig.Count, &last); err != nil {
			return nil, sidewallet.StorageError("shared_inbound_senders scan", err)
		}
		if last != nil {
			sig.LastSeenEpoch = uint64(*last)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) TopCounterparties(ctx context.Context, wallet string, since time.Time, limit int) ([]sidewallet.SharedSignal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cp, SUM(c), MAX(ls) FROM (
			SELECT to_wallet AS cp, COUNT(*) AS c, MAX(block_time) AS ls FROM transfer_events
			WHERE from_wallet = $1 AND to_wallet IS NOT NULL AND block_time >= $2 GROUP BY to_wallet
			UNION ALL
			SELECT from_wallet AS cp, COUNT(*) AS c, MAX(block_time) AS ls FROM transfer_events
			WHERE to_wallet = $1 AND from_wallet IS NOT NULL AND block_time >= $2 GROUP BY from_wallet
		) t
		GROUP BY cp
		ORDER BY SUM(c) DESC
		LIMIT $3
	`, wallet, since.Unix(), limitOrAll(limit))
	if err != nil {
		return nil, sidewallet.StorageError("top_counterparties", err)
	}
	defer rows.Close()

	var out []sidewallet.SharedSignal
	for rows.Next() {
		var sig sidewallet.SharedSignal
		var last *int64
		if err := rows.Scan(&sig.Wallet, &sig.Count, &last); err != nil {
			return nil, sidewallet.StorageError("top_counterparties scan", err)
		}
		if last != nil {
			sig.LastSeenEpoch = uint64(*last)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) TopOutboundRecipients(ctx context.Context, wallet string, since time.Time, limit int) ([]sidewallet.WalletVolumeSignal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_wallet, COUNT(*),
			COALESCE(SUM(amount_sol) FILTER (WHERE kind='sol'), 0),
			COALESCE(SUM(token_amount_ui) FILTER (WHERE kind='token'), 0),
			MAX(block_time)
		FROM transfer_events
		WHERE from_wallet = $1 AND to_wallet IS NOT NULL AND block_time >= $2
		GROUP BY to_wallet
		ORDER BY 3 DESC, 4 DESC, 2 DESC
		LIMIT $3
	`, wallet, since.Unix(), limitOrAll(limit))
	if err != nil {
		return nil, sidewallet.StorageError("top_outbound_recipients", err)
	}
	defer rows.Close()

	var out []sidewallet.WalletVolumeSignal
	for rows.Next() {
		var sig sidewallet.WalletVolumeSignal
		var last *int64
		if err := rows.Scan(&sig.Wallet, &sig.Count, &sig.TotalSOL, &sig.TotalTokenUI, &last); err != nil {
			return nil, sidewallet.StorageError("top_outbound_recipients scan", err)
		}
		if last != nil {
			sig.LastSeenEpoch = uint64(*last)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) TransfersBetween(ctx context.Context, a, b string) ([]sidewallet.TransferEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT signature, event_index, slot, block_time, kind, transfer_type,
			from_wallet, to_wallet, mint, amount_sol, token_amount, token_decimals,
			token_amount_ui, from_token_account, to_token_account
		FROM transfer_events
		WHERE from_wallet = $1 AND to_wallet = $2
		ORDER BY block_time DESC NULLS LAST
	`, a, b)
	if err != nil {
		return nil, sidewallet.StorageError("transfers_between", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) OutboundTransfersInWindow(ctx context.Context, wallet string, start, end time.Time) ([]sidewallet.TransferEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT signature, event_index, slot, block_time, kind, transfer_type,
			from_wallet, to_wallet, mint, amount_sol, token_amount, token_decimals,
			token_amount_ui, from_token_account, to_token_account
		FROM transfer_events
		WHERE from_wallet = $1 AND block_time >= $2 AND block_time <= $3
		ORDER BY block_time ASC
	`, wallet, start.Unix(), end.Unix())
	if err != nil {
		return nil, sidewallet.StorageError("outbound_transfers_in_window", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) WalletConnections(ctx context.Context, wallet string) ([]sidewallet.WalletEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT from_wallet, to_wallet, sol_amount, token_amount, transaction_count, first_seen, last_seen
		FROM wallet_relationships
		WHERE from_wallet = $1 OR to_wallet = $1
		ORDER BY transaction_count DESC
		LIMIT 100
	`, wallet)
	if err != nil {
		return nil, sidewallet.StorageError("wallet_connections", err)
	}
	defer rows.Close()

	var out []sidewallet.WalletEdge
	for rows.Next() {
		var e sidewallet.WalletEdge
		var tokenAmount int64
		if err := rows.Scan(&e.From, &e.To, &e.TotalSOL, &tokenAmount, &e.TxCount, &e.FirstSeen, &e.LastSeen); err != nil {
			return nil, sidewallet.StorageError("wallet_connections scan", err)
		}
		e.TotalToken = uint64(tokenAmount)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) BehavioralProfile(ctx context.Context, wallet string, since time.Time) (*sidewallet.BehavioralProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT amount_sol, block_time FROM transfer_events
		WHERE kind = 'sol' AND amount_sol > 0 AND (from_wallet = $1 OR to_wallet = $1) AND block_time >= $2
	`, wallet, since.Unix())
	if err != nil {
		return nil, sidewallet.StorageError("behavioral_profile", err)
	}
	defer rows.Close()

	var amounts []float64
	var times []int64
	hours := make(map[int]int)
	for rows.Next() {
		var amt float64
		var bt *int64
		if err := rows.Scan(&amt, &bt); err != nil {
			return nil, sidewallet.StorageError("behavioral_profile scan", err)
		}
		amounts = append(amounts, amt)
		if bt != nil {
			times = append(times, *bt)
			hours[int(time.Unix(*bt, 0).UTC().Hour())]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, sidewallet.StorageError("behavioral_profile rows", err)
	}
	if len(amounts) == 0 {
		return nil, sidewallet.NotFound("insufficient-data")
	}

	sortFloat64s(amounts)
	sum := 0.0
	for _, a := range amounts {
		sum += a
	}
	profile := &sidewallet.BehavioralProfile{
		Wallet:         wallet,
		TotalTransfers: uint64(len(amounts)),
		AvgSOLPerTx:    sum / float64(len(amounts)),
		MedianSOLPerTx: medianOf(amounts),
	}
	if len(times) > 0 {
		sortInt64s(times)
		first, last := times[0], times[len(times)-1]
		profile.FirstTxEpoch, profile.LastTxEpoch = first, last
		days := (last - first) / 86400
		if days < 1 {
			days = 1
		}
		profile.TotalDaysActive = uint32(days)
		profile.AvgTxPerDay = float64(profile.TotalTransfers) / float64(profile.TotalDaysActive)
		bestHour, bestCount := -1, -1
		for h := 0; h < 24; h++ {
			if c, ok := hours[h]; ok && c > bestCount {
				bestCount, bestHour = c, h
			}
		}
		if bestHour >= 0 {
			h := int32(bestHour)
			profile.MostActiveHourUTC = &h
		}
	}
	return profile, nil
}

func (s *Store) TemporalOverlap(ctx context.Context, a, b string, since time.Time, windowMinutes int) (*sidewallet.TemporalOverlap, error) {
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	bucketSize := int64(windowMinutes * 60)

	rows, err := s.pool.Query(ctx, `
		SELECT block_time, slot, signature, (from_wallet = $1 OR to_wallet = $1) AS is_a, (from_wallet = $2 OR to_wallet = $2) AS is_b
		FROM transfer_events
		WHERE (from_wallet = $1 OR to_wallet = $1 OR from_wallet = $2 OR to_wallet = $2) AND block_time >= $3
	`, a, b, since.Unix())
	if err != nil {
		return nil, sidewallet.StorageError("temporal_overlap", err)
	}
	defer rows.Close()

	bucketsA := make(map[int64]bool)
	bucketsB := make(map[int64]bool)
	slotsA := make(map[uint64]map[string]bool)
	slotsB := make(map[uint64]map[string]bool)

	for rows.Next() {
		var bt *int64
		var slot int64
		var sig string
		var isA, isB bool
		if err := rows.Scan(&bt, &slot, &sig, &isA, &isB); err != nil {
			return nil, sidewallet.StorageError("temporal_overlap scan", err)
		}
		if isA {
			if bt != nil {
				bucketsA[*bt/bucketSize] = true
			}
			if slotsA[uint64(slot)] == nil {
				slotsA[uint64(slot)] = make(map[string]bool)
			}
			slotsA[uint64(slot)][sig] = true
		}
		if isB {
			if bt != nil {
				bucketsB[*bt/bucketSize] = true
			}
			if slotsB[uint64(slot)] == nil {
				slotsB[uint64(slot)] = make(map[string]bool)
			}
			slotsB[uint64(slot)][sig] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, sidewallet.StorageError("temporal_overlap rows", err)
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

func (s *Store) ListEdgeWallets(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet FROM (
			SELECT from_wallet AS wallet, MAX(last_seen) AS ls FROM wallet_relationships GROUP BY from_wallet
			UNION ALL
			SELECT to_wallet AS wallet, MAX(last_seen) AS ls FROM wallet_relationships GROUP BY to_wallet
		) t
		GROUP BY wallet
		ORDER BY MAX(ls) DESC
		LIMIT $1
	`, limitOrAll(limit))
	if err != nil {
		return nil, sidewallet.StorageError("list_edge_wallets", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, sidewallet.StorageError("list_edge_wallets scan", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1_000_000
	}
	return limit
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows rowsScanner) ([]sidewallet.TransferEvent, error) {
	var out []sidewallet.TransferEvent
	for rows.Next() {
		var e sidewallet.TransferEvent
		var kind string
		var from, to, mint, fromAcc, toAcc *string
		if err := rows.Scan(&e.Signature, &e.EventIndex, &e.Slot, &e.BlockTime, &kind, &e.TransferType,
			&from, &to, &mint, &e.AmountSOL, &e.TokenAmount, &e.TokenDecimals, &e.TokenAmountUI, &fromAcc, &toAcc); err != nil {
			return nil, sidewallet.StorageError("scan events", err)
		}
		e.Kind = sidewallet.TransferKind(kind)
		if from != nil {
			e.From = *from
		}
		if to != nil {
			e.To = *to
		}
		if mint != nil {
			e.Mint = *mint
		}
		if fromAcc != nil {
			e.FromTokenAccount = *fromAcc
		}
		if toAcc != nil {
			e.ToTokenAccount = *toAcc
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func sortFloat64s(s []float64) { sort.Float64s(s) }

func sortInt64s(s []int64) { sort.Slice(s, func(i, j int) bool { return s[i] < s[j] }) }

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
