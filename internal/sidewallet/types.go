package sidewallet

import "time"

// TransferKind distinguishes native SOL movement from SPL token movement.
type TransferKind string

const (
	TransferSOL   TransferKind = "sol"
	TransferToken TransferKind = "token"
)

// Direction describes a candidate's relationship to the seed wallet from
// the perspective of the strongest surviving edge.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionUnknown  Direction = "unknown"
)

// TransferEvent is a single normalized SOL or token movement extracted
// from one transaction by the parser. (signature, EventIndex) is unique.
type TransferEvent struct {
	Signature        string
	EventIndex       int32
	Slot             uint64
	BlockTime        *int64
	Kind             TransferKind
	TransferType     string
	From             string
	To               string
	Mint             string
	AmountSOL        float64
	TokenAmount      int64
	TokenDecimals    int32
	TokenAmountUI    float64
	FromTokenAccount string
	ToTokenAccount   string
}

// TransactionRecord is the raw-transaction evidence blob the Ingestion
// Orchestrator persists once per signature: the parser's summary fields
// (for fast evidence display) plus the full jsonParsed payload.
type TransactionRecord struct {
	Signature           string
	Slot                uint64
	BlockTime           *int64
	Success             bool
	Fee                 uint64
	SOLTransfersCount   int
	TokenTransfersCount int
	Blob                []byte
}

// WalletEdge is the directed, aggregated relationship between two wallets.
type WalletEdge struct {
	From        string
	To          string
	TotalSOL    float64
	TotalToken  uint64
	TxCount     uint32
	FirstSeen   time.Time
	LastSeen    time.Time
}

// SharedSignal is an ephemeral query result naming a counterparty and how
// often / how recently it co-occurred.
type SharedSignal struct {
	Wallet         string
	Count          uint64
	LastSeenEpoch  uint64
}

// WalletVolumeSignal adds volume to SharedSignal for recipient rankings.
type WalletVolumeSignal struct {
	Wallet        string
	Count         uint64
	TotalSOL      float64
	TotalTokenUI  float64
	LastSeenEpoch uint64
}

// BehavioralProfile summarizes a wallet's SOL-transfer activity over a
// window.
type BehavioralProfile struct {
	Wallet            string
	TotalTransfers    uint64
	AvgSOLPerTx       float64
	MedianSOLPerTx    float64
	TotalDaysActive   uint32
	AvgTxPerDay       float64
	MostActiveHourUTC *int32
	FirstTxEpoch      int64
	LastTxEpoch       int64
}

// TemporalOverlap describes how two wallets' activity windows coincide.
type TemporalOverlap struct {
	OverlappingWindows uint32
	TotalWindows       uint32
	OverlapRatio       float64
	SameBlockCount     uint32
}

// SideCandidate is a transient scoring-engine result; never persisted.
type SideCandidate struct {
	Address                 string
	Score                   float64
	Depth                   uint8
	Reasons                 []string
	TxCount                 uint32
	TotalSOL                float64
	TotalToken              uint64
	FirstSeenEpoch          int64
	LastSeenEpoch           int64
	Direction               Direction
	SharedFundersCount      int
	SharedCounterpartiesCount int
	SharedFunders           []string
	SharedCounterparties    []string
	BehavioralSimilarity    float64
	TemporalOverlapRatio    float64
	SameBlockCount          uint32
}

// IngestionStats summarizes a single-wallet ingest job.
type IngestionStats struct {
	TotalSignatures  int
	IngestedOK       int
	IngestedFailed   int
	ParseFailed      int
	SkippedDuplicate int
}

// BatchIngestionStats summarizes a multi-wallet ingest job.
type BatchIngestionStats struct {
	WalletsSuccess int
	WalletsFailed  int
	Totals         IngestionStats
}

func (b *BatchIngestionStats) Add(s IngestionStats, ok bool) {
	if ok {
		b.WalletsSuccess++
	} else {
		b.WalletsFailed++
	}
	b.Totals.TotalSignatures += s.TotalSignatures
	b.Totals.IngestedOK += s.IngestedOK
	b.Totals.IngestedFailed += s.IngestedFailed
	b.Totals.ParseFailed += s.ParseFailed
	b.Totals.SkippedDuplicate += s.SkippedDuplicate
}
