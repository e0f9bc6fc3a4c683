// Package scoring is the Scoring Engine: bounded BFS expansion from a
// seed wallet, combining structural, volumetric, behavioral and temporal
// evidence into a ranked list of side-wallet candidates.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
	"github.com/web3-fighter/sidewallet-analytics/internal/walletstore"
)

// Params are the scoring invocation parameters, clamped to the spec's
// documented ranges.
type Params struct {
	MaxDepth     uint8
	Threshold    float64
	Limit        int
	LookbackDays int
}

func (p Params) clamped() Params {
	if p.MaxDepth < 1 {
		p.MaxDepth = 1
	}
	if p.MaxDepth > 5 {
		p.MaxDepth = 5
	}
	if p.Threshold < 0 {
		p.Threshold = 0
	}
	if p.Threshold > 1 {
		p.Threshold = 1
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.LookbackDays < 1 {
		p.LookbackDays = 1
	}
	if p.LookbackDays > 365 {
		p.LookbackDays = 365
	}
	return p
}

// Engine reads exclusively from the Store; it never touches the RPC.
type Engine struct {
	store walletstore.Store
	now   func() time.Time
}

func New(store walletstore.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

type candidateState struct {
	score          float64
	depth          uint8
	direction      sidewallet.Direction
	txCount        uint32
	totalSOL       float64
	totalToken     uint64
	firstSeenEpoch int64
	lastSeenEpoch  int64
	reasons        []string

	sharedFundersCount        int
	sharedCounterpartiesCount int
	sharedFunders             []string
	sharedCounterparties      []string
	behavioralSimilarity      float64
	temporalOverlapRatio      float64
	sameBlockCount            uint32
}

// ComputeSideWallets runs all four phases for seed W and returns the
// ranked, threshold-filtered, depth-bounded candidate list.
func (e *Engine) ComputeSideWallets(ctx context.Context, seed string, params Params) ([]sidewallet.SideCandidate, error) {
	p := params.clamped()
	now := e.now()

	candidates, err := e.bfs(ctx, seed, p, now)
	if err != nil {
		return nil, err
	}

	since := now.AddDate(0, 0, -p.LookbackDays)
	for addr, cs := range candidates {
		if err := e.enrich(ctx, seed, addr, cs, since); err != nil {
			return nil, err
		}
	}

	out := make([]sidewallet.SideCandidate, 0, len(candidates))
	for addr, cs := range candidates {
		out = append(out, toSideCandidate(addr, cs))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].SharedFundersCount != out[j].SharedFundersCount {
			return out[i].SharedFundersCount > out[j].SharedFundersCount
		}
		if out[i].TxCount != out[j].TxCount {
			return out[i].TxCount > out[j].TxCount
		}
		return out[i].Address < out[j].Address
	})

	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

// bfs is Phase 1: bounded BFS over edges with edge/recency/depth scoring.
func (e *Engine) bfs(ctx context.Context, seed string, p Params, now time.Time) (map[string]*candidateState, error) {
	type queued struct {
		wallet      string
		depth       uint8
		parentScore float64
	}

	visited := map[string]bool{seed: true}
	queue := []queued{{seed, 0, 1.0}}
	candidates := make(map[string]*candidateState)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.depth >= p.MaxDepth {
			continue
		}

		edges, err := e.store.WalletConnections(ctx, item.wallet)
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			var other string
			switch item.wallet {
			case edge.From:
				other = edge.To
			case edge.To:
				other = edge.From
			default:
				continue
			}
			if other == "" || other == seed {
				continue
			}

			s := edgeScore(edge)
			r := recencyFactor(edge.LastSeen, now)
			combined := clip01(item.parentScore * s * r * math.Pow(0.85, float64(item.depth+1)))
			if combined < p.Threshold {
				continue
			}

			direction := sidewallet.DirectionUnknown
			if edge.From == item.wallet {
				direction = sidewallet.DirectionOutbound
			} else if edge.To == item.wallet {
				direction = sidewallet.DirectionInbound
			}

			cs := candidates[other]
			if cs == nil {
				cs = &candidateState{depth: item.depth + 1}
				candidates[other] = cs
			}
			if combined > cs.score {
				cs.score = combined
				cs.direction = direction
				cs.txCount = edge.TxCount
				cs.totalSOL = edge.TotalSOL
				cs.totalToken = edge.TotalToken
				cs.firstSeenEpoch = edge.FirstSeen.Unix()
				cs.lastSeenEpoch = edge.LastSeen.Unix()
			}
			if len(cs.reasons) < 5 {
				cs.reasons = append(cs.reasons, edgeReason(edge, direction))
			}

			if !visited[other] {
				visited[other] = true
				queue = append(queue, queued{other, item.depth + 1, combined})
			}
		}
	}

	return candidates, nil
}

func edgeScore(edge sidewallet.WalletEdge) float64 {
	tx := math.Log(float64(edge.TxCount) + 1)
	sol := math.Log(math.Abs(edge.TotalSOL) + 1)
	tok := math.Log(float64(edge.TotalToken)/1_000_000 + 1)
	raw := 0.65*tx + 0.30*sol + 0.05*tok
	s := clip01(1 - math.Exp(-raw/3))
	if edge.TxCount <= 1 && math.Abs(edge.TotalSOL) < 0.01 && edge.TotalToken == 0 {
		s *= 0.35
	}
	return s
}

func recencyFactor(lastSeen time.Time, now time.Time) float64 {
	if lastSeen.IsZero() || lastSeen.After(now) {
		return 0.5
	}
	ageDays := now.Sub(lastSeen).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return clip01(0.15 + 0.85*math.Exp(-ageDays/30))
}

func edgeReason(edge sidewallet.WalletEdge, direction sidewallet.Direction) string {
	return fmt.Sprintf("%s edge tx_count=%d total_sol=%.4f last_seen=%s",
		direction, edge.TxCount, edge.TotalSOL, edge.LastSeen.UTC().Format(time.RFC3339))
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toSideCandidate(addr string, cs *candidateState) sidewallet.SideCandidate {
	return sidewallet.SideCandidate{
		Address:                   addr,
		Score:                     cs.score,
		Depth:                     cs.depth,
		Reasons:                   cs.reasons,
		TxCount:                   cs.txCount,
		TotalSOL:                  cs.totalSOL,
		TotalToken:                cs.totalToken,
		FirstSeenEpoch:            cs.firstSeenEpoch,
		LastSeenEpoch:             cs.lastSeenEpoch,
		Direction:                 cs.direction,
		SharedFundersCount:        cs.sharedFundersCount,
		SharedCounterpartiesCount: cs.sharedCounterpartiesCount,
		SharedFunders:             cs.sharedFunders,
		SharedCounterparties:      cs.sharedCounterparties,
		BehavioralSimilarity:      cs.behavioralSimilarity,
		TemporalOverlapRatio:      cs.temporalOverlapRatio,
		SameBlockCount:            cs.sameBlockCount,
	}
}
