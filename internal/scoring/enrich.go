package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
)

// enrich runs Phase 2 (evidence enrichment) and Phase 3 (score bumps)
// for one surviving candidate, mutating cs in place.
func (e *Engine) enrich(ctx context.Context, seed, candidate string, cs *candidateState, since time.Time) error {
	funders, err := e.store.SharedInboundSenders(ctx, seed, candidate, since, 3)
	if err != nil {
		return err
	}
	cs.sharedFundersCount = len(funders)
	for _, f := range funders {
		cs.sharedFunders = append(cs.sharedFunders, f.Wallet)
		if len(cs.reasons) < 8 {
			cs.reasons = append(cs.reasons, fmt.Sprintf("shared funder %s count=%d", f.Wallet, f.Count))
		}
	}

	seedCPs, err := e.store.TopCounterparties(ctx, seed, since, 80)
	if err != nil {
		return err
	}
	candCPs, err := e.store.TopCounterparties(ctx, candidate, since, 80)
	if err != nil {
		return err
	}
	shared := intersectCounterparties(seedCPs, candCPs)
	if len(shared) > 3 {
		shared = shared[:3]
	}
	cs.sharedCounterpartiesCount = len(shared)
	cs.sharedCounterparties = shared

	seedProfile, errSeed := e.store.BehavioralProfile(ctx, seed, since)
	candProfile, errCand := e.store.BehavioralProfile(ctx, candidate, since)
	similarity := 0.0
	if errSeed == nil && errCand == nil && seedProfile != nil && candProfile != nil {
		similarity = behavioralSimilarity(seedProfile.AvgSOLPerTx, candProfile.AvgSOLPerTx,
			seedProfile.AvgTxPerDay, candProfile.AvgTxPerDay,
			seedProfile.MostActiveHourUTC, candProfile.MostActiveHourUTC)
	}
	cs.behavioralSimilarity = similarity
	if similarity > 0.65 && len(cs.reasons) < 8 {
		cs.reasons = append(cs.reasons, "behavioral pattern match")
	}

	overlap, err := e.store.TemporalOverlap(ctx, seed, candidate, since, 5)
	if err != nil {
		return err
	}
	cs.temporalOverlapRatio = overlap.OverlapRatio
	cs.sameBlockCount = overlap.SameBlockCount

	applyScoreBumps(cs)
	return nil
}

func intersectCounterparties(a, b []sidewallet.SharedSignal) []string {
	bSet := make(map[string]bool, len(b))
	for _, s := range b {
		bSet[s.Wallet] = true
	}
	var out []string
	for _, s := range a {
		if bSet[s.Wallet] {
			out = append(out, s.Wallet)
		}
	}
	return out
}

// behavioralSimilarity implements the Phase 2 formula combining avg-SOL,
// tx-frequency, and active-hour similarity.
func behavioralSimilarity(avgSolW, avgSolX, freqW, freqX float64, hourW, hourX *int32) float64 {
	avgSim := 0.5
	if avgSolW > 0 && avgSolX > 0 {
		rho := avgSolW / avgSolX
		if avgSolX > avgSolW {
			rho = avgSolX / avgSolW
		}
		avgSim = math.Exp(-math.Abs(math.Log(rho)) / 2)
	}

	freqSim := 0.5
	if freqW > 0 && freqX > 0 {
		rho := freqW / freqX
		if freqX > freqW {
			rho = freqX / freqW
		}
		freqSim = math.Exp(-math.Abs(math.Log(rho)) / 1.5)
	}

	hourSim := 0.3
	if hourW != nil && hourX != nil {
		delta := circularHourDistance(*hourW, *hourX)
		switch {
		case delta <= 2:
			hourSim = 1.0
		case delta <= 4:
			hourSim = 0.7
		case delta <= 8:
			hourSim = 0.4
		default:
			hourSim = 0.1
		}
	}

	return clip01(0.40*avgSim + 0.35*freqSim + 0.25*hourSim)
}

func circularHourDistance(a, b int32) int32 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

// applyScoreBumps is Phase 3: additive score bumps, each clipped back
// into [0,1].
func applyScoreBumps(cs *candidateState) {
	bump := 0.06*math.Min(3, float64(cs.sharedFundersCount)) + 0.03*math.Min(5, float64(cs.sharedCounterpartiesCount))
	cs.score = clip01(cs.score + bump)

	if cs.behavioralSimilarity > 0.65 {
		cs.score = clip01(cs.score + 0.12*cs.behavioralSimilarity)
	}

	if cs.sameBlockCount > 0 {
		cs.score = clip01(cs.score + 0.08*(math.Min(5, float64(cs.sameBlockCount))*0.2))
	} else if cs.temporalOverlapRatio > 0.15 {
		cs.score = clip01(cs.score + 0.10*cs.temporalOverlapRatio)
	}
}
