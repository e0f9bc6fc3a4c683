package scoring

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
)

func i32(v int32) *int32 { return &v }

func TestIntersectCounterparties(t *testing.T) {
	a := []sidewallet.SharedSignal{{Wallet: "P"}, {Wallet: "Q"}, {Wallet: "R"}}
	b := []sidewallet.SharedSignal{{Wallet: "Q"}, {Wallet: "R"}, {Wallet: "S"}}
	shared := intersectCounterparties(a, b)
	assert.ElementsMatch(t, []string{"Q", "R"}, shared)
}

func TestCircularHourDistance(t *testing.T) {
	assert.Equal(t, int32(1), circularHourDistance(14, 15))
	assert.Equal(t, int32(1), circularHourDistance(23, 0))
	assert.Equal(t, int32(12), circularHourDistance(0, 12))
}

// TestBehavioralSimilarityHourMatch pins scenario S6: close active hours
// and comparable avg_sol_per_tx yield similarity above 0.65.
func TestBehavioralSimilarityHourMatch(t *testing.T) {
	sim := behavioralSimilarity(1.0, 1.15, 2.0, 2.0, i32(14), i32(15))
	assert.Greater(t, sim, 0.65)
}

func TestBehavioralSimilarityAbsentHourFallsBack(t *testing.T) {
	sim := behavioralSimilarity(1.0, 5.0, 1.0, 5.0, nil, nil)
	assert.Less(t, sim, 0.65)
}

func TestApplyScoreBumpsSharedEvidence(t *testing.T) {
	cs := &candidateState{score: 0.5, sharedFundersCount: 3, sharedCounterpartiesCount: 5}
	applyScoreBumps(cs)
	// 0.06*min(3,3) + 0.03*min(5,5) = 0.18 + 0.15 = 0.33
	assert.InDelta(t, 0.83, cs.score, 1e-9)
}

func TestApplyScoreBumpsSameBlockCount(t *testing.T) {
	// scenario S5: same_block_count=5 bumps score by 0.08.
	cs := &candidateState{score: 0.4, sameBlockCount: 5}
	applyScoreBumps(cs)
	assert.InDelta(t, 0.48, cs.score, 1e-9)
}

func TestApplyScoreBumpsClipsAtOne(t *testing.T) {
	cs := &candidateState{score: 0.95, sharedFundersCount: 3, sharedCounterpartiesCount: 5, behavioralSimilarity: 0.9, sameBlockCount: 5}
	applyScoreBumps(cs)
	assert.Equal(t, 1.0, cs.score)
}

// TestEnrichReportsSharedFunderReason pins scenario S4's reason-text
// requirement.
func TestEnrichReportsSharedFunderReason(t *testing.T) {
	store := newStubStore()
	store.funders["X"] = []sidewallet.SharedSignal{{Wallet: "Z", Count: 5}}
	engine := &Engine{store: store, now: time.Now}

	cs := &candidateState{score: 0.5}
	require.NoError(t, engine.enrich(context.Background(), "W", "X", cs, time.Now().AddDate(0, 0, -30)))

	assert.Equal(t, 1, cs.sharedFundersCount)
	found := false
	for _, r := range cs.reasons {
		if strings.Contains(r, "Z") && strings.Contains(r, "count=5") {
			found = true
		}
	}
	assert.True(t, found)
}
