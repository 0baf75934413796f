package screener

import (
	"testing"

	"github.com/shopspring/decimal"

	"solscreener/internal/feed"
)

func scoredCandidate(addr string, score float64, tx int64, liquidity int64) *Candidate {
	s := decimal.NewFromFloat(score)
	return &Candidate{
		Profile: feed.TokenProfile{TokenAddress: addr},
		Pair: feed.PairRecord{
			TokenAddress: addr,
			TxCount24h:   tx,
			LiquidityUSD: decimal.NewFromInt(liquidity),
		},
		Outcome: FilterOutcome{Passed: true},
		Score:   &s,
	}
}

func addresses(batch []*Candidate) []string {
	out := make([]string, len(batch))
	for i, c := range batch {
		out[i] = c.Profile.TokenAddress
	}
	return out
}

func TestRankByScoreDescending(t *testing.T) {
	low := scoredCandidate("LOW", 0.2, 10, 10)
	mid := scoredCandidate("MID", 0.5, 10, 10)
	high := scoredCandidate("HIGH", 0.9, 10, 10)

	ranked := Rank([]*Candidate{low, high, mid})

	got := addresses(ranked)
	want := []string{"HIGH", "MID", "LOW"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRankTieBreakChain(t *testing.T) {
	// Same score: tx count decides. Same tx count: liquidity decides.
	// Same liquidity: address ascending decides.
	a := scoredCandidate("AAA", 0.5, 100, 50)
	b := scoredCandidate("BBB", 0.5, 200, 10)
	c := scoredCandidate("CCC", 0.5, 100, 80)
	d := scoredCandidate("DDD", 0.5, 100, 50)

	ranked := Rank([]*Candidate{d, a, c, b})

	got := addresses(ranked)
	want := []string{"BBB", "CCC", "AAA", "DDD"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %v", i, want[i], got)
		}
	}
}

func TestRankOrderIndependentOfInput(t *testing.T) {
	build := func() []*Candidate {
		return []*Candidate{
			scoredCandidate("AAA", 0.5, 100, 50),
			scoredCandidate("BBB", 0.9, 10, 10),
			scoredCandidate("CCC", 0.5, 100, 50),
			scoredCandidate("DDD", 0.5, 300, 5),
		}
	}

	forward := build()
	backward := build()
	for i, j := 0, len(backward)-1; i < j; i, j = i+1, j-1 {
		backward[i], backward[j] = backward[j], backward[i]
	}

	first := addresses(Rank(forward))
	second := addresses(Rank(backward))
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order depends on input order: %v vs %v", first, second)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	a := scoredCandidate("AAA", 0.1, 1, 1)
	b := scoredCandidate("BBB", 0.9, 1, 1)
	input := []*Candidate{a, b}

	_ = Rank(input)

	if input[0] != a || input[1] != b {
		t.Fatal("Rank must not reorder the input slice")
	}
}

func TestRankNilScoresSortLast(t *testing.T) {
	unscored := &Candidate{
		Profile: feed.TokenProfile{TokenAddress: "ZZZ"},
		Pair:    feed.PairRecord{TokenAddress: "ZZZ", TxCount24h: 9999},
	}
	scored := scoredCandidate("AAA", 0.1, 1, 1)

	ranked := Rank([]*Candidate{unscored, scored})

	if ranked[0].Profile.TokenAddress != "AAA" {
		t.Fatal("scored candidate must rank ahead of unscored")
	}
}
