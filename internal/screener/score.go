package screener

import (
	"github.com/shopspring/decimal"

	"solscreener/internal/feed"
)

// Weights parameterise the weighted score. Weights are non-negative and need
// not sum to 1. TrendBonus is added when a candidate's history shows rising
// volume; MinScore rejects low scorers after scoring (zero disables).
type Weights struct {
	TxCount    decimal.Decimal
	Volume     decimal.Decimal
	Liquidity  decimal.Decimal
	TrendBonus decimal.Decimal
	MinScore   decimal.Decimal
}

// Candidate carries one token through the pipeline: profile, pair data,
// filter outcome, and the derived score. Score is nil unless the candidate
// passed every filter.
type Candidate struct {
	Profile feed.TokenProfile
	Pair    feed.PairRecord
	Outcome FilterOutcome
	Score   *decimal.Decimal
}

// ScoreBatch scores the passing candidates of one batch in place. Each raw
// metric is normalized by the maximum value of that metric across the batch,
// so the largest observation maps to 1; a zero batch maximum contributes 0
// for every candidate. Candidates that did not pass the filter keep a nil
// score. Idempotent over a frozen batch.
func ScoreBatch(batch []*Candidate, w Weights) {
	var maxTx, maxVolume, maxLiquidity decimal.Decimal
	for _, c := range batch {
		if !c.Outcome.Passed {
			continue
		}
		tx := decimal.NewFromInt(c.Pair.TxCount24h)
		if tx.GreaterThan(maxTx) {
			maxTx = tx
		}
		if c.Pair.VolumeUSD24h.GreaterThan(maxVolume) {
			maxVolume = c.Pair.VolumeUSD24h
		}
		if c.Pair.LiquidityUSD.GreaterThan(maxLiquidity) {
			maxLiquidity = c.Pair.LiquidityUSD
		}
	}

	for _, c := range batch {
		if !c.Outcome.Passed {
			c.Score = nil
			continue
		}

		score := w.TxCount.Mul(normalize(decimal.NewFromInt(c.Pair.TxCount24h), maxTx)).
			Add(w.Volume.Mul(normalize(c.Pair.VolumeUSD24h, maxVolume))).
			Add(w.Liquidity.Mul(normalize(c.Pair.LiquidityUSD, maxLiquidity)))

		if volumeTrendingUp(c.Pair.History) {
			score = score.Add(w.TrendBonus)
		}

		if w.MinScore.IsPositive() && score.LessThan(w.MinScore) {
			c.Outcome = FilterOutcome{Reason: ReasonScore}
			c.Score = nil
			continue
		}

		s := score
		c.Score = &s
	}
}

func normalize(value, batchMax decimal.Decimal) decimal.Decimal {
	if !batchMax.IsPositive() {
		return decimal.Zero
	}
	return value.Div(batchMax)
}

// volumeTrendingUp reports whether the newest history sample saw more volume
// than the oldest. Needs at least two samples.
func volumeTrendingUp(history []feed.Sample) bool {
	if len(history) < 2 {
		return false
	}
	return history[len(history)-1].VolumeUSD.GreaterThan(history[0].VolumeUSD)
}
