package screener

import (
	"time"

	"github.com/shopspring/decimal"

	"solscreener/internal/feed"
)

// Rejection reasons, named after the failing predicate.
const (
	ReasonLiquidity     = "liquidity"
	ReasonTxCount       = "txcount"
	ReasonConcentration = "concentration"
	ReasonLock          = "lock"
	ReasonVolume        = "volume"
	ReasonAge           = "age"
	ReasonScore         = "score"
)

// Thresholds configure the pass/fail predicates. MinVolumeUSD and MinAge are
// optional; their zero values disable them.
type Thresholds struct {
	MinLiquidityUSD      decimal.Decimal
	MinTxCount           int64
	MaxHolderShare       decimal.Decimal
	RequireLiquidityLock bool
	MinVolumeUSD         decimal.Decimal
	MinAge               time.Duration
}

// FilterOutcome records whether a candidate passed, and if not, which
// predicate rejected it.
type FilterOutcome struct {
	Passed bool
	Reason string
}

// Evaluate applies the threshold predicates to one pair record. Evaluation
// order is fixed and short-circuits on the first failure: liquidity, tx
// count, holder concentration, liquidity lock, then the optional volume and
// age floors. Pure function of its inputs; the now argument anchors the age
// check.
func Evaluate(rec feed.PairRecord, t Thresholds, now time.Time) FilterOutcome {
	if rec.LiquidityUSD.LessThan(t.MinLiquidityUSD) {
		return FilterOutcome{Reason: ReasonLiquidity}
	}
	if rec.TxCount24h < t.MinTxCount {
		return FilterOutcome{Reason: ReasonTxCount}
	}
	if rec.TopHolderShare.GreaterThan(t.MaxHolderShare) {
		return FilterOutcome{Reason: ReasonConcentration}
	}
	if t.RequireLiquidityLock && !rec.LiquidityLocked {
		return FilterOutcome{Reason: ReasonLock}
	}
	if t.MinVolumeUSD.IsPositive() && rec.VolumeUSD24h.LessThan(t.MinVolumeUSD) {
		return FilterOutcome{Reason: ReasonVolume}
	}
	if t.MinAge > 0 {
		if rec.PairCreatedAt.IsZero() || now.Sub(rec.PairCreatedAt) < t.MinAge {
			return FilterOutcome{Reason: ReasonAge}
		}
	}
	return FilterOutcome{Passed: true}
}
