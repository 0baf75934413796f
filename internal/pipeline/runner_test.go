package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solscreener/internal/feed"
	"solscreener/internal/screener"
)

type stubSource struct {
	profiles    []feed.TokenProfile
	profilesErr error
	pairs       map[string]feed.PairRecord
	pairErrs    map[string]error
}

func (s *stubSource) LatestProfiles(ctx context.Context, chain string) ([]feed.TokenProfile, error) {
	if s.profilesErr != nil {
		return nil, s.profilesErr
	}
	return s.profiles, nil
}

func (s *stubSource) PairData(ctx context.Context, chain, tokenAddress string) (feed.PairRecord, error) {
	if err, ok := s.pairErrs[tokenAddress]; ok {
		return feed.PairRecord{}, err
	}
	pair, ok := s.pairs[tokenAddress]
	if !ok {
		return feed.PairRecord{}, feed.ErrNotFound
	}
	return pair, nil
}

var _ feed.Source = (*stubSource)(nil)

type stubHistory struct {
	samples map[string][]feed.Sample
}

func (s *stubHistory) ListTokenHistory(ctx context.Context, tokenAddress string, since time.Time) ([]feed.Sample, error) {
	return s.samples[tokenAddress], nil
}

func openWeights() screener.Weights {
	return screener.Weights{
		TxCount:   decimal.NewFromFloat(0.2),
		Volume:    decimal.NewFromFloat(0.3),
		Liquidity: decimal.NewFromFloat(0.4),
	}
}

func pairFor(addr string, tx int64, volume, liquidity int64) feed.PairRecord {
	return feed.PairRecord{
		TokenAddress: addr,
		PairAddress:  "pair-" + addr,
		TxCount24h:   tx,
		VolumeUSD24h: decimal.NewFromInt(volume),
		LiquidityUSD: decimal.NewFromInt(liquidity),
	}
}

func TestRunPartialFailureExcludesOnlyFailedCandidate(t *testing.T) {
	src := &stubSource{
		profiles: []feed.TokenProfile{
			{TokenAddress: "A", ChainID: "solana"},
			{TokenAddress: "B", ChainID: "solana"},
			{TokenAddress: "C", ChainID: "solana"},
			{TokenAddress: "D", ChainID: "solana"},
			{TokenAddress: "E", ChainID: "solana"},
		},
		pairs: map[string]feed.PairRecord{
			"A": pairFor("A", 100, 1000, 5000),
			"B": pairFor("B", 200, 2000, 6000),
			"D": pairFor("D", 300, 3000, 7000),
			"E": pairFor("E", 400, 4000, 8000),
		},
		pairErrs: map[string]error{
			"C": fmt.Errorf("%w: connection reset", feed.ErrUpstreamUnavailable),
		},
	}

	// No thresholds and no lock requirement: everything fetched passes.
	runner := New(src, nil, screener.Thresholds{}, openWeights(),
		Options{Chain: "solana", Workers: 3}, zerolog.Nop())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Seeded != 5 {
		t.Fatalf("expected 5 seeded, got %d", report.Seeded)
	}
	if len(report.Ranked) != 4 {
		t.Fatalf("expected 4 ranked, got %d", len(report.Ranked))
	}
	if report.FetchErrors() != 1 {
		t.Fatalf("expected 1 fetch error, got %d", report.FetchErrors())
	}
	if report.Failures[0].TokenAddress != "C" {
		t.Fatalf("expected failure for C, got %s", report.Failures[0].TokenAddress)
	}
	if !errors.Is(report.Failures[0].Err, feed.ErrUpstreamUnavailable) {
		t.Fatalf("unexpected failure error: %v", report.Failures[0].Err)
	}
	// E holds the batch maximum of every metric.
	if report.Ranked[0].Profile.TokenAddress != "E" {
		t.Fatalf("expected E ranked first, got %s", report.Ranked[0].Profile.TokenAddress)
	}
}

func TestRunSeedFailureIsFatal(t *testing.T) {
	src := &stubSource{profilesErr: fmt.Errorf("%w (status 503)", feed.ErrUpstreamUnavailable)}

	runner := New(src, nil, screener.Thresholds{}, openWeights(),
		Options{Chain: "solana", Workers: 2}, zerolog.Nop())

	_, err := runner.Run(context.Background())
	if !errors.Is(err, feed.ErrUpstreamUnavailable) {
		t.Fatalf("expected fatal upstream error, got %v", err)
	}
}

func TestRunAppliesThresholds(t *testing.T) {
	src := &stubSource{
		profiles: []feed.TokenProfile{
			{TokenAddress: "PASS", ChainID: "solana"},
			{TokenAddress: "THIN", ChainID: "solana"},
		},
		pairs: map[string]feed.PairRecord{
			"PASS": {
				TokenAddress:    "PASS",
				TxCount24h:      500,
				VolumeUSD24h:    decimal.NewFromInt(40000),
				LiquidityUSD:    decimal.NewFromInt(12000),
				TopHolderShare:  decimal.NewFromFloat(0.1),
				LiquidityLocked: true,
			},
			"THIN": {
				TokenAddress:    "THIN",
				TxCount24h:      500,
				VolumeUSD24h:    decimal.NewFromInt(40000),
				LiquidityUSD:    decimal.NewFromInt(500),
				TopHolderShare:  decimal.NewFromFloat(0.1),
				LiquidityLocked: true,
			},
		},
	}

	thresholds := screener.Thresholds{
		MinLiquidityUSD:      decimal.NewFromInt(10000),
		MinTxCount:           300,
		MaxHolderShare:       decimal.NewFromFloat(0.30),
		RequireLiquidityLock: true,
	}
	runner := New(src, nil, thresholds, openWeights(),
		Options{Chain: "solana", Workers: 2}, zerolog.Nop())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Ranked) != 1 || report.Ranked[0].Profile.TokenAddress != "PASS" {
		t.Fatalf("expected only PASS ranked, got %d", len(report.Ranked))
	}
	if len(report.Rejected) != 1 {
		t.Fatalf("expected 1 rejected, got %d", len(report.Rejected))
	}
	if report.Rejected[0].Outcome.Reason != screener.ReasonLiquidity {
		t.Fatalf("expected liquidity rejection, got %q", report.Rejected[0].Outcome.Reason)
	}
	if report.Rejected[0].Score != nil {
		t.Fatal("rejected candidate must not be scored")
	}
}

func TestRunAttachesHistoryForTrendBonus(t *testing.T) {
	src := &stubSource{
		profiles: []feed.TokenProfile{{TokenAddress: "UP", ChainID: "solana"}},
		pairs:    map[string]feed.PairRecord{"UP": pairFor("UP", 100, 1000, 5000)},
	}

	base := time.Now().UTC()
	history := &stubHistory{samples: map[string][]feed.Sample{
		"UP": {
			{Timestamp: base.Add(-2 * time.Hour), VolumeUSD: decimal.NewFromInt(100)},
			{Timestamp: base.Add(-time.Hour), VolumeUSD: decimal.NewFromInt(900)},
		},
	}}

	weights := openWeights()
	weights.TrendBonus = decimal.NewFromFloat(0.1)

	runner := New(src, history, screener.Thresholds{}, weights,
		Options{Chain: "solana", Workers: 1, HistoryLookback: 24 * time.Hour}, zerolog.Nop())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Ranked) != 1 {
		t.Fatalf("expected 1 ranked, got %d", len(report.Ranked))
	}

	// Sole passer maxes every metric: 0.2 + 0.3 + 0.4, plus the trend bonus.
	want := decimal.NewFromFloat(1.0)
	if !report.Ranked[0].Score.Equal(want) {
		t.Fatalf("expected score %s, got %s", want.String(), report.Ranked[0].Score.String())
	}
}

func TestRunCancelledContext(t *testing.T) {
	src := &stubSource{
		profiles: []feed.TokenProfile{{TokenAddress: "A", ChainID: "solana"}},
		pairs:    map[string]feed.PairRecord{"A": pairFor("A", 1, 1, 1)},
	}

	runner := New(src, nil, screener.Thresholds{}, openWeights(),
		Options{Chain: "solana", Workers: 1}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
