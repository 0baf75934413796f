package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"solscreener/internal/feed"
	"solscreener/internal/screener"
)

// Inspect fetches and evaluates a single token, printing its metrics and
// filter outcome. The score shown is batch-of-one: every non-zero metric
// normalizes to 1, so it reflects weights and trend bonus only.
func (a *App) Inspect(ctx context.Context, tokenAddress string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	source := a.newFeed()
	pair, err := source.PairData(ctx, a.Config.Screener.Chain, tokenAddress)
	if err != nil {
		return err
	}

	if store != nil && a.Config.Screener.HistoryLookback > 0 {
		since := time.Now().UTC().Add(-a.Config.Screener.HistoryLookback)
		if samples, err := store.ListTokenHistory(ctx, tokenAddress, since); err == nil {
			pair.History = samples
		} else {
			a.Logger.Warn().Err(err).Msg("history lookup failed")
		}
	}

	now := time.Now().UTC()
	cand := &screener.Candidate{
		Profile: feed.TokenProfile{TokenAddress: tokenAddress, ChainID: a.Config.Screener.Chain},
		Pair:    pair,
		Outcome: screener.Evaluate(pair, a.thresholds(), now),
	}
	screener.ScoreBatch([]*screener.Candidate{cand}, a.weights())

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Token\t%s\n", tokenAddress)
	fmt.Fprintf(writer, "Pair\t%s (%s)\n", pair.PairAddress, pair.DexID)
	fmt.Fprintf(writer, "Symbol\t%s\n", pair.BaseSymbol)
	fmt.Fprintf(writer, "Price($)\t%s\n", pair.PriceUSD.String())
	fmt.Fprintf(writer, "Liquidity($)\t%s\n", pair.LiquidityUSD.StringFixed(0))
	fmt.Fprintf(writer, "Volume 24h($)\t%s\n", pair.VolumeUSD24h.StringFixed(0))
	fmt.Fprintf(writer, "Txns 24h\t%d\n", pair.TxCount24h)
	fmt.Fprintf(writer, "Top holder\t%s%%\n", pair.TopHolderShare.Mul(decimal.NewFromInt(100)).StringFixed(1))
	fmt.Fprintf(writer, "Holders\t%d\n", pair.HolderCount)
	fmt.Fprintf(writer, "Liquidity locked\t%v\n", pair.LiquidityLocked)
	if !pair.PairCreatedAt.IsZero() {
		fmt.Fprintf(writer, "Pair created\t%s\n", pair.PairCreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(writer, "History samples\t%d\n", len(pair.History))
	if cand.Outcome.Passed {
		fmt.Fprintf(writer, "Filter\tpass\n")
		fmt.Fprintf(writer, "Score\t%s\n", cand.Score.StringFixed(4))
	} else {
		fmt.Fprintf(writer, "Filter\trejected (%s)\n", cand.Outcome.Reason)
	}
	return writer.Flush()
}
