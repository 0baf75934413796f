package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"solscreener/internal/pipeline"
	"solscreener/internal/screener"
	"solscreener/internal/storage"
)

// Screen executes one screening run, prints the ranked report, and persists
// a snapshot when the database is configured. A zero-passer run is still a
// success; only a failed seed fetch returns an error.
func (a *App) Screen(ctx context.Context, opts ScreenOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var history pipeline.HistorySource
	if store != nil {
		history = store
	}

	runner := a.newRunner(a.newFeed(), history)
	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.SaveSnapshots(ctx, snapshotsFromReport(report)); err != nil {
			a.Logger.Error().Err(err).Msg("failed to persist run snapshot")
		}
	}

	if opts.JSON {
		return writeReportJSON(os.Stdout, report, opts.Limit)
	}
	return writeReportTable(os.Stdout, report, opts.Limit)
}

type candidateRecord struct {
	Rank           int             `json:"rank"`
	TokenAddress   string          `json:"tokenAddress"`
	Symbol         string          `json:"symbol,omitempty"`
	Score          decimal.Decimal `json:"score"`
	LiquidityUSD   decimal.Decimal `json:"liquidityUsd"`
	VolumeUSD24h   decimal.Decimal `json:"volumeUsd24h"`
	TxCount24h     int64           `json:"txCount24h"`
	TopHolderShare decimal.Decimal `json:"topHolderShare"`
	Locked         bool            `json:"liquidityLocked"`
}

func writeReportJSON(out *os.File, report *pipeline.Report, limit int) error {
	enc := json.NewEncoder(out)
	for i, c := range report.Ranked {
		if limit > 0 && i >= limit {
			break
		}
		rec := candidateRecord{
			Rank:           i + 1,
			TokenAddress:   c.Profile.TokenAddress,
			Symbol:         c.Pair.BaseSymbol,
			Score:          *c.Score,
			LiquidityUSD:   c.Pair.LiquidityUSD,
			VolumeUSD24h:   c.Pair.VolumeUSD24h,
			TxCount24h:     c.Pair.TxCount24h,
			TopHolderShare: c.Pair.TopHolderShare,
			Locked:         c.Pair.LiquidityLocked,
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeReportTable(out *os.File, report *pipeline.Report, limit int) error {
	fmt.Fprintf(out, "chain=%s run=%s seeded=%d passed=%d rejected=%d\n",
		report.Chain,
		report.RunAt.Format(time.RFC3339),
		report.Seeded,
		len(report.Ranked),
		len(report.Rejected),
	)

	if len(report.Ranked) > 0 {
		writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Rank\tToken\tSymbol\tScore\tLiquidity($)\tVol24h($)\tTxns\tTopHolder\tLock")
		for i, c := range report.Ranked {
			if limit > 0 && i >= limit {
				break
			}
			fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s%%\t%v\n",
				i+1,
				c.Profile.TokenAddress,
				c.Pair.BaseSymbol,
				c.Score.StringFixed(4),
				c.Pair.LiquidityUSD.StringFixed(0),
				c.Pair.VolumeUSD24h.StringFixed(0),
				c.Pair.TxCount24h,
				c.Pair.TopHolderShare.Mul(decimal.NewFromInt(100)).StringFixed(1),
				c.Pair.LiquidityLocked,
			)
		}
		writer.Flush()
	}

	if len(report.Rejected) > 0 {
		counts := map[string]int{}
		for _, c := range report.Rejected {
			counts[c.Outcome.Reason]++
		}
		reasons := make([]string, 0, len(counts))
		for reason := range counts {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(out, "rejected %d candidate(s): %s\n", counts[reason], reason)
		}
	}

	if report.FetchErrors() > 0 {
		fmt.Fprintf(out, "%d candidate(s) excluded due to fetch errors\n", report.FetchErrors())
	}

	return nil
}

func snapshotsFromReport(report *pipeline.Report) []storage.Snapshot {
	snapshots := make([]storage.Snapshot, 0, len(report.Ranked)+len(report.Rejected))

	for i, c := range report.Ranked {
		rank := i + 1
		snapshots = append(snapshots, snapshotFromCandidate(report, c, &rank))
	}
	for _, c := range report.Rejected {
		snapshots = append(snapshots, snapshotFromCandidate(report, c, nil))
	}

	return snapshots
}

func snapshotFromCandidate(report *pipeline.Report, c *screener.Candidate, rank *int) storage.Snapshot {
	return storage.Snapshot{
		RunAt:           report.RunAt,
		Chain:           report.Chain,
		TokenAddress:    c.Profile.TokenAddress,
		Symbol:          c.Pair.BaseSymbol,
		Rank:            rank,
		Passed:          c.Outcome.Passed,
		Reason:          c.Outcome.Reason,
		Score:           c.Score,
		LiquidityUSD:    c.Pair.LiquidityUSD,
		VolumeUSD24h:    c.Pair.VolumeUSD24h,
		TxCount24h:      c.Pair.TxCount24h,
		TopHolderShare:  c.Pair.TopHolderShare,
		LiquidityLocked: c.Pair.LiquidityLocked,
	}
}
