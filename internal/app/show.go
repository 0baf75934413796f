package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent stored runs, or one run's candidates when RunAt is set.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show stored runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.RunAt != nil {
		snapshots, err := store.ListRunCandidates(ctx, opts.RunAt.UTC())
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Fprintln(os.Stdout, "no candidates found for run")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Rank\tToken\tSymbol\tPassed\tReason\tScore\tLiquidity($)\tVol24h($)\tTxns")
		for _, snap := range snapshots {
			rank := "-"
			if snap.Rank != nil {
				rank = fmt.Sprintf("%d", *snap.Rank)
			}
			score := "-"
			if snap.Score != nil {
				score = snap.Score.StringFixed(4)
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%v\t%s\t%s\t%s\t%s\t%d\n",
				rank,
				snap.TokenAddress,
				snap.Symbol,
				snap.Passed,
				snap.Reason,
				score,
				snap.LiquidityUSD.StringFixed(0),
				snap.VolumeUSD24h.StringFixed(0),
				snap.TxCount24h,
			)
		}
		return writer.Flush()
	}

	runs, err := store.ListRecentRuns(ctx, opts.Runs)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no stored runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run (UTC)\tChain\tCandidates\tPassed")
	for _, run := range runs {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\n",
			run.RunAt.UTC().Format(time.RFC3339),
			run.Chain,
			run.Candidates,
			run.Passed,
		)
	}
	return writer.Flush()
}
