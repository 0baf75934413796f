package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"solscreener/internal/alerting"
	"solscreener/internal/pipeline"
	"solscreener/internal/scheduler"
)

// Watch reruns the screening pipeline on the configured interval until
// interrupted. When alerting is enabled, tokens passing for the first time
// in this process trigger a notification. A failed pass (including a failed
// seed fetch) is logged and the loop continues.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; snapshots and trend bonus disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var history pipeline.HistorySource
	if store != nil {
		history = store
	}

	runner := a.newRunner(a.newFeed(), history)
	notifier := a.newNotifier()
	seen := make(map[string]struct{})

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		AlignToStart: a.Config.Watch.AlignToBucket,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Watch.Interval).Msg("starting watch loop")

	err = sched.Run(ctx, func(ctx context.Context, runAt time.Time) error {
		report, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		// Stamp the aligned bucket so stored runs line up across restarts.
		report.RunAt = runAt

		if store != nil {
			if err := store.SaveSnapshots(ctx, snapshotsFromReport(report)); err != nil {
				a.Logger.Error().Err(err).Msg("failed to persist run snapshot")
			}
		}

		a.notifyNewPassers(ctx, notifier, seen, report)
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

func (a *App) notifyNewPassers(ctx context.Context, notifier alerting.Notifier, seen map[string]struct{}, report *pipeline.Report) {
	if notifier == nil {
		return
	}

	var fresh []alerting.CandidateAlert
	for _, c := range report.Ranked {
		if _, ok := seen[c.Profile.TokenAddress]; ok {
			continue
		}
		seen[c.Profile.TokenAddress] = struct{}{}
		fresh = append(fresh, alerting.CandidateAlert{
			TokenAddress: c.Profile.TokenAddress,
			Symbol:       c.Pair.BaseSymbol,
			Score:        *c.Score,
			LiquidityUSD: c.Pair.LiquidityUSD,
			VolumeUSD24h: c.Pair.VolumeUSD24h,
		})
	}

	if len(fresh) == 0 {
		return
	}

	note := alerting.Notification{RunAt: report.RunAt, Chain: report.Chain, Candidates: fresh}
	if err := notifier.Notify(ctx, note); err != nil {
		a.Logger.Error().Err(err).Msg("failed to dispatch alert")
	}
}
