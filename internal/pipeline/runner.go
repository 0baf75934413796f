package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solscreener/internal/feed"
	"solscreener/internal/screener"
)

// HistorySource supplies prior volume/liquidity observations for a token,
// typically from the snapshot store. Optional.
type HistorySource interface {
	ListTokenHistory(ctx context.Context, tokenAddress string, since time.Time) ([]feed.Sample, error)
}

// Options tune a screening run.
type Options struct {
	Chain           string
	Workers         int
	FetchTimeout    time.Duration
	HistoryLookback time.Duration
}

// FetchFailure records one candidate excluded because its pair data could
// not be fetched.
type FetchFailure struct {
	TokenAddress string
	Err          error
}

// Report is the outcome of one screening run.
type Report struct {
	Chain    string
	RunAt    time.Time
	Seeded   int
	Ranked   []*screener.Candidate
	Rejected []*screener.Candidate
	Failures []FetchFailure
}

// FetchErrors returns the number of candidates excluded due to fetch errors.
func (r *Report) FetchErrors() int { return len(r.Failures) }

// Runner drives the fetch, filter, score, rank pipeline.
type Runner struct {
	source     feed.Source
	history    HistorySource
	thresholds screener.Thresholds
	weights    screener.Weights
	opts       Options
	logger     zerolog.Logger
}

// New constructs a pipeline runner. history may be nil; the trend bonus is
// then never applied.
func New(source feed.Source, history HistorySource, thresholds screener.Thresholds, weights screener.Weights, opts Options, logger zerolog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		source:     source,
		history:    history,
		thresholds: thresholds,
		weights:    weights,
		opts:       opts,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

type fetchResult struct {
	profile feed.TokenProfile
	pair    feed.PairRecord
	err     error
}

// Run executes one screening pass. A failed seed fetch aborts the run; a
// failed pair fetch excludes only that candidate and is counted in the
// report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runAt := time.Now().UTC()

	profiles, err := r.source.LatestProfiles(ctx, r.opts.Chain)
	if err != nil {
		return nil, fmt.Errorf("fetch seed profiles: %w", err)
	}

	r.logger.Info().Int("profiles", len(profiles)).Str("chain", r.opts.Chain).Msg("seed profiles fetched")

	results := r.fetchPairs(ctx, profiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Chain: r.opts.Chain, RunAt: runAt, Seeded: len(profiles)}

	var batch []*screener.Candidate
	for _, res := range results {
		if res.err != nil {
			r.logger.Warn().Err(res.err).Str("token", res.profile.TokenAddress).Msg("candidate excluded: pair data fetch failed")
			report.Failures = append(report.Failures, FetchFailure{TokenAddress: res.profile.TokenAddress, Err: res.err})
			continue
		}

		pair := res.pair
		r.attachHistory(ctx, &pair)

		cand := &screener.Candidate{
			Profile: res.profile,
			Pair:    pair,
			Outcome: screener.Evaluate(pair, r.thresholds, runAt),
		}
		batch = append(batch, cand)
	}

	// Normalization is batch-relative, so the passing subset is scored in
	// one call after the join point.
	screener.ScoreBatch(batch, r.weights)

	var passed []*screener.Candidate
	for _, c := range batch {
		if c.Outcome.Passed {
			passed = append(passed, c)
		} else {
			report.Rejected = append(report.Rejected, c)
		}
	}

	report.Ranked = screener.Rank(passed)

	r.logger.Info().
		Int("seeded", report.Seeded).
		Int("passed", len(report.Ranked)).
		Int("rejected", len(report.Rejected)).
		Int("fetch_errors", report.FetchErrors()).
		Msg("screening run complete")

	return report, nil
}

// fetchPairs fans pair-data fetches out over a bounded worker pool and joins
// before returning. Output order matches the seed list; completion order does
// not matter because ranking imposes a total order later.
func (r *Runner) fetchPairs(ctx context.Context, profiles []feed.TokenProfile) []fetchResult {
	results := make([]fetchResult, len(profiles))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)

	for i, profile := range profiles {
		if ctx.Err() != nil {
			// Stop issuing new fetches; in-flight ones drain below.
			for j := i; j < len(profiles); j++ {
				results[j] = fetchResult{profile: profiles[j], err: ctx.Err()}
			}
			break
		}

		i, profile := i, profile
		g.Go(func() error {
			fctx := ctx
			if r.opts.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
				defer cancel()
			}

			pair, err := r.source.PairData(fctx, r.opts.Chain, profile.TokenAddress)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", feed.ErrUpstreamUnavailable, err)
			}
			results[i] = fetchResult{profile: profile, pair: pair, err: err}
			return nil
		})
	}

	// Join barrier: every outstanding fetch lands before filtering starts.
	_ = g.Wait()

	return results
}

func (r *Runner) attachHistory(ctx context.Context, pair *feed.PairRecord) {
	if r.history == nil || r.opts.HistoryLookback <= 0 {
		return
	}

	since := time.Now().UTC().Add(-r.opts.HistoryLookback)
	samples, err := r.history.ListTokenHistory(ctx, pair.TokenAddress, since)
	if err != nil {
		r.logger.Warn().Err(err).Str("token", pair.TokenAddress).Msg("history lookup failed; scoring without trend bonus")
		return
	}
	pair.History = samples
}
