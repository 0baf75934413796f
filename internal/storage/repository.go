package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solscreener/internal/feed"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS screen_snapshots (
        run_ts            TIMESTAMPTZ NOT NULL,
        chain             TEXT        NOT NULL,
        token_address     TEXT        NOT NULL,
        symbol            TEXT        NOT NULL DEFAULT '',
        rank              INTEGER,
        passed            BOOLEAN     NOT NULL,
        reason            TEXT        NOT NULL DEFAULT '',
        score             NUMERIC,
        liquidity_usd     NUMERIC     NOT NULL,
        volume_usd_24h    NUMERIC     NOT NULL,
        tx_count_24h      BIGINT      NOT NULL,
        top_holder_share  NUMERIC     NOT NULL,
        liquidity_locked  BOOLEAN     NOT NULL,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (run_ts, token_address)
    );
    CREATE INDEX IF NOT EXISTS screen_snapshots_token_idx
        ON screen_snapshots (token_address, run_ts);`

	upsertSnapshotSQL = `INSERT INTO screen_snapshots (
        run_ts,
        chain,
        token_address,
        symbol,
        rank,
        passed,
        reason,
        score,
        liquidity_usd,
        volume_usd_24h,
        tx_count_24h,
        top_holder_share,
        liquidity_locked
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    )
    ON CONFLICT (run_ts, token_address) DO UPDATE
    SET
        chain            = EXCLUDED.chain,
        symbol           = EXCLUDED.symbol,
        rank             = EXCLUDED.rank,
        passed           = EXCLUDED.passed,
        reason           = EXCLUDED.reason,
        score            = EXCLUDED.score,
        liquidity_usd    = EXCLUDED.liquidity_usd,
        volume_usd_24h   = EXCLUDED.volume_usd_24h,
        tx_count_24h     = EXCLUDED.tx_count_24h,
        top_holder_share = EXCLUDED.top_holder_share,
        liquidity_locked = EXCLUDED.liquidity_locked;`

	listTokenHistorySQL = `SELECT
        run_ts,
        volume_usd_24h,
        liquidity_usd
    FROM screen_snapshots
    WHERE token_address = $1
      AND run_ts >= $2
    ORDER BY run_ts;`

	listTokenSnapshotsSQL = `SELECT
        run_ts,
        chain,
        token_address,
        symbol,
        rank,
        passed,
        reason,
        score,
        liquidity_usd,
        volume_usd_24h,
        tx_count_24h,
        top_holder_share,
        liquidity_locked,
        created_at
    FROM screen_snapshots
    WHERE token_address = $1
      AND run_ts >= $2
      AND run_ts < $3
    ORDER BY run_ts;`

	listRecentRunsSQL = `SELECT
        run_ts,
        chain,
        COUNT(*),
        COUNT(*) FILTER (WHERE passed)
    FROM screen_snapshots
    GROUP BY run_ts, chain
    ORDER BY run_ts DESC
    LIMIT $1;`

	listRunCandidatesSQL = `SELECT
        run_ts,
        chain,
        token_address,
        symbol,
        rank,
        passed,
        reason,
        score,
        liquidity_usd,
        volume_usd_24h,
        tx_count_24h,
        top_holder_share,
        liquidity_locked,
        created_at
    FROM screen_snapshots
    WHERE run_ts = $1
    ORDER BY passed DESC, rank NULLS LAST, token_address;`

	deleteSnapshotsBeforeSQL = `DELETE FROM screen_snapshots WHERE run_ts < $1;`
)

// SnapshotStore defines persistence operations for screening snapshots.
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, snapshots []Snapshot) error
	ListTokenHistory(ctx context.Context, tokenAddress string, since time.Time) ([]feed.Sample, error)
	ListTokenSnapshots(ctx context.Context, tokenAddress string, from, to time.Time) ([]Snapshot, error)
	ListRecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
	ListRunCandidates(ctx context.Context, runAt time.Time) ([]Snapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store persists screening snapshots in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the snapshot table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	if _, err := s.pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshots upserts one run's snapshots in a single batch.
func (s *Store) SaveSnapshots(ctx context.Context, snapshots []Snapshot) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	if len(snapshots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(upsertSnapshotSQL,
			snap.RunAt,
			snap.Chain,
			snap.TokenAddress,
			snap.Symbol,
			snap.Rank,
			snap.Passed,
			snap.Reason,
			snap.Score,
			snap.LiquidityUSD,
			snap.VolumeUSD24h,
			snap.TxCount24h,
			snap.TopHolderShare,
			snap.LiquidityLocked,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range snapshots {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
	}

	return nil
}

// ListTokenHistory returns chronological volume/liquidity samples for one
// token since the given time.
func (s *Store) ListTokenHistory(ctx context.Context, tokenAddress string, since time.Time) ([]feed.Sample, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.pool.Query(ctx, listTokenHistorySQL, tokenAddress, since)
	if err != nil {
		return nil, fmt.Errorf("list token history: %w", err)
	}
	defer rows.Close()

	var samples []feed.Sample
	for rows.Next() {
		var sample feed.Sample
		if err := rows.Scan(&sample.Timestamp, &sample.VolumeUSD, &sample.LiquidityUSD); err != nil {
			return nil, fmt.Errorf("scan history sample: %w", err)
		}
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// ListTokenSnapshots returns one token's snapshots between from (inclusive)
// and to (exclusive).
func (s *Store) ListTokenSnapshots(ctx context.Context, tokenAddress string, from, to time.Time) ([]Snapshot, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.pool.Query(ctx, listTokenSnapshotsSQL, tokenAddress, from, to)
	if err != nil {
		return nil, fmt.Errorf("list token snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// ListRecentRuns summarises the most recent stored runs.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.pool.Query(ctx, listRecentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.RunAt, &run.Chain, &run.Candidates, &run.Passed); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListRunCandidates returns every snapshot of one run, passers first in rank
// order.
func (s *Store) ListRunCandidates(ctx context.Context, runAt time.Time) ([]Snapshot, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.pool.Query(ctx, listRunCandidatesSQL, runAt)
	if err != nil {
		return nil, fmt.Errorf("list run candidates: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// DeleteSnapshotsBefore drops snapshots from runs older than cutoff and
// returns the number of rows removed.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.pool == nil {
		return 0, ErrNotConfigured
	}

	tag, err := s.pool.Exec(ctx, deleteSnapshotsBeforeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func scanSnapshots(rows pgx.Rows) ([]Snapshot, error) {
	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.RunAt,
			&snap.Chain,
			&snap.TokenAddress,
			&snap.Symbol,
			&snap.Rank,
			&snap.Passed,
			&snap.Reason,
			&snap.Score,
			&snap.LiquidityUSD,
			&snap.VolumeUSD24h,
			&snap.TxCount24h,
			&snap.TopHolderShare,
			&snap.LiquidityLocked,
			&snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

var _ SnapshotStore = (*Store)(nil)
