package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one candidate's outcome in one screening run, as persisted.
// Rank and Score are nil for candidates that did not pass.
type Snapshot struct {
	RunAt           time.Time
	Chain           string
	TokenAddress    string
	Symbol          string
	Rank            *int
	Passed          bool
	Reason          string
	Score           *decimal.Decimal
	LiquidityUSD    decimal.Decimal
	VolumeUSD24h    decimal.Decimal
	TxCount24h      int64
	TopHolderShare  decimal.Decimal
	LiquidityLocked bool
	CreatedAt       time.Time
}

// RunSummary aggregates one stored screening run.
type RunSummary struct {
	RunAt      time.Time
	Chain      string
	Candidates int
	Passed     int
}
