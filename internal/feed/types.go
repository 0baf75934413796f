package feed

import (
	"time"

	"github.com/shopspring/decimal"
)

var decimalHundred = decimal.NewFromInt(100)

// TokenProfile identifies a freshly listed token as reported by the
// token-profiles feed. Immutable once fetched.
type TokenProfile struct {
	TokenAddress string
	ChainID      string
	Name         string
	Symbol       string
	Description  string
	URL          string
}

// PairRecord aggregates market data for a token's most liquid trading pair
// together with holder/lock data from the audit endpoint.
type PairRecord struct {
	TokenAddress    string
	PairAddress     string
	DexID           string
	BaseName        string
	BaseSymbol      string
	PriceUSD        decimal.Decimal
	LiquidityUSD    decimal.Decimal
	VolumeUSD24h    decimal.Decimal
	TxCount24h      int64
	TopHolderShare  decimal.Decimal
	HolderCount     int
	LiquidityLocked bool
	PairCreatedAt   time.Time
	History         []Sample
}

// Sample is one historical volume/liquidity observation, chronological when
// carried in PairRecord.History.
type Sample struct {
	Timestamp    time.Time
	VolumeUSD    decimal.Decimal
	LiquidityUSD decimal.Decimal
}

// Wire shapes for the upstream JSON payloads. Fields the screener does not
// use are omitted on purpose.

type profilePayload struct {
	URL          string `json:"url"`
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Description  string `json:"description"`
}

type pairPayload struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
	Liquidity struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"volume"`
	Txns struct {
		H24 struct {
			Buys  int64 `json:"buys"`
			Sells int64 `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	// Milliseconds since epoch.
	PairCreatedAt int64 `json:"pairCreatedAt"`
}

type auditPayload struct {
	TopHolders []struct {
		Address string `json:"address"`
		// Percentage of supply, 0-100.
		Percentage decimal.Decimal `json:"percentage"`
	} `json:"topHolders"`
	TotalHolders    int  `json:"totalHolders"`
	LiquidityLocked bool `json:"liquidityLocked"`
}
