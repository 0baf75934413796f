package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RequestsPerMin: 6000,
		MaxRetries:     3,
	}
}

const profilesBody = `[
	{"url": "https://dexscreener.com/solana/tok1", "chainId": "solana", "tokenAddress": "Tok1", "name": "Token One", "symbol": "ONE"},
	{"url": "https://dexscreener.com/ethereum/tok2", "chainId": "ethereum", "tokenAddress": "Tok2", "name": "Token Two", "symbol": "TWO"},
	{"url": "https://dexscreener.com/solana/tok3", "chainId": "solana", "tokenAddress": "Tok3", "name": "Token Three", "symbol": "THREE"}
]`

func TestLatestProfilesFiltersByChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != profilesPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(profilesBody))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	profiles, err := client.LatestProfiles(context.Background(), "solana")
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 solana profiles, got %d", len(profiles))
	}
	if profiles[0].TokenAddress != "Tok1" || profiles[1].TokenAddress != "Tok3" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
	if profiles[0].Symbol != "ONE" {
		t.Fatalf("expected symbol ONE, got %s", profiles[0].Symbol)
	}
}

const pairsBody = `[
	{"chainId": "solana", "dexId": "raydium", "pairAddress": "PairA",
	 "baseToken": {"address": "TokY", "name": "TokenY", "symbol": "TKY"},
	 "priceUsd": "0.05",
	 "liquidity": {"usd": 12000},
	 "volume": {"h24": 40000},
	 "txns": {"h24": {"buys": 200, "sells": 150}},
	 "pairCreatedAt": 1700000000000},
	{"chainId": "solana", "dexId": "orca", "pairAddress": "PairB",
	 "baseToken": {"address": "TokY", "name": "TokenY", "symbol": "TKY"},
	 "priceUsd": "0.05",
	 "liquidity": {"usd": 90000},
	 "volume": {"h24": 5000},
	 "txns": {"h24": {"buys": 10, "sells": 5}}}
]`

func TestPairDataSelectsHighestVolumePair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-pairs/v1/solana/TokY" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(pairsBody))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	rec, err := client.PairData(context.Background(), "solana", "TokY")
	if err != nil {
		t.Fatalf("PairData: %v", err)
	}
	if rec.PairAddress != "PairA" {
		t.Fatalf("expected highest-volume pair PairA, got %s", rec.PairAddress)
	}
	if rec.TxCount24h != 350 {
		t.Fatalf("expected combined tx count 350, got %d", rec.TxCount24h)
	}
	if !rec.LiquidityUSD.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("unexpected liquidity %s", rec.LiquidityUSD.String())
	}
	if rec.PairCreatedAt.IsZero() {
		t.Fatal("expected pair creation time to be set")
	}
}

func TestPairDataMergesAudit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token-pairs/v1/solana/TokY", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pairsBody))
	})
	mux.HandleFunc("/token/TokY/audit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"topHolders": [{"address": "H1", "percentage": 15.0}, {"address": "H2", "percentage": 12.5}],
			"totalHolders": 650,
			"liquidityLocked": true
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.AuditBaseURL = srv.URL
	client := NewClient(opts, zerolog.Nop())

	rec, err := client.PairData(context.Background(), "solana", "TokY")
	if err != nil {
		t.Fatalf("PairData: %v", err)
	}
	if !rec.TopHolderShare.Equal(decimal.NewFromFloat(0.15)) {
		t.Fatalf("expected top holder share 0.15, got %s", rec.TopHolderShare.String())
	}
	if rec.HolderCount != 650 {
		t.Fatalf("expected 650 holders, got %d", rec.HolderCount)
	}
	if !rec.LiquidityLocked {
		t.Fatal("expected liquidity locked")
	}
}

func TestPairDataNoPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	_, err := client.PairData(context.Background(), "solana", "Missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, "", ErrNotFound},
		{"server error", http.StatusInternalServerError, "boom", ErrUpstreamUnavailable},
		{"bad gateway", http.StatusBadGateway, "", ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewClient(testOptions(srv.URL), zerolog.Nop())
			_, err := client.LatestProfiles(context.Background(), "solana")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	_, err := client.LatestProfiles(context.Background(), "solana")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestRateLimitedRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(profilesBody))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	profiles, err := client.LatestProfiles(context.Background(), "solana")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles after retry, got %d", len(profiles))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls.Load())
	}
}

func TestPairDataCacheHit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(pairsBody))
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.CacheTTL = time.Minute
	client := NewClient(opts, zerolog.Nop())

	ctx := context.Background()
	first, err := client.PairData(ctx, "solana", "TokY")
	if err != nil {
		t.Fatalf("first PairData: %v", err)
	}
	second, err := client.PairData(ctx, "solana", "TokY")
	if err != nil {
		t.Fatalf("second PairData: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
	if first.PairAddress != second.PairAddress {
		t.Fatal("cache must return the same record")
	}
}
