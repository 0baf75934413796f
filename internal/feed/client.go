package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	profilesPath      = "/token-profiles/latest/v1"
	pairsPathTemplate = "/token-pairs/v1/%s/%s"
	auditPathTemplate = "/token/%s/audit"
)

// Source supplies token profiles and pair data for the screening pipeline.
type Source interface {
	LatestProfiles(ctx context.Context, chain string) ([]TokenProfile, error)
	PairData(ctx context.Context, chain, tokenAddress string) (PairRecord, error)
}

// Options parameterise the feed client.
type Options struct {
	BaseURL        string
	AuditBaseURL   string
	Timeout        time.Duration
	UserAgent      string
	RequestsPerMin int
	MaxRetries     int
	CacheTTL       time.Duration
}

// Client fetches token metadata from a DexScreener-compatible API.
type Client struct {
	opts     Options
	logger   zerolog.Logger
	client   *http.Client
	limiter  *rate.Limiter
	cache    *cache.Cache
	baseURL  string
	auditURL string
}

// NewClient constructs a feed client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}

	// The public API allows 60 requests per minute.
	perMin := opts.RequestsPerMin
	if perMin <= 0 {
		perMin = 60
	}

	var pairCache *cache.Cache
	if opts.CacheTTL > 0 {
		pairCache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	return &Client{
		opts:     opts,
		logger:   logger.With().Str("component", "feed_client").Logger(),
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1),
		cache:    pairCache,
		baseURL:  baseURL,
		auditURL: strings.TrimRight(opts.AuditBaseURL, "/"),
	}
}

// LatestProfiles fetches the latest token profiles and keeps only those on
// the given chain.
func (c *Client) LatestProfiles(ctx context.Context, chain string) ([]TokenProfile, error) {
	var payload []profilePayload
	if err := c.getJSON(ctx, c.baseURL+profilesPath, &payload); err != nil {
		return nil, fmt.Errorf("fetch token profiles: %w", err)
	}

	profiles := make([]TokenProfile, 0, len(payload))
	for _, p := range payload {
		if p.ChainID != chain || p.TokenAddress == "" {
			continue
		}
		profiles = append(profiles, TokenProfile{
			TokenAddress: p.TokenAddress,
			ChainID:      p.ChainID,
			Name:         p.Name,
			Symbol:       p.Symbol,
			Description:  p.Description,
			URL:          p.URL,
		})
	}

	c.logger.Debug().Int("total", len(payload)).Int("on_chain", len(profiles)).
		Str("chain", chain).Msg("fetched token profiles")

	return profiles, nil
}

// PairData fetches pair and audit data for one token. Among the token's
// pairs the one with the highest 24h volume is selected.
func (c *Client) PairData(ctx context.Context, chain, tokenAddress string) (PairRecord, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(tokenAddress); ok {
			return cached.(PairRecord), nil
		}
	}

	var pairs []pairPayload
	url := c.baseURL + fmt.Sprintf(pairsPathTemplate, chain, tokenAddress)
	if err := c.getJSON(ctx, url, &pairs); err != nil {
		return PairRecord{}, fmt.Errorf("fetch pairs for %s: %w", tokenAddress, err)
	}
	if len(pairs) == 0 {
		return PairRecord{}, fmt.Errorf("fetch pairs for %s: %w", tokenAddress, ErrNotFound)
	}

	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Volume.H24.GreaterThan(best.Volume.H24) {
			best = p
		}
	}

	record := PairRecord{
		TokenAddress: tokenAddress,
		PairAddress:  best.PairAddress,
		DexID:        best.DexID,
		BaseName:     best.BaseToken.Name,
		BaseSymbol:   best.BaseToken.Symbol,
		PriceUSD:     best.PriceUSD,
		LiquidityUSD: best.Liquidity.USD,
		VolumeUSD24h: best.Volume.H24,
		TxCount24h:   best.Txns.H24.Buys + best.Txns.H24.Sells,
	}
	if best.PairCreatedAt > 0 {
		record.PairCreatedAt = time.UnixMilli(best.PairCreatedAt).UTC()
	}

	if c.auditURL != "" {
		audit, err := c.fetchAudit(ctx, tokenAddress)
		if err != nil {
			return PairRecord{}, fmt.Errorf("fetch audit for %s: %w", tokenAddress, err)
		}
		record.HolderCount = audit.TotalHolders
		record.LiquidityLocked = audit.LiquidityLocked
		for _, h := range audit.TopHolders {
			share := h.Percentage.Div(decimalHundred)
			if share.GreaterThan(record.TopHolderShare) {
				record.TopHolderShare = share
			}
		}
	}

	if c.cache != nil {
		c.cache.Set(tokenAddress, record, cache.DefaultExpiration)
	}

	return record, nil
}

func (c *Client) fetchAudit(ctx context.Context, tokenAddress string) (auditPayload, error) {
	var payload auditPayload
	url := c.auditURL + fmt.Sprintf(auditPathTemplate, tokenAddress)
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return auditPayload{}, err
	}
	return payload, nil
}

// getJSON performs one rate-limited GET, retrying with exponential backoff
// while the provider throttles. Any other failure is permanent.
func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	operation := func() error {
		err := c.doGet(ctx, url, target)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRateLimited) {
			c.logger.Warn().Str("url", url).Msg("rate limited, backing off")
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(max(c.opts.MaxRetries, 0)))
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (c *Client) doGet(ctx context.Context, url string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "solscreener/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

var _ Source = (*Client)(nil)
