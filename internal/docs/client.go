package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"chipauth/internal/logging"
)

// Config holds HTTP documentation service settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns sensible client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:  5 * time.Second,
		CacheTTL: 30 * time.Minute,
	}
}

// HTTPClient queries a documentation service over HTTP. Results are cached
// by part number so speculative lookups and retries stay cheap.
type HTTPClient struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	log        *slog.Logger
}

// NewHTTPClient creates a documentation lookup client.
func NewHTTPClient(config Config, log *slog.Logger) (*HTTPClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("documentation base URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if log == nil {
		log = logging.Discard()
	}

	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		log:        log,
	}, nil
}

// lookupResponse is the documentation service wire format.
type lookupResponse struct {
	Found      bool   `json:"found"`
	SourceTier string `json:"source_tier"`
	Reference  string `json:"reference"`
}

// Lookup queries the service for one part number. Any failure (transport
// error, timeout, bad status, malformed body) degrades to not found.
func (c *HTTPClient) Lookup(ctx context.Context, partNumber, manufacturerHint string) Result {
	if partNumber == "" {
		return NotFound()
	}

	if cached, ok := c.cache.Get(partNumber); ok {
		return cached.(Result)
	}

	result := c.query(ctx, partNumber, manufacturerHint)
	c.cache.Set(partNumber, result, cache.DefaultExpiration)
	return result
}

func (c *HTTPClient) query(ctx context.Context, partNumber, manufacturerHint string) Result {
	endpoint := fmt.Sprintf("%s/parts/%s", c.config.BaseURL, url.PathEscape(partNumber))
	if manufacturerHint != "" {
		endpoint += "?manufacturer=" + url.QueryEscape(manufacturerHint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.log.Warn("documentation request build failed", "part", partNumber, "error", err)
		return NotFound()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("documentation lookup unavailable", "part", partNumber, "error", err)
		return NotFound()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return NotFound()
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("documentation lookup failed", "part", partNumber, "status", resp.StatusCode)
		return NotFound()
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warn("documentation response malformed", "part", partNumber, "error", err)
		return NotFound()
	}
	if !body.Found {
		return NotFound()
	}

	tier := Tier(body.SourceTier)
	switch tier {
	case TierManufacturer, TierDistributor, TierAggregator:
	default:
		tier = TierAggregator
	}

	return Result{Found: true, Tier: tier, Reference: body.Reference}
}
