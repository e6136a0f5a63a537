// Package imvdb is a client for the IMVDb music-video metadata API.
// Every call runs under a shared rate and concurrency budget; cached
// responses bypass the rate budget entirely.
package imvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/asotbz/fuzzbin/internal/infra"
	"github.com/asotbz/fuzzbin/internal/ratelimit"
)

// ErrNotFound indicates the requested entity does not exist upstream.
var ErrNotFound = errors.New("imvdb: not found")

const maxResponseBytes = 4 << 20

// Options configures the IMVDb client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger

	// PerMinute is the configured request quota; Burst caps accumulation.
	PerMinute float64
	Burst     float64
	// MaxConcurrent caps in-flight requests.
	MaxConcurrent int
	// CacheTTL enables the response cache when positive.
	CacheTTL time.Duration
}

// Client performs governed HTTP calls to the IMVDb API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger

	gov   *ratelimit.Governor
	cache *responseCache

	quotaMu   sync.Mutex
	perMinute float64
}

// Artist is an IMVDb artist credit.
type Artist struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Video is the normalized IMVDb video entity.
type Video struct {
	ID        int      `json:"id"`
	SongTitle string   `json:"song_title"`
	Year      int      `json:"year"`
	Directors string   `json:"directors_raw"`
	Artists   []Artist `json:"artists"`
}

type searchResponse struct {
	TotalResults int     `json:"total_results"`
	Results      []Video `json:"results"`
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://imvdb.com/api/v1"
	}
	perMinute := opts.PerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{PerMinute: perMinute, Burst: opts.Burst})
	if err != nil {
		return nil, fmt.Errorf("imvdb: limiter: %w", err)
	}
	sem, err := ratelimit.NewSemaphore(maxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("imvdb: semaphore: %w", err)
	}
	var cache *responseCache
	if opts.CacheTTL > 0 {
		cache = newResponseCache(opts.CacheTTL)
	}
	gov, err := ratelimit.NewGovernor(ratelimit.GovernorOptions{
		Limiter:    limiter,
		Sem:        sem,
		CacheAware: cache != nil,
	})
	if err != nil {
		return nil, fmt.Errorf("imvdb: governor: %w", err)
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		gov:        gov,
		cache:      cache,
		perMinute:  perMinute,
	}, nil
}

// Governor exposes the client's call budgets, mainly for tests and
// introspection endpoints.
func (c *Client) Governor() *ratelimit.Governor { return c.gov }

// SearchVideos looks up videos matching an artist and song title.
func (c *Client) SearchVideos(ctx context.Context, artist, title string) ([]Video, error) {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(artist+" "+title))
	var out searchResponse
	if err := c.getJSON(ctx, "/search/videos", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetVideo fetches one video by IMVDb id.
func (c *Client) GetVideo(ctx context.Context, id int) (*Video, error) {
	var out Video
	if err := c.getJSON(ctx, fmt.Sprintf("/video/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs one governed GET. A cache hit decodes the stored body
// and reports itself to the governor so no rate budget is charged.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.gov.Do(ctx, func(ctx context.Context) (bool, error) {
		if c.cache != nil {
			if body, ok := c.cache.get(u); ok {
				return true, json.Unmarshal(body, out)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return false, fmt.Errorf("imvdb: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("IMVDB-APP-KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return false, fmt.Errorf("imvdb: request: %w", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return false, fmt.Errorf("imvdb: read response: %w", err)
		}

		c.observeQuota(resp.Header)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, ErrNotFound
		case resp.StatusCode != http.StatusOK:
			var envelope errorResponse
			if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Message != "" {
				return false, fmt.Errorf("imvdb: %s (status %d)", envelope.Message, resp.StatusCode)
			}
			return false, fmt.Errorf("imvdb: unexpected status %d", resp.StatusCode)
		}

		if c.cache != nil {
			c.cache.set(u, body)
		}
		return false, json.Unmarshal(body, out)
	})
}

// observeQuota retunes the local limiter from the service's own view of
// the per-minute quota. A small difference is noise and is ignored so
// the limiter does not thrash.
func (c *Client) observeQuota(h http.Header) {
	raw := h.Get("X-Ratelimit-Limit")
	if raw == "" {
		return
	}
	reported, err := strconv.ParseFloat(raw, 64)
	if err != nil || reported <= 0 {
		return
	}
	c.quotaMu.Lock()
	defer c.quotaMu.Unlock()
	diff := reported - c.perMinute
	if diff < 0 {
		diff = -diff
	}
	if diff/c.perMinute <= 0.10 {
		return
	}
	if err := c.gov.Limiter().SetRate(reported / 60); err != nil {
		return
	}
	c.logger.Info().
		Float64("configured_per_minute", c.perMinute).
		Float64("reported_per_minute", reported).
		Msg("imvdb: retuned rate limit from response headers")
	c.perMinute = reported
}
