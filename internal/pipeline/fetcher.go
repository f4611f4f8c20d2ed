package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/copomatas/internal/cache"
	"github.com/ppiankov/copomatas/internal/logger"
	"github.com/ppiankov/copomatas/internal/model"
	"github.com/ppiankov/copomatas/internal/util"
	"github.com/ppiankov/copomatas/internal/worker"
)

// errRobotsDisallowed is returned when robots.txt forbids a URL
var errRobotsDisallowed = errors.New("disallowed by robots.txt")

// Fetcher issues the upstream GET requests of the pipeline
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	cache      cache.Cache
	log        *logger.Logger
}

// NewFetcher creates a Fetcher from the HTTP settings. respCache may be nil.
func NewFetcher(cfg model.HTTPConfig, respCache cache.Cache, log *logger.Logger) *Fetcher {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		cache:      respCache,
		log:        log,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, cfg.UserAgent)
	}
	return f
}

// GetJSON fetches rawURL and decodes its JSON body into v
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := f.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		// a maintenance page served with 200 must not stick in the cache
		if f.cache != nil {
			if delErr := f.cache.Delete(cache.Key(rawURL)); delErr != nil {
				f.log.Warn("cache evict failed", "url", rawURL, "error", delErr)
			}
		}
		return fmt.Errorf("decode JSON from %s: %w", rawURL, err)
	}
	return nil
}

// GetBytes fetches rawURL and returns its raw body
func (f *Fetcher) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return f.get(ctx, rawURL, "application/pdf,*/*;q=0.8")
}

func (f *Fetcher) get(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	var key string
	if f.cache != nil {
		key = cache.Key(rawURL)
		if body, found := f.cache.Get(key); found {
			f.log.Debug("cache hit", "url", rawURL)
			return body, nil
		}
	}

	crawlDelay := f.checkRobots(ctx, rawURL)
	if crawlDelay < 0 {
		return nil, &model.NetworkError{URL: rawURL, Err: errRobotsDisallowed}
	}
	if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}

	body, err := f.fetch(ctx, rawURL, accept)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(key, body, 0); err != nil {
			f.log.Warn("cache write failed", "url", rawURL, "error", err)
		}
	}
	return body, nil
}

// checkRobots returns the crawl delay for rawURL, or -1 when disallowed
func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) (delay time.Duration) {
	if f.robots == nil {
		return 0
	}
	allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil || !allowed {
		return -1
	}
	return delay
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	f.log.Debug("GET", "url", rawURL)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.NetworkError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}
