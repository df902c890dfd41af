package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/protodo/core/internal/infrastructure/config"
	"github.com/protodo/core/internal/infrastructure/logger"
)

// CacheGateway serves shell assets cache-first: a cached response wins
// outright, a network miss is fetched and written through, and total
// failure degrades to a synthetic 503. Entries live under a single active
// version tag; bumping the tag is the only invalidation mechanism, and
// stale generations are purged on activation.
//
// Fetch never reports an error to its caller. RoundTrip makes the gateway
// usable as an http.RoundTripper, ServeHTTP as a reverse proxy handler.
type CacheGateway struct {
	version string
	origin  *url.URL
	assets  []string
	client  *http.Client
	logger  *logger.Logger
	metrics *gatewayMetrics

	mu     sync.RWMutex
	caches map[string]map[string]*cachedEntry // version tag -> request key -> entry
}

type cachedEntry struct {
	status int
	header http.Header
	body   []byte
}

type gatewayMetrics struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	network prometheus.Counter
	offline prometheus.Counter
}

// New creates a cache gateway from configuration. A nil httpClient falls
// back to http.DefaultClient; a nil registerer skips metric registration.
func New(cfg config.CacheConfig, httpClient *http.Client, appLogger *logger.Logger, reg prometheus.Registerer) (*CacheGateway, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("invalid cache origin %q", cfg.Origin)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	g := &CacheGateway{
		version: cfg.Version,
		origin:  origin,
		assets:  cfg.Assets,
		client:  httpClient,
		logger:  appLogger.WithComponent("cache_gateway"),
		metrics: newGatewayMetrics(reg),
		caches:  map[string]map[string]*cachedEntry{cfg.Version: {}},
	}
	return g, nil
}

func newGatewayMetrics(reg prometheus.Registerer) *gatewayMetrics {
	m := &gatewayMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_gateway_hits_total",
			Help: "Requests served from the active cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_gateway_misses_total",
			Help: "Requests not found in the active cache",
		}),
		network: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_gateway_network_fetches_total",
			Help: "Requests forwarded to the network",
		}),
		offline: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_gateway_offline_responses_total",
			Help: "Synthetic offline responses returned",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.network, m.offline)
	}
	return m
}

// Install pre-populates the active cache with the shell asset manifest.
// Any single failed asset fails the whole install; the gateway must not be
// activated afterwards.
func (g *CacheGateway) Install(ctx context.Context) error {
	for _, asset := range g.assets {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.resolve(asset), nil)
		if err != nil {
			return fmt.Errorf("failed to build install request for %s: %w", asset, err)
		}

		resp, err := g.fetchNetwork(req)
		if err != nil {
			return fmt.Errorf("failed to install asset %s: %w", asset, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to install asset %s: %w", asset, readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to install asset %s: status %d", asset, resp.StatusCode)
		}

		entry := &cachedEntry{status: resp.StatusCode, header: resp.Header.Clone(), body: body}
		g.mu.Lock()
		g.caches[g.version][cacheKey(req)] = entry
		g.mu.Unlock()
	}

	g.logger.Infow("Cache installed", "version", g.version, "assets", len(g.assets))
	return nil
}

// Activate purges every cache generation whose version tag differs from
// the active one.
func (g *CacheGateway) Activate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for tag := range g.caches {
		if tag != g.version {
			delete(g.caches, tag)
		}
	}
	if g.caches[g.version] == nil {
		g.caches[g.version] = map[string]*cachedEntry{}
	}

	g.logger.Infow("Cache activated", "version", g.version)
}

// Fetch resolves a request cache-first and never returns an error: the
// result is a cached response, a live network response, or a synthetic
// 503 when both are unavailable.
func (g *CacheGateway) Fetch(req *http.Request) *http.Response {
	key := cacheKey(req)

	if entry := g.lookup(key); entry != nil {
		g.metrics.hits.Inc()
		return entry.response(req)
	}
	g.metrics.misses.Inc()

	resp, err := g.fetchNetwork(req)
	if err == nil {
		return g.writeThrough(key, req, resp)
	}

	// Documented fallback: re-check the cache before giving up. Step one
	// found nothing, so this is effectively dead, but it is part of the
	// fetch contract.
	if entry := g.lookup(key); entry != nil {
		return entry.response(req)
	}

	g.metrics.offline.Inc()
	g.logger.Debugw("Serving offline response", "url", req.URL.String(), "error", err)
	return offlineResponse(req)
}

// RoundTrip implements http.RoundTripper over Fetch.
func (g *CacheGateway) RoundTrip(req *http.Request) (*http.Response, error) {
	return g.Fetch(req), nil
}

// ServeHTTP proxies the incoming path against the configured origin
// through the cache.
func (g *CacheGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, g.resolve(r.URL.Path), nil)
	if err != nil {
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	resp := g.Fetch(req)
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// fetchNetwork forwards the request to the network, counting the attempt.
func (g *CacheGateway) fetchNetwork(req *http.Request) (*http.Response, error) {
	g.metrics.network.Inc()
	return g.client.Do(req)
}

// writeThrough stores a cacheable response under the active version and
// returns it. Only same-origin 200 GET responses are cached; anything
// else passes through untouched. Cross-origin results stand in for opaque
// responses, whose contents the caller cannot vouch for.
func (g *CacheGateway) writeThrough(key string, req *http.Request, resp *http.Response) *http.Response {
	cacheable := req.Method == http.MethodGet &&
		resp.StatusCode == http.StatusOK &&
		g.sameOrigin(resp)
	if !cacheable {
		return resp
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		g.logger.Warnw("Failed to read response for caching", "url", req.URL.String(), "error", err)
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp
	}

	entry := &cachedEntry{
		status: resp.StatusCode,
		header: resp.Header.Clone(),
		body:   body,
	}

	g.mu.Lock()
	if g.caches[g.version] == nil {
		g.caches[g.version] = map[string]*cachedEntry{}
	}
	g.caches[g.version][key] = entry
	g.mu.Unlock()

	return entry.response(req)
}

func (g *CacheGateway) lookup(key string) *cachedEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.caches[g.version][key]
}

func (g *CacheGateway) sameOrigin(resp *http.Response) bool {
	if resp.Request == nil || resp.Request.URL == nil {
		return false
	}
	return resp.Request.URL.Host == g.origin.Host
}

func (g *CacheGateway) resolve(path string) string {
	base := strings.TrimRight(g.origin.String(), "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

func (e *cachedEntry) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    e.status,
		Status:        http.StatusText(e.status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}
}

func offlineResponse(req *http.Request) *http.Response {
	body := []byte("Offline")
	return &http.Response{
		StatusCode:    http.StatusServiceUnavailable,
		Status:        "Offline",
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
