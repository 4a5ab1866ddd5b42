package community

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/netlens/pkg/cache"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/observability"
)

const keyTypeDetect = "detect"

// CachedDetector memoizes complete responses of another detector.
// Cache failures are logged and otherwise ignored.
type CachedDetector struct {
	inner  Detector
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedDetector wraps inner. A nil keyer uses the default key layout and
// a nil logger discards cache warnings.
func NewCachedDetector(inner Detector, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *CachedDetector {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachedDetector{inner: inner, cache: c, keyer: keyer, ttl: ttl, logger: logger}
}

// Detect returns a cached response for the same graph and algorithm, or
// calls the wrapped detector and caches a complete answer.
func (d *CachedDetector) Detect(ctx context.Context, g *network.Graph, algorithm string) (*Response, error) {
	body, err := network.MarshalGraph(g)
	if err != nil {
		return d.inner.Detect(ctx, g, algorithm)
	}
	key := d.keyer.DetectKey(algorithm, body)
	hooks := observability.Cache()

	if data, ok, err := d.cache.Get(ctx, key); err != nil {
		d.logger.Warn("cache read failed", "key", key, "err", err)
	} else if ok {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			hooks.OnCacheHit(ctx, keyTypeDetect)
			d.logger.Debug("detection cache hit", "algorithm", algorithm)
			return &resp, nil
		}
	}
	hooks.OnCacheMiss(ctx, keyTypeDetect)

	resp, err := d.inner.Detect(ctx, g, algorithm)
	if err != nil || !resp.Complete() {
		return resp, err
	}
	if data, err := json.Marshal(resp); err == nil {
		if err := d.cache.Set(ctx, key, data, d.ttl); err != nil {
			d.logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeDetect, len(data))
		}
	}
	return resp, nil
}
