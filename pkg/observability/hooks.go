// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about filter toggles, community detection, cache
// operations, and HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so the engine packages
// stay free of any particular metrics backend. See package metrics for the
// Prometheus implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetFilterHooks(&myFilterHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Detection().OnDetectStart(ctx, algorithm, nodeCount)
//	// ... call the detection service ...
//	observability.Detection().OnDetectComplete(ctx, algorithm, communities, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Filter Hooks
// =============================================================================

// FilterHooks receives events from the filter engine.
type FilterHooks interface {
	// OnFilterToggled records a filter transition and the size of the
	// resulting live graph.
	OnFilterToggled(filter string, active bool, nodes, links int)

	// OnFilterRejected records a toggle refused because its inputs were missing.
	OnFilterRejected(filter, reason string)
}

// =============================================================================
// Detection Hooks
// =============================================================================

// DetectionHooks receives events from community detection.
type DetectionHooks interface {
	OnDetectStart(ctx context.Context, algorithm string, nodeCount int)
	OnDetectComplete(ctx context.Context, algorithm string, communities int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, decode failure).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFilterHooks is a no-op implementation of FilterHooks.
type NoopFilterHooks struct{}

func (NoopFilterHooks) OnFilterToggled(string, bool, int, int) {}
func (NoopFilterHooks) OnFilterRejected(string, string)        {}

// NoopDetectionHooks is a no-op implementation of DetectionHooks.
type NoopDetectionHooks struct{}

func (NoopDetectionHooks) OnDetectStart(context.Context, string, int) {}
func (NoopDetectionHooks) OnDetectComplete(context.Context, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	filterHooks    FilterHooks    = NoopFilterHooks{}
	detectionHooks DetectionHooks = NoopDetectionHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetFilterHooks registers custom filter hooks.
// This should be called once at application startup before any filter is toggled.
func SetFilterHooks(h FilterHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		filterHooks = h
	}
}

// SetDetectionHooks registers custom detection hooks.
func SetDetectionHooks(h DetectionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		detectionHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Filter returns the registered filter hooks.
func Filter() FilterHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return filterHooks
}

// Detection returns the registered detection hooks.
func Detection() DetectionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return detectionHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	filterHooks = NoopFilterHooks{}
	detectionHooks = NoopDetectionHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
