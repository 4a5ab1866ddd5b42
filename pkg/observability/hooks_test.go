package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Filter hooks
	f := NoopFilterHooks{}
	f.OnFilterToggled("activity", true, 10, 12)
	f.OnFilterRejected("communities", "no community map")

	// Detection hooks
	d := NoopDetectionHooks{}
	d.OnDetectStart(ctx, "louvain", 100)
	d.OnDetectComplete(ctx, "louvain", 4, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "detect")
	c.OnCacheMiss(ctx, "detect")
	c.OnCacheSet(ctx, "detect", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "localhost:8000", "/history/analyze/communities")
	h.OnResponse(ctx, "POST", "localhost:8000", "/history/analyze/communities", 200, time.Second)
	h.OnError(ctx, "POST", "localhost:8000", "/history/analyze/communities", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Filter().(NoopFilterHooks); !ok {
		t.Error("Filter() should return NoopFilterHooks by default")
	}
	if _, ok := Detection().(NoopDetectionHooks); !ok {
		t.Error("Detection() should return NoopDetectionHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customFilter := &testFilterHooks{}
	SetFilterHooks(customFilter)
	if Filter() != customFilter {
		t.Error("SetFilterHooks should set custom hooks")
	}

	customDetection := &testDetectionHooks{}
	SetDetectionHooks(customDetection)
	if Detection() != customDetection {
		t.Error("SetDetectionHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Filter().(NoopFilterHooks); !ok {
		t.Error("Reset() should restore NoopFilterHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testFilterHooks{}
	SetFilterHooks(custom)

	// Setting nil should be ignored
	SetFilterHooks(nil)

	if Filter() != custom {
		t.Error("SetFilterHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testFilterHooks struct{ NoopFilterHooks }
type testDetectionHooks struct{ NoopDetectionHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
