// Package cache provides byte-level caching for detection results and
// rendered artifacts.
//
// Three backends implement [Cache]:
//   - [FileCache] stores entries as JSON files, for the CLI
//   - [RedisCache] stores entries in Redis, for the HTTP service
//   - [NullCache] stores nothing, for tests and --no-cache
//
// Keys are built by a [Keyer] so that every backend and every caller agrees
// on the layout. [ScopedKeyer] prefixes keys to keep tenants apart.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// DetectKey identifies a community detection result for a graph.
	DetectKey(algorithm string, graph []byte) string

	// ArtifactKey identifies a rendered graph artifact.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the rendering options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Layout   string `json:"layout"`
	Directed bool   `json:"directed"`
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DetectKey returns "detect:<sha256(algorithm, graph)>".
func (DefaultKeyer) DetectKey(algorithm string, graph []byte) string {
	return hashKey("detect", algorithm, Hash(graph))
}

// ArtifactKey returns "artifact:<sha256(graphHash, opts)>".
func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
