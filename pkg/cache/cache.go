// Package cache stores rendered artifacts keyed by everything that
// determines their bytes.
//
// Rendering is deterministic: the same script source, seed, canvas size and
// output options always produce the same image. An artifact cached under a
// [Keyer.RenderKey] is therefore exact, not an approximation, and entries
// only expire to bound storage.
//
// Three backends implement [Cache]:
//   - [FileCache] stores entries as JSON files for CLI use
//   - [RedisCache] shares entries between server instances
//   - [NullCache] disables caching
package cache

import (
	"context"
	"image"
	"time"
)

// TTLArtifact bounds how long a rendered artifact is kept.
const TTLArtifact = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they hold.
type Clearer interface {
	// Clear removes every entry and reports how many were removed.
	Clear(ctx context.Context) (int, error)
}

// RenderKeyOpts lists the inputs that determine a rendered artifact.
type RenderKeyOpts struct {
	Seed           uint64            `json:"seed"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	Format         string            `json:"format"`
	Quality        int               `json:"quality,omitempty"`
	Thumbnail      int               `json:"thumbnail,omitempty"`
	Screens        []image.Rectangle `json:"screens,omitempty"`
	DisableMenubar bool              `json:"disable_menubar,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// RenderKey returns the key of the artifact rendered from source with opts.
	RenderKey(source string, opts RenderKeyOpts) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RenderKey hashes the source together with opts.
func (DefaultKeyer) RenderKey(source string, opts RenderKeyOpts) string {
	return hashKey("render", Hash([]byte(source)), opts)
}

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one backend without seeing each other's entries.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// RenderKey returns the inner key with the prefix prepended.
func (k *ScopedKeyer) RenderKey(source string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(source, opts)
}
