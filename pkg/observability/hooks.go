// Package observability provides hooks for metrics, tracing and logging.
//
// Libraries emit events through the registered hooks; main registers
// implementations at startup. The defaults are no-ops, so nothing is
// recorded unless a binary opts in:
//
//	func main() {
//	    observability.SetRenderHooks(observability.NewLogHooks(logger))
//	    // ... run application
//	}
//
// The pipeline reports each render:
//
//	observability.Render().OnEvaluateStart(ctx, name, seed)
//	// ... evaluate and composite ...
//	observability.Render().OnEvaluateComplete(ctx, name, duration, err)
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Hook Interfaces
// =============================================================================

// RenderHooks receives events from the render pipeline.
type RenderHooks interface {
	// OnEvaluateStart fires before a script is evaluated.
	OnEvaluateStart(ctx context.Context, name string, seed uint64)
	// OnEvaluateComplete fires after evaluation and compositing.
	OnEvaluateComplete(ctx context.Context, name string, duration time.Duration, err error)
	// OnEncodeComplete fires after the composite is encoded.
	OnEncodeComplete(ctx context.Context, format string, size int, duration time.Duration)
}

// CacheHooks receives events from cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the render server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnEvaluateStart(context.Context, string, uint64)                  {}
func (NoopRenderHooks) OnEvaluateComplete(context.Context, string, time.Duration, error) {}
func (NoopRenderHooks) OnEncodeComplete(context.Context, string, int, time.Duration)     {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Logging Implementation
// =============================================================================

// LogHooks writes every event to a logger at debug level, and failed
// evaluations at warn level. It implements all three hook interfaces.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{logger: l}
}

func (h *LogHooks) OnEvaluateStart(_ context.Context, name string, seed uint64) {
	h.logger.Debug("evaluating", "script", name, "seed", seed)
}

func (h *LogHooks) OnEvaluateComplete(_ context.Context, name string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("evaluation failed", "script", name, "duration", d, "err", err)
		return
	}
	h.logger.Debug("evaluated", "script", name, "duration", d)
}

func (h *LogHooks) OnEncodeComplete(_ context.Context, format string, size int, d time.Duration) {
	h.logger.Debug("encoded", "format", format, "bytes", size, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Info("response", "method", method, "path", path, "status", status, "duration", d)
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	renderHooks RenderHooks = NoopRenderHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetRenderHooks registers render hooks. nil is ignored.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers server hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered server hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	renderHooks = NoopRenderHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
