package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/topdraw/topdraw/pkg/cache"
	"github.com/topdraw/topdraw/pkg/compositor"
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/export"
	"github.com/topdraw/topdraw/pkg/observability"
	"github.com/topdraw/topdraw/pkg/random"
)

// Runner renders scripts with caching.
//
// The Runner is stateless except for the cache and logger, so one Runner can
// serve concurrent renders. Each render gets its own Compositor.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    cache.TTLArtifact,
	}
}

// cachedRender is the cache payload of one render.
type cachedRender struct {
	Artifacts [][]byte `json:"artifacts"`
	Log       []string `json:"log,omitempty"`
}

// Execute renders opts.Source.
//
// Invalid options fail with a nil Result. Evaluation failures return the
// Result collected so far (log, seed, line) together with the error.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{Format: opts.format, Seed: opts.Seed}
	fresh := opts.Seed == 0
	if fresh {
		result.Seed = random.DeviceSeed()
		opts.Logger.Debug("derived seed from device", "seed", result.Seed)
	}
	result.CacheInfo.Bypass = fresh || opts.Refresh

	key := r.Keyer.RenderKey(opts.Source, opts.RenderKeyOpts(result.Seed))
	if !result.CacheInfo.Bypass {
		if cached, ok := r.lookup(ctx, key); ok {
			result.Artifacts = cached.Artifacts
			result.Log = cached.Log
			result.CacheInfo.Hit = true
			opts.Logger.Debug("render cache hit", "script", opts.Name, "seed", result.Seed)
			return result, nil
		}
	}

	img, err := r.evaluate(ctx, &opts, result)
	if err != nil {
		return result, err
	}
	result.Image = img

	encodeStart := time.Now()
	for _, part := range export.Partition(img, opts.Screens) {
		part = export.Thumbnail(part, opts.Thumbnail)
		var buf bytes.Buffer
		if err := export.Encode(&buf, part, opts.format, opts.Quality); err != nil {
			return result, err
		}
		result.Artifacts = append(result.Artifacts, buf.Bytes())
	}
	result.Stats.EncodeTime = time.Since(encodeStart)
	size := 0
	for _, a := range result.Artifacts {
		size += len(a)
	}
	observability.Render().OnEncodeComplete(ctx, opts.Format, size, result.Stats.EncodeTime)

	opts.Logger.Info("rendered",
		"script", opts.Name,
		"seed", result.Seed,
		"size", img.Bounds().Size(),
		"images", len(result.Artifacts),
		"duration", result.Stats.Elapsed())

	if !fresh {
		r.store(ctx, key, result)
	}
	return result, nil
}

// evaluate runs the script under opts.Timeout. The watchdog goroutine only
// calls Compositor.Interrupt, which is safe across goroutines.
func (r *Runner) evaluate(ctx context.Context, opts *Options, result *Result) (*image.RGBA, error) {
	c := compositor.New(opts.Source, opts.Name)
	defer c.Close()
	if err := c.SetMaximumSize(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	c.SetMenubarEnabled(!opts.DisableMenubar)
	c.SetLogCallback(func(msg string) {
		result.Log = append(result.Log, msg)
		opts.Logger.Info(msg, "script", opts.Name)
	})

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Interrupt(ctx.Err().Error())
		case <-done:
		}
	}()

	observability.Render().OnEvaluateStart(ctx, opts.Name, result.Seed)
	start := time.Now()
	err := c.Evaluate(result.Seed)
	result.Stats.EvaluateTime = time.Since(start)
	observability.Render().OnEvaluateComplete(ctx, opts.Name, result.Stats.EvaluateTime, err)
	if err != nil {
		result.Line = errors.LineOf(err)
		opts.Logger.Debug("evaluation failed", "script", opts.Name, "line", result.Line, "err", err)
		return nil, err
	}

	img, err := c.Image()
	if err != nil {
		return nil, err
	}
	// The composite outlives the Compositor, which is closed on return.
	return img, nil
}

func (r *Runner) lookup(ctx context.Context, key string) (*cachedRender, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("render cache lookup failed", "err", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "render")
		return nil, false
	}
	var cached cachedRender
	if err := json.Unmarshal(data, &cached); err != nil || len(cached.Artifacts) == 0 {
		observability.Cache().OnCacheMiss(ctx, "render")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "render")
	return &cached, true
}

func (r *Runner) store(ctx context.Context, key string, result *Result) {
	data, err := json.Marshal(cachedRender{Artifacts: result.Artifacts, Log: result.Log})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		r.Logger.Warn("render cache store failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "render", len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
