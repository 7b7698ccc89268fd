// Package pipeline renders wallpaper scripts to encoded images.
//
// The pipeline is shared by the CLI and the HTTP server: it validates
// options, looks the artifact up in the render cache, evaluates the script
// in a [compositor.Compositor] under a deadline, and encodes the composite
// once per screen.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source: src,
//	    Name:   "stripes",
//	    Seed:   42,
//	})
//	if err != nil {
//	    log.Fatal(errors.UserMessage(err))
//	}
//	png := result.Artifacts[0]
//
// # Seeds
//
// The same source, seed, size and output options always render the same
// bytes, which is what makes cached artifacts exact. A seed of zero asks for
// a fresh image: the runner draws a seed from the operating system, reports
// it in [Result.Seed] and bypasses the cache.
package pipeline

import (
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/topdraw/topdraw/pkg/cache"
	"github.com/topdraw/topdraw/pkg/compositor"
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/export"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = compositor.DefaultWidth

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = compositor.DefaultHeight

	// DefaultFormat is the default output format.
	DefaultFormat = export.PNG

	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 30 * time.Second

	// DefaultName labels scripts that were not given a name.
	DefaultName = "untitled"
)

// =============================================================================
// Options - Render Configuration
// =============================================================================

// Options configures one render. The JSON form is the server's request body.
type Options struct {
	Source         string  `json:"source"`
	Name           string  `json:"name,omitempty"`
	Seed           uint64  `json:"seed,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Format         string  `json:"format,omitempty"`
	Quality        float64 `json:"quality,omitempty"`
	DisableMenubar bool    `json:"disable_menubar,omitempty"`
	Thumbnail      int     `json:"thumbnail,omitempty"` // Longest side of the output, 0 for full size
	Refresh        bool    `json:"refresh,omitempty"`   // Skip the cache lookup

	// Screens splits the output into one image per screen. The canvas then
	// covers the screens' bounding box and Width and Height are ignored.
	Screens []image.Rectangle `json:"-"`

	// Runtime options (not serialized)
	Timeout time.Duration `json:"-"`
	Logger  *log.Logger   `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
	// format is the parsed Format.
	format export.Format
}

// Result is the outcome of a render. On evaluation failures Execute
// returns a Result alongside the error, carrying the log and error line.
type Result struct {
	// Artifacts holds one encoded image per screen.
	Artifacts [][]byte

	// Image is the composite. It is nil when the artifacts came from cache.
	Image *image.RGBA

	// Format is the encoding of Artifacts.
	Format export.Format

	// Seed is the seed the script ran with.
	Seed uint64

	// Log collects the script's log() output.
	Log []string

	// Line is the script line of an evaluation failure, 0 otherwise.
	Line int

	// Stats contains timing information.
	Stats Stats

	// CacheInfo tracks whether the artifacts came from cache.
	CacheInfo CacheInfo
}

// Stats contains render timings.
type Stats struct {
	EvaluateTime time.Duration
	EncodeTime   time.Duration
}

// Elapsed is the total time spent rendering.
func (s Stats) Elapsed() time.Duration { return s.EvaluateTime + s.EncodeTime }

// CacheInfo reports cache use.
type CacheInfo struct {
	Hit    bool // Artifacts came from cache
	Bypass bool // Cache was not consulted (fresh seed or Refresh)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidInput, "script source is required")
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if err := errors.ValidateScriptName(o.Name); err != nil {
		return err
	}

	if len(o.Screens) > 0 {
		for i, s := range o.Screens {
			if s.Empty() {
				return errors.New(errors.ErrCodeInvalidSize, "screen %d is empty", i+1)
			}
		}
		u := export.Union(o.Screens)
		o.Width, o.Height = u.Dx(), u.Dy()
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if err := errors.ValidateCanvasSize(o.Width, o.Height); err != nil {
		return err
	}

	if o.Format == "" {
		o.Format = string(DefaultFormat)
	}
	f, err := export.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.format = f
	o.Format = string(f)

	if o.Quality < 0 || o.Quality > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "quality %v out of range [0, 1]", o.Quality)
	}
	if o.Thumbnail < 0 {
		return errors.New(errors.ErrCodeInvalidSize, "negative thumbnail size %d", o.Thumbnail)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// RenderKeyOpts returns the cache key options for o.
func (o *Options) RenderKeyOpts(seed uint64) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Seed:           seed,
		Width:          o.Width,
		Height:         o.Height,
		Format:         o.Format,
		Quality:        int(o.Quality * 100),
		Thumbnail:      o.Thumbnail,
		Screens:        o.Screens,
		DisableMenubar: o.DisableMenubar,
	}
}
