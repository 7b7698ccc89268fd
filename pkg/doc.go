// Package pkg provides the core libraries for TopDraw wallpaper rendering.
//
// # Overview
//
// TopDraw evaluates small JavaScript programs against a drawing API and
// composites the result into a desktop image. The same script and seed
// always produce the same pixels.
//
// # Architecture
//
// The typical data flow:
//
//	script source + seed
//	         ↓
//	    [compositor] (fresh [script] runtime, desktop/menubar/layers)
//	         ↓
//	    [render] classes drawing with [raster] primitives
//	         ↓
//	    composite image
//	         ↓
//	    [export] (per-screen partition, thumbnail, PNG/JPEG/TIFF)
//
// [pipeline] ties these together behind a [cache] and is shared by the CLI
// and the HTTP [server].
//
// # Main Packages
//
// [script] - goja bridge. Go types implement script.Object and are exposed
// as script classes with declared properties and methods.
//
// [render] - Script-visible classes: Layer, Color, Gradient, Palette, Text,
// Noise, Particles, Randomizer and the geometry types.
//
// [raster] - Pixel-level drawing, blend modes and color space helpers.
//
// [random] - Seeded deterministic stream shared by Math.random and
// Randomizer.
//
// [compositor] - Script evaluation, layer stack and compositing.
//
// [export] - Image encoding, screen partitioning and storage locations.
//
// [cache] - Render cache with file, Redis and null backends.
//
// [config] - topdraw.toml loading.
//
// [observability] - Hooks for render, cache and HTTP events.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source: `desktop.fillStyle = new Color(0, 0, 1); desktop.fillLayer();`,
//	    Seed:   42,
//	})
//	// res.Artifacts[0] holds the encoded PNG.
//
// [script]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/script
// [render]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/render
// [raster]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/raster
// [random]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/random
// [compositor]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/compositor
// [export]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/export
// [cache]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/cache
// [config]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/config
// [observability]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/topdraw/topdraw/pkg/server
package pkg
