package cli

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/topdraw/topdraw/pkg/config"
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/export"
	"github.com/topdraw/topdraw/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string        // output file or base path
	store     bool          // write into the image storage directory
	seed      uint64        // 0 derives a fresh seed
	width     int           // canvas width
	height    int           // canvas height
	format    string        // png, jpeg or tiff
	quality   float64       // JPEG quality in [0, 1]
	screens   string        // "x,y,WxH;..." screen layout
	noMenubar bool          // leave the menubar layer out of the composite
	thumbnail int           // longest output side, 0 for full size
	timeout   time.Duration // evaluation deadline
	noCache   bool          // disable the render cache
	refresh   bool          // re-render even when cached
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [script.tds|-]",
		Short: "Render a script to an image",
		Long: `Render a wallpaper script to an image.

The output path defaults to the script path with the format's extension.
With several screens, one file per screen is written with a -N suffix.
Read the script from stdin with "-".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			applyRenderConfig(cmd, &opts, cfg)
			return c.runRender(cmd.Context(), cfg, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base path")
	cmd.Flags().BoolVar(&opts.store, "store", false, "save into the image storage directory under a fresh name")
	cmd.Flags().Uint64VarP(&opts.seed, "seed", "s", 0, "random seed (0 derives one from the device)")
	cmd.Flags().IntVar(&opts.width, "width", pipeline.DefaultWidth, "canvas width")
	cmd.Flags().IntVar(&opts.height, "height", pipeline.DefaultHeight, "canvas height")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(pipeline.DefaultFormat), "output format: png, jpeg, tiff")
	cmd.Flags().Float64Var(&opts.quality, "quality", 0, "JPEG quality between 0 and 1 (default 0.9)")
	cmd.Flags().StringVar(&opts.screens, "screens", "", `screen layout, e.g. "0,0,1920x1080;1920,0,1280x1024"`)
	cmd.Flags().BoolVar(&opts.noMenubar, "no-menubar", false, "leave the menubar layer out of the image")
	cmd.Flags().IntVar(&opts.thumbnail, "thumbnail", 0, "scale the output so its longest side is at most N pixels")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", pipeline.DefaultTimeout, "evaluation deadline")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when a cached image exists")

	return cmd
}

// applyRenderConfig fills flags the user did not set from the config file.
func applyRenderConfig(cmd *cobra.Command, opts *renderOpts, cfg *config.Config) {
	f := cmd.Flags()
	r := cfg.Render
	if !f.Changed("seed") {
		opts.seed = r.Seed
	}
	if !f.Changed("width") && r.Width > 0 {
		opts.width = r.Width
	}
	if !f.Changed("height") && r.Height > 0 {
		opts.height = r.Height
	}
	if !f.Changed("format") && r.Format != "" {
		opts.format = r.Format
	}
	if !f.Changed("quality") {
		opts.quality = r.Quality
	}
	if !f.Changed("timeout") && r.Timeout.Duration > 0 {
		opts.timeout = r.Timeout.Duration
	}
	if !f.Changed("no-menubar") {
		opts.noMenubar = r.DisableMenubar
	}
	if !f.Changed("output") && opts.output == "" {
		opts.output = r.Output
	}
}

func (c *CLI) runRender(ctx context.Context, cfg *config.Config, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	script, source, err := readScript(input)
	if err != nil {
		return err
	}
	screens, err := parseScreens(opts.screens)
	if err != nil {
		return err
	}
	if len(screens) == 0 {
		screens = cfg.Render.ScreenRects()
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+script.Name+"...")
	if logger.GetLevel() > LogDebug {
		spinner.Start()
	}
	result, err := runner.Execute(ctx, pipeline.Options{
		Source:         source,
		Name:           script.Name,
		Seed:           opts.seed,
		Width:          opts.width,
		Height:         opts.height,
		Format:         opts.format,
		Quality:        opts.quality,
		Screens:        screens,
		DisableMenubar: opts.noMenubar,
		Thumbnail:      opts.thumbnail,
		Timeout:        opts.timeout,
		Refresh:        opts.refresh,
		Logger:         scriptLogger(logger, script.Name),
	})
	spinner.Stop()
	if err != nil {
		if errors.Is(err, errors.ErrCodeEvaluation) {
			printScriptError(script.Name, err)
		}
		return err
	}

	base, err := outputBase(opts, script)
	if err != nil {
		return err
	}
	paths, err := writeArtifacts(base, result.Format, result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", StyleHighlight.Render(script.Name))
	printStats(result)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// readScript reads the script at input, or stdin for "-".
func readScript(input string) (pipeline.Script, string, error) {
	if input == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return pipeline.Script{}, "", fmt.Errorf("read stdin: %w", err)
		}
		return pipeline.Script{Name: pipeline.DefaultName}, string(data), nil
	}
	s := pipeline.ScriptFromPath(input)
	src, err := s.Load()
	return s, src, err
}

// outputBase derives the output path without extension.
func outputBase(opts *renderOpts, s pipeline.Script) (string, error) {
	switch {
	case opts.store:
		dir, err := export.ImageStorageDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, export.NextBaseName()), nil
	case opts.output != "":
		if _, err := export.ParseFormat(filepath.Ext(opts.output)); err == nil {
			return strings.TrimSuffix(opts.output, filepath.Ext(opts.output)), nil
		}
		return opts.output, nil
	case s.Path != "":
		return strings.TrimSuffix(s.Path, filepath.Ext(s.Path)), nil
	}
	return export.NextBaseName(), nil
}

// writeArtifacts writes encoded images next to each other, numbering them
// when there is more than one.
func writeArtifacts(base string, f export.Format, artifacts [][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	paths := make([]string, 0, len(artifacts))
	for i, data := range artifacts {
		path := base + f.Extension()
		if len(artifacts) > 1 {
			path = fmt.Sprintf("%s-%d%s", base, i+1, f.Extension())
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// parseScreens parses "x,y,WxH" entries separated by semicolons.
func parseScreens(s string) ([]image.Rectangle, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var screens []image.Rectangle
	for _, entry := range strings.Split(s, ";") {
		parts := strings.Split(strings.TrimSpace(entry), ",")
		if len(parts) != 3 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid screen %q (want x,y,WxH)", entry)
		}
		wh := strings.SplitN(parts[2], "x", 2)
		if len(wh) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid screen size %q (want WxH)", parts[2])
		}
		var v [4]int
		for i, field := range []string{parts[0], parts[1], wh[0], wh[1]} {
			n, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid screen %q", entry)
			}
			v[i] = n
		}
		if v[2] <= 0 || v[3] <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidSize, "screen %q has no area", entry)
		}
		screens = append(screens, image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]))
	}
	return screens, nil
}
