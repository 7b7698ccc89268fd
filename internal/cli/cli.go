// Package cli implements the topdraw command-line interface.
//
// Commands:
//   - render: Render a script to one image per screen
//   - check: Evaluate scripts and report errors without writing images
//   - list: List the scripts in a directory
//   - serve: Run the HTTP render service
//   - cache: Manage the render cache
//   - config: Print the effective configuration
//   - version: Print build information
//
// # Configuration
//
// Defaults come from topdraw.toml (see package config), found in the XDG
// config directory or given with --config. Flags override it.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// passed to commands through context.Context.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/topdraw/topdraw/pkg/buildinfo"
	"github.com/topdraw/topdraw/pkg/cache"
	"github.com/topdraw/topdraw/pkg/config"
	"github.com/topdraw/topdraw/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose    bool
	configPath string
	config     *config.Config
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "topdraw",
		Short:         "TopDraw renders wallpaper scripts to images",
		Long:          `TopDraw evaluates JavaScript wallpaper scripts against a small drawing API (layers, colors, gradients, text, noise and particles) and renders them to PNG, JPEG or TIFF. The same script and seed always produce the same image.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/topdraw/topdraw.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the configuration once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.LoadOrFind(c.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	c.config = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, nil, c.Logger)
	if cfg.Cache.TTL.Duration > 0 {
		r.TTL = cfg.Cache.TTL.Duration
	}
	return r, nil
}

// newCache picks Redis when an address is configured, the file cache
// otherwise, and NullCache when caching is disabled.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}
