// Package config handles topdraw.toml configuration.
//
// A configuration file has three tables, all optional:
//
//	[render]
//	width = 1920
//	height = 1080
//	format = "png"
//	timeout = "30s"
//	disable_menubar = false
//
//	[[render.screens]]
//	x = 0
//	y = 0
//	width = 1920
//	height = 1080
//
//	[cache]
//	dir = "~/.cache/topdraw"
//	redis_addr = "localhost:6379"
//	ttl = "168h"
//
//	[server]
//	addr = ":8080"
//
// Values missing from the file keep their defaults. Command-line flags
// override both.
package config

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name looked up in the configuration directories.
const FileName = "topdraw.toml"

const appName = "topdraw"

// Config is a parsed topdraw.toml.
type Config struct {
	Render Render `toml:"render"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `toml:"-"`
}

// Render holds default render options.
type Render struct {
	Width          int      `toml:"width"`
	Height         int      `toml:"height"`
	Seed           uint64   `toml:"seed"`
	Format         string   `toml:"format"`
	Quality        float64  `toml:"quality"`
	Timeout        Duration `toml:"timeout"`
	DisableMenubar bool     `toml:"disable_menubar"`
	Output         string   `toml:"output"`
	Screens        []Screen `toml:"screens"`
}

// Screen is one display in desktop coordinates.
type Screen struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Rect returns the screen as a rectangle.
func (s Screen) Rect() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// ScreenRects returns the configured screens as rectangles.
func (r Render) ScreenRects() []image.Rectangle {
	rects := make([]image.Rectangle, len(r.Screens))
	for i, s := range r.Screens {
		rects[i] = s.Rect()
	}
	return rects
}

// Cache configures the render cache.
type Cache struct {
	Disabled      bool     `toml:"disabled"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	TTL           Duration `toml:"ttl"`
}

// Server configures `topdraw serve`.
type Server struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: Render{
			Width:   800,
			Height:  600,
			Format:  "png",
			Timeout: Duration{30 * time.Second},
		},
		Cache: Cache{
			TTL: Duration{7 * 24 * time.Hour},
		},
		Server: Server{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Load parses the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses TOML data on top of the defaults. path is recorded for
// error messages and Config.Path.
func Parse(data []byte, path string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	c.Path = path
	c.Cache.Dir = expandHome(c.Cache.Dir)
	c.Render.Output = expandHome(c.Render.Output)
	return c, c.Validate()
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return fmt.Errorf("render: negative size %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.Quality < 0 || c.Render.Quality > 1 {
		return fmt.Errorf("render: quality %v out of range [0, 1]", c.Render.Quality)
	}
	for i, s := range c.Render.Screens {
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("render: screen %d has degenerate size %dx%d", i+1, s.Width, s.Height)
		}
	}
	return nil
}

// Find loads the first configuration file found in the search path, or
// the defaults when there is none. The search path is
// $XDG_CONFIG_HOME/topdraw, then ~/.config/topdraw.
func Find() (*Config, error) {
	for _, dir := range searchDirs() {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// LoadOrFind loads path when it is set and searches otherwise.
func LoadOrFind(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	return Find()
}

func searchDirs() []string {
	var dirs []string
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		dirs = append(dirs, filepath.Join(d, appName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", appName))
	}
	return dirs
}

// CacheDir returns the configured cache directory, or the XDG cache
// location ($XDG_CACHE_HOME/topdraw or ~/.cache/topdraw).
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if d := os.Getenv("XDG_CACHE_HOME"); d != "" {
		return filepath.Join(d, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
