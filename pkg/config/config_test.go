package config

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Render.Width != 800 || c.Render.Height != 600 {
		t.Errorf("size = %dx%d, want 800x600", c.Render.Width, c.Render.Height)
	}
	if c.Render.Format != "png" {
		t.Errorf("format = %q, want png", c.Render.Format)
	}
	if c.Render.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", c.Render.Timeout)
	}
	if c.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", c.Server.Addr)
	}
}

func TestParse(t *testing.T) {
	src := `
[render]
width = 1920
height = 1080
seed = 42
format = "jpeg"
quality = 0.8
timeout = "5s"
disable_menubar = true

[[render.screens]]
x = 0
y = 0
width = 1920
height = 1080

[[render.screens]]
x = 1920
y = 0
width = 1280
height = 1024

[cache]
redis_addr = "localhost:6379"
ttl = "1h"
`
	c, err := Parse([]byte(src), "test.toml")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if c.Render.Width != 1920 || c.Render.Seed != 42 || c.Render.Format != "jpeg" {
		t.Errorf("render = %+v", c.Render)
	}
	if c.Render.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", c.Render.Timeout)
	}
	if !c.Render.DisableMenubar {
		t.Error("disable_menubar should be true")
	}
	rects := c.Render.ScreenRects()
	if len(rects) != 2 || rects[1] != image.Rect(1920, 0, 3200, 1024) {
		t.Errorf("screens = %v", rects)
	}
	if c.Cache.RedisAddr != "localhost:6379" || c.Cache.TTL.Duration != time.Hour {
		t.Errorf("cache = %+v", c.Cache)
	}
	if c.Server.Addr != ":8080" {
		t.Errorf("unset server.addr should keep its default, got %q", c.Server.Addr)
	}
	if c.Path != "test.toml" {
		t.Errorf("Path = %q, want test.toml", c.Path)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "[render\nwidth = 1", "parse error"},
		{"unknown key", "[render]\ncolour = 1", "unknown keys"},
		{"bad duration", "[render]\ntimeout = \"soon\"", "parse error"},
		{"quality", "[render]\nquality = 2.0", "quality"},
		{"screen", "[[render.screens]]\nwidth = 0\nheight = 10", "degenerate"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.src), "bad.toml")
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", t.TempDir())

	c, err := Find()
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if c.Path != "" {
		t.Errorf("without a file Path = %q, want empty", c.Path)
	}

	path := filepath.Join(dir, "topdraw", FileName)
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("[server]\naddr = \":9000\"\n"), 0o644)

	c, err = LoadOrFind("")
	if err != nil {
		t.Fatalf("LoadOrFind error: %v", err)
	}
	if c.Path != path || c.Server.Addr != ":9000" {
		t.Errorf("loaded %q with addr %q", c.Path, c.Server.Addr)
	}

	if _, err := LoadOrFind(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("an explicit missing file should fail")
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	c := Default()
	if got, _ := c.CacheDir(); got != filepath.Join("/tmp/xdg-cache", "topdraw") {
		t.Errorf("CacheDir() = %q", got)
	}
	c.Cache.Dir = "/var/cache/td"
	if got, _ := c.CacheDir(); got != "/var/cache/td" {
		t.Errorf("CacheDir() = %q, want /var/cache/td", got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	c := Default()
	c.Render.Seed = 7
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	back, err := Parse(buf.Bytes(), "round.toml")
	if err != nil {
		t.Fatalf("Parse error: %v\n%s", err, buf.String())
	}
	if back.Render.Seed != 7 || back.Render.Timeout != c.Render.Timeout {
		t.Errorf("round trip lost values:\n%s", buf.String())
	}
}
