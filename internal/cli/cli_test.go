package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/topdraw/topdraw/pkg/errors"
)

const redScript = `
menubar.fillStyle = new Color(1, 0, 0);
menubar.fillRect(menubar.bounds);
log("painted");
`

// testCLI isolates config, cache and data directories under a temp dir and
// captures user-facing output.
func testCLI(t *testing.T) (*CLI, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	return New(&bytes.Buffer{}, log.InfoLevel), &out, dir
}

func run(c *CLI, args ...string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	want := []string{"render", "check", "list", "serve", "cache", "config", "version", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRenderWritesImage(t *testing.T) {
	c, out, dir := testCLI(t)
	path := writeScript(t, dir, "red.tds", redScript)
	dst := filepath.Join(dir, "out", "wall")

	if err := run(c, "render", path, "-o", dst, "--seed", "5", "--width", "40", "--height", "30"); err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := os.Open(dst + ".png")
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(40, 30) {
		t.Errorf("size = %v, want 40x30", got)
	}
	if !strings.Contains(out.String(), "seed 5") {
		t.Errorf("output missing seed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "painted") {
		t.Errorf("output missing script log:\n%s", out.String())
	}
}

func TestRenderOutputExtensionSelectsPath(t *testing.T) {
	c, _, dir := testCLI(t)
	path := writeScript(t, dir, "red.tds", redScript)
	dst := filepath.Join(dir, "wall.png")

	if err := run(c, "render", path, "-o", dst, "--seed", "1", "--width", "8", "--height", "8"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("expected %s: %v", dst, err)
	}
	if _, err := os.Stat(dst + ".png"); err == nil {
		t.Error("extension was appended twice")
	}
}

func TestRenderScreensWritesOneFilePerScreen(t *testing.T) {
	c, _, dir := testCLI(t)
	path := writeScript(t, dir, "red.tds", redScript)
	dst := filepath.Join(dir, "multi")

	err := run(c, "render", path, "-o", dst, "--seed", "1", "--format", "jpg", "--screens", "0,0,20x10;20,0,10x10")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, name := range []string{"multi-1.jpg", "multi-2.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRenderReportsScriptLine(t *testing.T) {
	c, out, dir := testCLI(t)
	path := writeScript(t, dir, "bad.tds", "var a = 1;\nvar b = ;\n")

	err := run(c, "render", path, "-o", filepath.Join(dir, "bad"), "--seed", "1")
	if !errors.Is(err, errors.ErrCodeEvaluation) {
		t.Fatalf("err = %v, want EVALUATION", err)
	}
	if errors.LineOf(err) != 2 {
		t.Errorf("LineOf = %d, want 2", errors.LineOf(err))
	}
	if !strings.Contains(out.String(), "line 2") {
		t.Errorf("output missing line:\n%s", out.String())
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bad.png")); statErr == nil {
		t.Error("failed render wrote an image")
	}
}

func TestRenderUsesConfigDefaults(t *testing.T) {
	c, _, dir := testCLI(t)
	path := writeScript(t, dir, "red.tds", redScript)
	cfgPath := writeScript(t, dir, "topdraw.toml", "[render]\nwidth = 12\nheight = 7\nformat = \"tiff\"\nseed = 3\n")

	if err := run(c, "--config", cfgPath, "render", path, "-o", filepath.Join(dir, "cfg")); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cfg.tiff")); err != nil {
		t.Errorf("config format not applied: %v", err)
	}
}

func TestRenderStore(t *testing.T) {
	c, _, dir := testCLI(t)
	path := writeScript(t, dir, "red.tds", redScript)

	if err := run(c, "render", path, "--store", "--seed", "1", "--width", "8", "--height", "8"); err != nil {
		t.Fatalf("render: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "data", "topdraw", "images", "topdraw-*.png"))
	if len(matches) != 1 {
		t.Errorf("stored images = %v, want one", matches)
	}
}

func TestParseScreens(t *testing.T) {
	tests := []struct {
		in      string
		want    []image.Rectangle
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "0,0,100x50", want: []image.Rectangle{image.Rect(0, 0, 100, 50)}},
		{in: "0,0,10x10; -10,5,10x20", want: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(-10, 5, 0, 25)}},
		{in: "0,0", wantErr: true},
		{in: "0,0,10", wantErr: true},
		{in: "a,0,10x10", wantErr: true},
		{in: "0,0,0x10", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseScreens(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseScreens(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseScreens(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseScreens(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestCheck(t *testing.T) {
	c, out, dir := testCLI(t)
	good := writeScript(t, dir, "good.tds", redScript)
	bad := writeScript(t, dir, "bad.tds", "desktop.fillLayer();\nundefinedThing();\n")

	if err := run(c, "check", good); err != nil {
		t.Errorf("check good: %v", err)
	}
	err := run(c, "check", good, bad)
	if err == nil {
		t.Fatal("check with a failing script returned nil")
	}
	if !strings.Contains(out.String(), "line 2") {
		t.Errorf("output missing failing line:\n%s", out.String())
	}
}

func TestList(t *testing.T) {
	c, out, dir := testCLI(t)
	scripts := filepath.Join(dir, "scripts")
	if err := os.MkdirAll(scripts, 0o755); err != nil {
		t.Fatal(err)
	}
	writeScript(t, scripts, "b.tds", redScript)
	writeScript(t, scripts, "a.tds", redScript)
	writeScript(t, scripts, "notes.txt", "")

	if err := run(c, "list", scripts); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "notes") {
		t.Errorf("list included a non-script:\n%s", got)
	}
	if a, b := strings.Index(got, "a.tds"), strings.Index(got, "b.tds"); a < 0 || b < 0 || a > b {
		t.Errorf("list not sorted:\n%s", got)
	}
}

func TestCacheClearAndPath(t *testing.T) {
	c, out, dir := testCLI(t)
	path := writeScript(t, dir, "red.tds", redScript)
	if err := run(c, "render", path, "-o", filepath.Join(dir, "x"), "--seed", "9", "--width", "8", "--height", "8"); err != nil {
		t.Fatalf("render: %v", err)
	}

	out.Reset()
	if err := run(c, "cache", "path"); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got, want := strings.TrimSpace(out.String()), filepath.Join(dir, "cache", "topdraw"); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	out.Reset()
	if err := run(c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out.String(), "Cleared 1") {
		t.Errorf("cache clear output = %q", out.String())
	}
}

func TestConfigAndVersion(t *testing.T) {
	c, out, _ := testCLI(t)
	if err := run(c, "config"); err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out.String(), "[render]") {
		t.Errorf("config output missing render table:\n%s", out.String())
	}

	out.Reset()
	if err := run(c, "version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "script api: 1") {
		t.Errorf("version output = %q", out.String())
	}
}
