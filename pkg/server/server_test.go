package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/topdraw/topdraw/pkg/cache"
	"github.com/topdraw/topdraw/pkg/pipeline"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(&bytes.Buffer{}, log.Options{})
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	runner := pipeline.NewRunner(c, nil, logger)
	ts := httptest.NewServer(New(runner, logger, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatalf("GET /version: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["script_api"] != float64(1) {
		t.Errorf("script_api = %v, want 1", body["script_api"])
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t)
	req := map[string]any{
		"source": "menubar.fillStyle = new Color(1, 0, 0); menubar.fillLayer();",
		"name":   "red",
		"seed":   42,
		"width":  32,
		"height": 24,
	}

	resp := post(t, ts.URL+"/render", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if resp.Header.Get("X-Topdraw-Seed") != "42" {
		t.Errorf("X-Topdraw-Seed = %q, want 42", resp.Header.Get("X-Topdraw-Seed"))
	}
	if resp.Header.Get("X-Topdraw-Cache") != "miss" {
		t.Errorf("X-Topdraw-Cache = %q, want miss", resp.Header.Get("X-Topdraw-Cache"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r, _, _, _ := img.At(10, 10).RGBA(); r>>8 != 255 {
		t.Errorf("red = %d, want 255", r>>8)
	}

	again := post(t, ts.URL+"/render", req)
	if again.Header.Get("X-Topdraw-Cache") != "hit" {
		t.Errorf("second X-Topdraw-Cache = %q, want hit", again.Header.Get("X-Topdraw-Cache"))
	}
}

func TestRenderScreens(t *testing.T) {
	ts := newTestServer(t)
	req := map[string]any{
		"source": "desktop.fillLayer();",
		"seed":   1,
		"screens": []map[string]int{
			{"x": 0, "y": 0, "width": 10, "height": 10},
			{"x": 10, "y": 0, "width": 20, "height": 10},
		},
	}
	resp := post(t, ts.URL+"/render?screen=2", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Topdraw-Images") != "2" {
		t.Errorf("X-Topdraw-Images = %q, want 2", resp.Header.Get("X-Topdraw-Images"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("screen 2 width = %d, want 20", img.Bounds().Dx())
	}

	bad := post(t, ts.URL+"/render?screen=3", req)
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range screen status = %d, want 400", bad.StatusCode)
	}
}

func TestRenderErrors(t *testing.T) {
	ts := newTestServer(t, WithTimeout(100*time.Millisecond), WithMaxBodyBytes(4096))
	tests := []struct {
		name   string
		body   any
		status int
		line   int
	}{
		{"missing source", map[string]any{"seed": 1}, http.StatusBadRequest, 0},
		{"unknown field", map[string]any{"source": "1", "colour": "red"}, http.StatusBadRequest, 0},
		{"bad format", map[string]any{"source": "1", "format": "gif"}, http.StatusBadRequest, 0},
		{"too large", map[string]any{"source": strings.Repeat("x", 5000)}, http.StatusBadRequest, 0},
		{"syntax error", map[string]any{"source": "log(1);\nlog(2);\nvar = ;", "seed": 1}, http.StatusUnprocessableEntity, 3},
		{"timeout", map[string]any{"source": "while (true) {}", "seed": 1, "width": 8, "height": 8}, http.StatusGatewayTimeout, 0},
	}
	for _, tt := range tests {
		resp := post(t, ts.URL+"/render", tt.body)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.status)
			continue
		}
		var body ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Errorf("%s: decode error body: %v", tt.name, err)
			continue
		}
		if body.Error == "" {
			t.Errorf("%s: empty error message", tt.name)
		}
		if body.Line != tt.line {
			t.Errorf("%s: line = %d, want %d", tt.name, body.Line, tt.line)
		}
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	logger := log.NewWithOptions(&bytes.Buffer{}, log.Options{})
	s := New(pipeline.NewRunner(nil, nil, logger), logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
