package cache

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get on an empty cache should miss")
	}
	if err := c.Set(ctx, "a", []byte("png bytes"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "png bytes" {
		t.Errorf("Get(a) = %q, %v, %v, want png bytes, true, nil", data, hit, err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should not expire")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%s) error: %v", k, err)
		}
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("Get after Clear should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestRenderKey(t *testing.T) {
	k := NewDefaultKeyer()
	base := RenderKeyOpts{Seed: 42, Width: 800, Height: 600, Format: "png"}

	key := k.RenderKey("desktop.fillLayer();", base)
	if !strings.HasPrefix(key, "render:") {
		t.Errorf("RenderKey = %q, want render: prefix", key)
	}
	if key != k.RenderKey("desktop.fillLayer();", base) {
		t.Error("RenderKey should be deterministic")
	}

	variants := []struct {
		name   string
		source string
		opts   RenderKeyOpts
	}{
		{"source", "menubar.fillLayer();", base},
		{"seed", "desktop.fillLayer();", RenderKeyOpts{Seed: 43, Width: 800, Height: 600, Format: "png"}},
		{"size", "desktop.fillLayer();", RenderKeyOpts{Seed: 42, Width: 801, Height: 600, Format: "png"}},
		{"format", "desktop.fillLayer();", RenderKeyOpts{Seed: 42, Width: 800, Height: 600, Format: "jpeg"}},
		{"menubar", "desktop.fillLayer();", RenderKeyOpts{Seed: 42, Width: 800, Height: 600, Format: "png", DisableMenubar: true}},
	}
	for _, tt := range variants {
		if k.RenderKey(tt.source, tt.opts) == key {
			t.Errorf("changing %s should change the key", tt.name)
		}
	}
}

func TestScopedKeyer(t *testing.T) {
	opts := RenderKeyOpts{Seed: 1, Width: 10, Height: 10, Format: "png"}
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "server:")

	if got, want := scoped.RenderKey("x", opts), "server:"+inner.RenderKey("x", opts); got != want {
		t.Errorf("RenderKey = %q, want %q", got, want)
	}
	if got := NewScopedKeyer(nil, "p:").RenderKey("x", opts); !strings.HasPrefix(got, "p:render:") {
		t.Errorf("nil inner keyer RenderKey = %q, want p:render: prefix", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrNetwork.Error())
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryableNet(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if !IsRetryable(retryableNet(netErr)) {
		t.Error("network errors should be retryable")
	}
	if IsRetryable(retryableNet(redis.Nil)) {
		t.Error("redis.Nil should not be retryable")
	}
	if retryableNet(nil) != nil {
		t.Error("retryableNet(nil) should be nil")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	retryDelay = time.Millisecond
	defer func() { retryDelay = 200 * time.Millisecond }()

	calls := 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return nil }); err != nil || calls != 1 {
		t.Errorf("success: err = %v, calls = %d, want nil, 1", err, calls)
	}

	plain := errors.New("bad request")
	calls = 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return plain }); err != plain || calls != 1 {
		t.Errorf("non-retryable: err = %v, calls = %d, want %v, 1", err, calls, plain)
	}

	calls = 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err = %v, calls = %d, want nil, 2", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error { calls++; return Retryable(ErrNetwork) })
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("exhausted: err = %v, calls = %d, want ErrNetwork, 3", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewRedisCacheValidation(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), RedisConfig{}); err == nil {
		t.Error("NewRedisCache without an address should fail")
	}

	c := newRedisCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	defer c.Close()
	if c.prefix != "topdraw:" {
		t.Errorf("prefix = %q, want topdraw:", c.prefix)
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("NewRedisCache error = %v, want ErrNetwork", err)
	}
}
