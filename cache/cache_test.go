package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(filepath.Join(dir, "cache.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	artifact := filepath.Join(dir, "sprite.png")
	if err := os.WriteFile(artifact, []byte("png"), 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	if c.UpToDate("style.css", "fp1", artifact) {
		t.Error("empty cache should miss")
	}

	if err := c.Store("style.css", "fp1"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if !c.UpToDate("style.css", "fp1", artifact) {
		t.Error("expected hit after Store with matching fingerprint")
	}

	if c.UpToDate("style.css", "fp2", artifact) {
		t.Error("expected miss for different fingerprint")
	}

	os.Remove(artifact)
	if c.UpToDate("style.css", "fp1", artifact) {
		t.Error("expected miss when artifact is gone")
	}
}

func TestCacheStore_Replaces(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(filepath.Join(dir, "cache.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	if err := c.Store("k", "old"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := c.Store("k", "new"); err != nil {
		t.Fatalf("Store() replace error = %v", err)
	}

	if c.UpToDate("k", "old") {
		t.Error("old fingerprint should no longer match")
	}
	if !c.UpToDate("k", "new") {
		t.Error("new fingerprint should match")
	}
}

func TestCache_NilSafe(t *testing.T) {
	var c *Cache

	if c.UpToDate("k", "fp") {
		t.Error("nil cache should always miss")
	}
	if err := c.Store("k", "fp"); err != nil {
		t.Errorf("Store on nil cache should be a no-op, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache should be a no-op, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	if err := os.WriteFile(img, []byte("one"), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	fp1, err := Fingerprint([]byte("body{}"), dir, "pad=1")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	fp2, err := Fingerprint([]byte("body{}"), dir, "pad=1")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp1 != fp2 {
		t.Error("fingerprint should be stable for unchanged inputs")
	}

	fp3, err := Fingerprint([]byte("body{color:red}"), dir, "pad=1")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp3 == fp1 {
		t.Error("fingerprint should change with stylesheet content")
	}

	fp4, err := Fingerprint([]byte("body{}"), dir, "pad=2")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp4 == fp1 {
		t.Error("fingerprint should change with options")
	}

	// image content change reflects through size or mtime
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(img, []byte("other"), 0644); err != nil {
		t.Fatalf("failed to rewrite image: %v", err)
	}
	fp5, err := Fingerprint([]byte("body{}"), dir, "pad=1")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp5 == fp1 {
		t.Error("fingerprint should change when images change")
	}
}
