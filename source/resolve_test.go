package source

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestResolve_Directory(t *testing.T) {
	dir := t.TempDir()

	r, err := Resolve(dir, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer r.Cleanup()

	if r.Dir != dir {
		t.Errorf("Dir = %s, want %s", r.Dir, dir)
	}

	// cleanup of a plain directory source must not remove anything
	r.Cleanup()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("source directory should survive Cleanup: %v", err)
	}
}

func TestResolve_Zip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "images.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip: %v", err)
	}
	w := zip.NewWriter(zf)
	fw, err := w.Create("icons/home.png")
	if err != nil {
		t.Fatalf("Failed to create entry: %v", err)
	}
	fw.Write([]byte("png"))
	w.Close()
	zf.Close()

	r, err := Resolve(zipPath, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer r.Cleanup()

	data, err := os.ReadFile(filepath.Join(r.Dir, "icons", "home.png"))
	if err != nil {
		t.Fatalf("expected extracted image: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("content = %s, want png", data)
	}

	dir := r.Dir
	r.Cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expected temporary directory to be removed by Cleanup")
	}
}

func TestResolve_Remote(t *testing.T) {
	for _, src := range []string{
		"http://example.com/images",
		"HTTPS://example.com/images.zip",
		"ftp://example.com/images",
	} {
		if _, err := Resolve(src, nil, zap.NewNop()); err == nil {
			t.Errorf("Resolve(%q) expected error for remote source", src)
		}
	}
}

func TestResolve_Missing(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "nope"), nil, zap.NewNop()); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestResolve_UnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.tar")
	if err := os.WriteFile(path, []byte("tar"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := Resolve(path, nil, zap.NewNop()); err == nil {
		t.Error("expected error for unsupported source file")
	}
}
