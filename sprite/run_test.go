package sprite

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"spritec/css"
)

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img")
	writePNG(t, filepath.Join(imgDir, "x.png"), 10, 10, color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(imgDir, "y.png"), 20, 5, color.RGBA{B: 255, A: 255})

	cssPath := filepath.Join(dir, "style.css")
	input := `.x { background-image: url("img/x.png"); }
.y { background: #fff url('img/y.png') no-repeat; }
.plain { color: red; }
`
	if err := os.WriteFile(cssPath, []byte(input), 0644); err != nil {
		t.Fatalf("writing stylesheet: %v", err)
	}

	spritePath := filepath.Join(dir, "style.png")
	cssOut := filepath.Join(dir, "style.sprite.css")

	err := Process(context.Background(), zap.NewNop(), Job{
		CSSPath:    cssPath,
		ImageDir:   imgDir,
		SpritePath: spritePath,
		CSSOutPath: cssOut,
	}, Options{Padding: -1})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// sprite has the expected canvas
	data, err := os.ReadFile(spritePath)
	if err != nil {
		t.Fatalf("reading sprite: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding sprite: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 16 {
		t.Errorf("sprite = %dx%d, want 20x16", b.Dx(), b.Dy())
	}

	// stylesheet rewritten against the sprite
	out, err := os.ReadFile(cssOut)
	if err != nil {
		t.Fatalf("reading rewritten stylesheet: %v", err)
	}
	text := string(out)

	for _, want := range []string{
		`url("style.png")`,
		`background-position: 0 0;`,
		`#fff url("style.png") no-repeat 0 -11px`,
		`color: red;`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rewritten stylesheet missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "x.png") || strings.Contains(text, "y.png") {
		t.Errorf("rewritten stylesheet still references original images:\n%s", text)
	}

	// original stylesheet untouched in sibling mode
	orig, _ := os.ReadFile(cssPath)
	if string(orig) != input {
		t.Error("original stylesheet should not change when writing a sibling")
	}

	// rewritten output must still be valid CSS
	if _, err := css.NewParser(nil).Parse(out, cssOut); err != nil {
		t.Errorf("rewritten stylesheet does not parse: %v", err)
	}
}

func TestProcess_MissingImage(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img")
	writePNG(t, filepath.Join(imgDir, "x.png"), 4, 4, color.Black)

	cssPath := filepath.Join(dir, "style.css")
	input := `.a { background-image: url("img/x.png"); }
.b { background-image: url("img/missing.png"); }
`
	if err := os.WriteFile(cssPath, []byte(input), 0644); err != nil {
		t.Fatalf("writing stylesheet: %v", err)
	}

	spritePath := filepath.Join(dir, "style.png")
	cssOut := filepath.Join(dir, "style.sprite.css")

	err := Process(context.Background(), zap.NewNop(), Job{
		CSSPath:    cssPath,
		ImageDir:   imgDir,
		SpritePath: spritePath,
		CSSOutPath: cssOut,
	}, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *LoadError", err)
	}

	// no partial outputs
	if _, err := os.Stat(spritePath); !os.IsNotExist(err) {
		t.Error("failed compilation must not leave a sprite behind")
	}
	if _, err := os.Stat(cssOut); !os.IsNotExist(err) {
		t.Error("failed compilation must not leave a rewritten stylesheet behind")
	}
}

func TestProcess_NoCandidates(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatalf("creating image dir: %v", err)
	}

	cssPath := filepath.Join(dir, "style.css")
	if err := os.WriteFile(cssPath, []byte(`.a { color: red; }`), 0644); err != nil {
		t.Fatalf("writing stylesheet: %v", err)
	}

	spritePath := filepath.Join(dir, "style.png")

	err := Process(context.Background(), zap.NewNop(), Job{
		CSSPath:    cssPath,
		ImageDir:   imgDir,
		SpritePath: spritePath,
	}, Options{})
	if err != nil {
		t.Fatalf("Process() error = %v, a stylesheet without candidates is a no-op", err)
	}

	if _, err := os.Stat(spritePath); !os.IsNotExist(err) {
		t.Error("no-op compilation must not write a sprite")
	}
}

func TestProcess_RepeatFails(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img")
	writePNG(t, filepath.Join(imgDir, "tile.png"), 4, 4, color.Black)

	cssPath := filepath.Join(dir, "style.css")
	if err := os.WriteFile(cssPath, []byte(`.t { background: url("img/tile.png") repeat-x; }`), 0644); err != nil {
		t.Fatalf("writing stylesheet: %v", err)
	}

	err := Process(context.Background(), zap.NewNop(), Job{
		CSSPath:    cssPath,
		ImageDir:   imgDir,
		SpritePath: filepath.Join(dir, "style.png"),
	}, Options{})
	var rerr *RepeatError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *RepeatError", err)
	}
}

func TestProcess_InPlace(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img")
	writePNG(t, filepath.Join(imgDir, "x.png"), 6, 6, color.Black)

	cssPath := filepath.Join(dir, "style.css")
	if err := os.WriteFile(cssPath, []byte(`.x { background-image: url("img/x.png"); }`), 0644); err != nil {
		t.Fatalf("writing stylesheet: %v", err)
	}

	err := Process(context.Background(), zap.NewNop(), Job{
		CSSPath:    cssPath,
		ImageDir:   imgDir,
		SpritePath: filepath.Join(dir, "style.png"),
		// empty CSSOutPath rewrites in place
	}, Options{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	out, _ := os.ReadFile(cssPath)
	if !strings.Contains(string(out), `url("style.png")`) {
		t.Errorf("stylesheet not rewritten in place:\n%s", out)
	}
}

func TestUnreferenced(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img")
	writePNG(t, filepath.Join(imgDir, "used.png"), 4, 4, color.Black)
	writePNG(t, filepath.Join(imgDir, "unused.png"), 4, 4, color.Black)
	writePNG(t, filepath.Join(imgDir, "deep", "also-unused.png"), 4, 4, color.Black)

	sheet := parseSheet(t, `.a { background-image: url("img/used.png"); }`)

	unused, err := Unreferenced(sheet, dir, imgDir, nil)
	if err != nil {
		t.Fatalf("Unreferenced() error = %v", err)
	}

	want := map[string]bool{"unused.png": true, "deep/also-unused.png": true}
	if len(unused) != len(want) {
		t.Fatalf("unused = %v, want %d entries", unused, len(want))
	}
	for _, name := range unused {
		if !want[name] {
			t.Errorf("unexpected unused entry %q", name)
		}
	}
}
