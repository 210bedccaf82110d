package sprite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"spritec/css"
)

// Job is one sprite compilation: a stylesheet, the directory holding its
// images and the destination paths for the artifacts. Jobs are fully
// independent; nothing is shared or reused between them.
type Job struct {
	CSSPath    string
	ImageDir   string
	SpritePath string
	// CSSOutPath is where the rewritten stylesheet lands. Empty rewrites
	// the stylesheet in place.
	CSSOutPath string
}

// Options tunes the engine. The zero value is fully usable.
type Options struct {
	Padding        int // pixels between placed images, negative means default
	MaxCanvasWidth int // 0 bounds the canvas at the widest single image
	Workers        int // concurrent image decodes, 0 means GOMAXPROCS
}

// Process runs the whole pipeline for one job: scan the stylesheet, load the
// referenced images, pack them, composite the sprite and write the sprite
// plus the rewritten stylesheet. Any stage failure aborts the job before
// anything is written.
func Process(ctx context.Context, log *zap.Logger, job Job, opt Options) (rerr error) {
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("Sprite compilation starting", zap.String("css", job.CSSPath), zap.String("images", job.ImageDir))
	defer func(start time.Time) {
		// NOTE: some of golang graphic processing libraries are not mature
		// enough - when multiple jobs are being processed we do not want a
		// decoder panic to take the whole run down.
		if r := recover(); r != nil {
			log.Error("Sprite compilation ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("sprite compilation panic: %v", r)
		} else {
			log.Info("Sprite compilation completed", zap.Duration("elapsed", time.Since(start)))
		}
	}(time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	cssPath, err := filepath.Abs(job.CSSPath)
	if err != nil {
		return err
	}
	imgDir, err := filepath.Abs(job.ImageDir)
	if err != nil {
		return err
	}
	cssOut := job.CSSOutPath
	if cssOut == "" {
		cssOut = cssPath
	}

	data, err := os.ReadFile(cssPath)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}

	sheet, err := css.NewParser(log).Parse(data, cssPath)
	if err != nil {
		return err
	}

	uses, refs, err := Scan(sheet, filepath.Dir(cssPath), imgDir, log)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		log.Warn("Stylesheet has no sprite candidates, nothing to do", zap.String("css", cssPath))
		return nil
	}

	if err := Load(ctx, log, refs, opt.Workers); err != nil {
		return err
	}

	layout, err := Pack(refs, PackOptions{Padding: opt.Padding, MaxCanvasWidth: opt.MaxCanvasWidth}, log)
	if err != nil {
		return err
	}

	spriteData, err := EncodePNG(Composite(layout))
	if err != nil {
		return err
	}

	url, err := SpriteURL(cssOut, job.SpritePath)
	if err != nil {
		return err
	}
	Rewrite(uses, url)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := Emit(job.SpritePath, spriteData, 0644); err != nil {
		return err
	}
	if err := Emit(cssOut, []byte(sheet.String()), 0644); err != nil {
		// keep output all-or-nothing: do not leave a sprite behind when the
		// stylesheet could not be written
		os.Remove(job.SpritePath)
		return err
	}

	log.Info("Artifacts written",
		zap.String("sprite", job.SpritePath), zap.String("stylesheet", cssOut),
		zap.Int("images", len(layout.Refs)), zap.Int("width", layout.Width), zap.Int("height", layout.Height))
	return nil
}

// Unreferenced lists files in imgDir that the stylesheet does not reference,
// relative to imgDir. Used by the audit command to spot images that would be
// left out of the sprite.
func Unreferenced(sheet *css.Stylesheet, cssDir, imgDir string, log *zap.Logger) ([]string, error) {
	_, refs, err := Scan(sheet, cssDir, imgDir, log)
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		used[r.Source] = struct{}{}
	}

	var unused []string
	err = filepath.WalkDir(imgDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if _, ok := used[abs]; ok {
			return nil
		}
		rel, err := filepath.Rel(imgDir, abs)
		if err != nil {
			return err
		}
		unused = append(unused, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unused, nil
}
