package sprite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"runtime"
	"sync"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"spritec/utils/images"
)

// Load resolves every ref to decoded pixels and intrinsic dimensions.
// Decoding is independent per image and runs on a bounded worker pool; the
// first failure cancels the rest and is returned as *LoadError. Either all
// refs come back fully populated or none are usable.
func Load(ctx context.Context, log *zap.Logger, refs []*Ref, workers int) error {
	if len(refs) == 0 {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("load")

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(refs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	work := make(chan *Ref)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range work {
				if err := ref.load(); err != nil {
					fail(err)
					return
				}
				log.Debug("Image loaded", zap.String("image", ref.Source),
					zap.Int("width", ref.Width), zap.Int("height", ref.Height))
			}
		}()
	}

feed:
	for _, ref := range refs {
		select {
		case work <- ref:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return context.Cause(ctx)
}

// load reads and decodes one image file. SVG sources are rasterized at
// intrinsic size; raster formats go through image.Decode with the standard
// and x/image decoders registered above.
func (r *Ref) load() error {
	data, err := os.ReadFile(r.Source)
	if err != nil {
		return &LoadError{Path: r.Source, Err: err}
	}

	var img image.Image
	if images.IsSVG(data) {
		img, err = images.RasterizeSVG(data)
		if err != nil {
			return &LoadError{Path: r.Source, Err: fmt.Errorf("invalid svg: %w", err)}
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			// name the actual content type when we can sniff it
			if kind, kerr := filetype.Match(data); kerr == nil && kind != filetype.Unknown {
				return &LoadError{Path: r.Source, Err: fmt.Errorf("unsupported or corrupt %s image: %w", kind.Extension, err)}
			}
			return &LoadError{Path: r.Source, Err: errors.New("unrecognized image format")}
		}
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &LoadError{Path: r.Source, Err: errors.New("image has no pixels")}
	}
	r.img = img
	r.Width = b.Dx()
	r.Height = b.Dy()
	return nil
}
