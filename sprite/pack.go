package sprite

import (
	"sort"

	"go.uber.org/zap"
)

// DefaultPadding is the margin in pixels reserved to the right of and below
// every placed image so neighboring sprites cannot bleed into each other
// during rendering.
const DefaultPadding = 1

// PackOptions controls sprite geometry.
type PackOptions struct {
	// Padding is the right/bottom margin per image in pixels. Negative
	// means DefaultPadding.
	Padding int
	// MaxCanvasWidth bounds the canvas width. Zero picks the width of the
	// widest single image; an explicit bound smaller than some image fails
	// packing with *LayoutError.
	MaxCanvasWidth int
}

func (o PackOptions) padding() int {
	if o.Padding < 0 {
		return DefaultPadding
	}
	return o.Padding
}

// shelf is a horizontal packing band. Images are placed left to right within
// a shelf; shelves stack top to bottom.
type shelf struct {
	y      int
	height int // height of the tallest (first) image in the band
	cursor int // next free x
}

// Pack computes a placement for every ref inside a minimal enclosing canvas
// using a shelf heuristic: images sorted by height, then width, then first
// discovery order are placed greedily into the first shelf with enough
// remaining width. The sort tie-break makes layouts byte-identical across
// runs on identical input.
//
// Padding counts toward spacing between images but is not forced at the
// right or bottom canvas edge.
func Pack(refs []*Ref, opt PackOptions, log *zap.Logger) (*Layout, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pack")

	pad := opt.padding()

	ordered := make([]*Ref, len(refs))
	copy(ordered, refs)
	// discovery order is the final tie-break; stable sort preserves it
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Height != ordered[j].Height {
			return ordered[i].Height > ordered[j].Height
		}
		return ordered[i].Width > ordered[j].Width
	})

	budget := opt.MaxCanvasWidth
	if budget <= 0 {
		for _, r := range ordered {
			budget = max(budget, r.Width)
		}
	} else {
		for _, r := range ordered {
			if r.Width > budget {
				return nil, &LayoutError{Path: r.Source, Width: r.Width, MaxWidth: budget}
			}
		}
	}

	layout := &Layout{}
	var shelves []*shelf
	for _, r := range ordered {
		var target *shelf
		for _, s := range shelves {
			if s.cursor+r.Width <= budget {
				target = s
				break
			}
		}
		if target == nil {
			y := 0
			if n := len(shelves); n > 0 {
				y = shelves[n-1].y + shelves[n-1].height + pad
			}
			target = &shelf{y: y, height: r.Height}
			shelves = append(shelves, target)
		}
		r.X = target.cursor
		r.Y = target.y
		target.cursor += r.Width + pad
		layout.Width = max(layout.Width, r.X+r.Width)
		layout.Height = max(layout.Height, r.Y+r.Height)
		layout.Refs = append(layout.Refs, r)
	}

	log.Debug("Layout computed", zap.Int("images", len(layout.Refs)),
		zap.Int("width", layout.Width), zap.Int("height", layout.Height), zap.Int("shelves", len(shelves)))
	return layout, nil
}
