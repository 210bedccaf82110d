// Package sprite implements the sprite compilation engine: it scans a parsed
// stylesheet for background image references, packs the referenced images
// into a single canvas, composites the sprite and rewrites the consuming
// rules so rendered output is unchanged.
package sprite

import (
	"image"

	"spritec/css"
)

// Ref is a single distinct image participating in the sprite. Identity is
// the resolved absolute source path: every rule referencing the same file
// shares one Ref. Dimensions are filled by the loader, placement by the
// packer; a Ref is immutable once placed.
type Ref struct {
	Source string // resolved absolute path of the image file
	URL    string // reference exactly as written in the stylesheet

	Width  int
	Height int

	// placement inside the sprite canvas
	X int
	Y int

	img image.Image
}

// Use ties a consuming stylesheet rule to its Ref together with everything
// needed to rewrite the rule: which declaration holds the image, the original
// background-position offsets and the value parts that must be carried over.
type Use struct {
	Rule *css.Rule
	Decl int  // index of the background/background-image declaration
	Ref  *Ref

	OffsetX int // original background-position, pixels
	OffsetY int

	Shorthand  bool     // declaration is the background shorthand
	HasRepeat  bool     // rule declares an explicit (allowed) repeat
	PosDecl    int      // index of a separate background-position declaration, -1 if none
	Extras     []string // shorthand value parts to preserve (color, attachment)
}

// Layout is the computed sprite geometry. No two padded placement rectangles
// overlap and every placement lies fully inside the canvas.
type Layout struct {
	Width  int
	Height int
	Refs   []*Ref // placed refs, packing order
}
