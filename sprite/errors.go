package sprite

import "fmt"

// LoadError reports an image that could not be resolved to pixel data:
// missing file, unsupported format or corrupt content.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load image %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LayoutError reports an image that cannot fit within the configured canvas
// constraints.
type LayoutError struct {
	Path     string
	Width    int
	MaxWidth int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("image %q is %dpx wide and exceeds the maximum canvas width of %dpx", e.Path, e.Width, e.MaxWidth)
}

// RepeatError reports a sprite-eligible rule that requests tiling. Repeating
// a single region of a shared sprite would bleed into its neighbors, so such
// rules fail instead of silently producing wrong output.
type RepeatError struct {
	Selector string
	Repeat   string
	Path     string
}

func (e *RepeatError) Error() string {
	return fmt.Sprintf("rule %q requests background-repeat %q on sprite candidate %q which is incompatible with a shared sprite", e.Selector, e.Repeat, e.Path)
}

// EmitError reports a filesystem failure while writing output artifacts.
type EmitError struct {
	Path string
	Err  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("unable to write %q: %v", e.Path, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }
