package sprite

import (
	"fmt"
	"path/filepath"
	"strings"

	"spritec/css"
)

// SpriteURL returns the url() reference for the sprite artifact relative to
// the directory the rewritten stylesheet will live in.
func SpriteURL(cssOutPath, spritePath string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(cssOutPath), spritePath)
	if err != nil {
		return "", fmt.Errorf("sprite path %q is not reachable from %q: %w", spritePath, cssOutPath, err)
	}
	return filepath.ToSlash(rel), nil
}

// Rewrite replaces the background declarations of every consuming rule so
// they reference the sprite at the correct sub-rectangle. The new
// background-position is the negated placement offset composed with the
// original offsets, which keeps rendered output identical. All other
// declarations keep their content and order.
func Rewrite(uses []*Use, spriteURL string) {
	urlValue := `url("` + css.EscapeDoubleQuoted(spriteURL) + `")`
	for _, use := range uses {
		pos := positionValue(use)
		if use.Shorthand {
			rewriteShorthand(use, urlValue, pos)
		} else {
			rewriteImage(use, urlValue, pos)
		}
	}
}

// positionValue composes the placement with the rule's original offsets.
// A positive placement shifts the value negative: the sprite moves up-left
// so the packed image appears to start at the element's origin.
func positionValue(use *Use) string {
	x := use.OffsetX - use.Ref.X
	y := use.OffsetY - use.Ref.Y
	return pixelValue(x) + " " + pixelValue(y)
}

func pixelValue(v int) string {
	if v == 0 {
		return "0"
	}
	return fmt.Sprintf("%dpx", v)
}

func rewriteShorthand(use *Use, urlValue, pos string) {
	parts := make([]string, 0, len(use.Extras)+3)
	parts = append(parts, use.Extras...)
	parts = append(parts, urlValue, "no-repeat", pos)
	use.Rule.Declarations[use.Decl].Value = strings.Join(parts, " ")

	// a background-position declared after the shorthand would override the
	// position we just wrote, keep it in sync
	if use.PosDecl >= 0 {
		use.Rule.Declarations[use.PosDecl].Value = pos
	}
}

func rewriteImage(use *Use, urlValue, pos string) {
	rule := use.Rule
	rule.Declarations[use.Decl].Value = urlValue

	if use.PosDecl >= 0 {
		rule.Declarations[use.PosDecl].Value = pos
		if !use.HasRepeat {
			insertAfter(rule, use.Decl, css.Declaration{Property: "background-repeat", Value: "no-repeat"})
		}
		return
	}

	insert := []css.Declaration{{Property: "background-position", Value: pos}}
	if !use.HasRepeat {
		insert = append(insert, css.Declaration{Property: "background-repeat", Value: "no-repeat"})
	}
	for i, d := range insert {
		insertAfter(rule, use.Decl+i, d)
	}
}

func insertAfter(rule *css.Rule, idx int, d css.Declaration) {
	rule.Declarations = append(rule.Declarations, css.Declaration{})
	copy(rule.Declarations[idx+2:], rule.Declarations[idx+1:])
	rule.Declarations[idx+1] = d
}
