package sprite

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"spritec/css"
)

func TestSpriteURL(t *testing.T) {
	tests := []struct {
		name   string
		cssOut string
		sprite string
		want   string
	}{
		{"sibling", "/site/style.css", "/site/sprite.png", "sprite.png"},
		{"subdir", "/site/style.css", "/site/img/sprite.png", "img/sprite.png"},
		{"updir", "/site/css/style.css", "/site/sprite.png", "../sprite.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpriteURL(filepath.FromSlash(tt.cssOut), filepath.FromSlash(tt.sprite))
			if err != nil {
				t.Fatalf("SpriteURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SpriteURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewrite_Image(t *testing.T) {
	rule := &css.Rule{
		Selectors: []string{".icon"},
		Declarations: []css.Declaration{
			{Property: "color", Value: "red"},
			{Property: "background-image", Value: `url("img/home.png")`},
		},
	}
	use := &Use{
		Rule:    rule,
		Decl:    1,
		Ref:     &Ref{X: 0, Y: 11},
		PosDecl: -1,
	}

	Rewrite([]*Use{use}, "sprite.png")

	want := []css.Declaration{
		{Property: "color", Value: "red"},
		{Property: "background-image", Value: `url("sprite.png")`},
		{Property: "background-position", Value: "0 -11px"},
		{Property: "background-repeat", Value: "no-repeat"},
	}
	if diff := cmp.Diff(want, rule.Declarations); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestRewrite_ImageAtOrigin(t *testing.T) {
	rule := &css.Rule{
		Selectors:    []string{".a"},
		Declarations: []css.Declaration{{Property: "background-image", Value: `url("img/a.png")`}},
	}
	use := &Use{Rule: rule, Decl: 0, Ref: &Ref{X: 0, Y: 0}, PosDecl: -1}

	Rewrite([]*Use{use}, "sprite.png")

	if got := rule.Declarations[1].Value; got != "0 0" {
		t.Errorf("position = %q, want 0 0", got)
	}
}

func TestRewrite_ComposesOriginalOffsets(t *testing.T) {
	rule := &css.Rule{
		Selectors: []string{".a"},
		Declarations: []css.Declaration{
			{Property: "background-image", Value: `url("img/a.png")`},
			{Property: "background-position", Value: "-4px 10px"},
		},
	}
	use := &Use{
		Rule:    rule,
		Decl:    0,
		Ref:     &Ref{X: 30, Y: 11},
		OffsetX: -4,
		OffsetY: 10,
		PosDecl: 1,
	}

	Rewrite([]*Use{use}, "sprite.png")

	if got := rule.Declarations[1].Value; got != "-34px -1px" {
		t.Errorf("position = %q, want -34px -1px", got)
	}
}

func TestRewrite_Shorthand(t *testing.T) {
	rule := &css.Rule{
		Selectors:    []string{".cart"},
		Declarations: []css.Declaration{{Property: "background", Value: `#fff url('img/cart.png') no-repeat`}},
	}
	use := &Use{
		Rule:      rule,
		Decl:      0,
		Ref:       &Ref{X: 11, Y: 0},
		Shorthand: true,
		PosDecl:   -1,
		Extras:    []string{"#fff"},
	}

	Rewrite([]*Use{use}, "sprite.png")

	want := `#fff url("sprite.png") no-repeat -11px 0`
	if got := rule.Declarations[0].Value; got != want {
		t.Errorf("value = %q, want %q", got, want)
	}
	if len(rule.Declarations) != 1 {
		t.Errorf("shorthand rewrite should not add declarations, have %d", len(rule.Declarations))
	}
}

func TestRewrite_ExistingRepeatNotDuplicated(t *testing.T) {
	rule := &css.Rule{
		Selectors: []string{".a"},
		Declarations: []css.Declaration{
			{Property: "background-image", Value: `url("img/a.png")`},
			{Property: "background-repeat", Value: "no-repeat"},
		},
	}
	use := &Use{Rule: rule, Decl: 0, Ref: &Ref{}, HasRepeat: true, PosDecl: -1}

	Rewrite([]*Use{use}, "sprite.png")

	count := 0
	for _, d := range rule.Declarations {
		if d.Property == "background-repeat" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("background-repeat declared %d times, want 1", count)
	}
}

func TestRewrite_QuotesEscaped(t *testing.T) {
	rule := &css.Rule{
		Selectors:    []string{".a"},
		Declarations: []css.Declaration{{Property: "background-image", Value: `url(a.png)`}},
	}
	use := &Use{Rule: rule, Decl: 0, Ref: &Ref{}, PosDecl: -1}

	Rewrite([]*Use{use}, `odd"name.png`)

	if got := rule.Declarations[0].Value; got != `url("odd\"name.png")` {
		t.Errorf("value = %q, quotes must be escaped", got)
	}
}
