package pack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInstructions(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "sprites.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing instruction file: %v", err)
	}
	return path
}

func TestLoadInstructions(t *testing.T) {
	dir := t.TempDir()
	path := writeInstructions(t, dir, `[
  {"css": "web/site.css", "img": "web/img"},
  {"name": "admin", "css": "admin/main.css", "img": "admin/icons", "sprite": "admin/out/sprite.png"}
]`)

	instructions, err := LoadInstructions(path)
	if err != nil {
		t.Fatalf("LoadInstructions() error = %v", err)
	}
	if len(instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instructions))
	}

	// relative paths resolve against instruction file location
	if want := filepath.Join(dir, "web", "site.css"); instructions[0].CSS != want {
		t.Errorf("css = %q, want %q", instructions[0].CSS, want)
	}
	if want := filepath.Join(dir, "web", "img"); instructions[0].Img != want {
		t.Errorf("img = %q, want %q", instructions[0].Img, want)
	}
	if want := filepath.Join(dir, "admin", "out", "sprite.png"); instructions[1].Sprite != want {
		t.Errorf("sprite = %q, want %q", instructions[1].Sprite, want)
	}

	// name defaults to the stylesheet base name
	if instructions[0].Name != "site" {
		t.Errorf("default name = %q, want site", instructions[0].Name)
	}
	if instructions[1].Name != "admin" {
		t.Errorf("explicit name = %q, want admin", instructions[1].Name)
	}
}

func TestLoadInstructions_AbsolutePathsKept(t *testing.T) {
	dir := t.TempDir()
	css := filepath.Join(dir, "elsewhere", "style.css")
	path := writeInstructions(t, dir, `[{"css": "`+strings.ReplaceAll(css, `\`, `\\`)+`", "img": "img"}]`)

	instructions, err := LoadInstructions(path)
	if err != nil {
		t.Fatalf("LoadInstructions() error = %v", err)
	}
	if instructions[0].CSS != css {
		t.Errorf("css = %q, want %q", instructions[0].CSS, css)
	}
}

func TestLoadInstructions_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		substr  string
	}{
		{"not json", `nope`, "unable to parse"},
		{"empty array", `[]`, "no instructions"},
		{"missing css", `[{"img": "img"}]`, "no stylesheet"},
		{"missing img", `[{"css": "a.css"}]`, "no image source"},
		{"duplicate names", `[{"css": "a/style.css", "img": "a"}, {"css": "b/style.css", "img": "b"}]`, "duplicate instruction name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInstructions(t, t.TempDir(), tt.content)
			_, err := LoadInstructions(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %q, want substring %q", err, tt.substr)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadInstructions(filepath.Join(dir, "absent.json")); err == nil {
			t.Fatal("expected error for missing instruction file")
		}
	})
}

func TestSelectInstructions(t *testing.T) {
	instructions := []Instruction{
		{Name: "one"}, {Name: "two"}, {Name: "three"},
	}

	t.Run("no names selects everything", func(t *testing.T) {
		got, err := SelectInstructions(instructions, nil)
		if err != nil {
			t.Fatalf("SelectInstructions() error = %v", err)
		}
		if len(got) != 3 {
			t.Errorf("got %d instructions, want 3", len(got))
		}
	})

	t.Run("keeps file order", func(t *testing.T) {
		got, err := SelectInstructions(instructions, []string{"three", "one"})
		if err != nil {
			t.Fatalf("SelectInstructions() error = %v", err)
		}
		if len(got) != 2 || got[0].Name != "one" || got[1].Name != "three" {
			t.Errorf("selection = %v, want file order [one three]", got)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := SelectInstructions(instructions, []string{"one", "typo"}); err == nil {
			t.Fatal("expected error for unknown name")
		}
	})
}
