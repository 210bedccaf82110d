package pack

import (
	"path/filepath"
	"testing"

	"spritec/config"
)

func TestExpandTemplate(t *testing.T) {
	in := Instruction{
		Name: "site",
		CSS:  filepath.FromSlash("/project/web/main.css"),
		Img:  filepath.FromSlash("/project/web/icons"),
	}

	tests := []struct {
		name  string
		field string
		want  string
	}{
		{"name", "{{ .Name }}-sprite", "site-sprite"},
		{"css file", "{{ .CSSFile }}", "main"},
		{"image dir", "{{ .ImageDir }}", "icons"},
		{"context", "{{ .Context }}", string(config.OutputNameTemplateFieldName)},
		{"sprig function", "{{ .Name | upper }}", "SITE"},
		{"literal", "static-name", "static-name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(config.OutputNameTemplateFieldName, tt.field, in)
			if err != nil {
				t.Fatalf("expandTemplate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("malformed", func(t *testing.T) {
		if _, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Name ", in); err == nil {
			t.Fatal("expected error for malformed template")
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if _, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Nope }}", in); err == nil {
			t.Fatal("expected error for unknown template variable")
		}
	})
}
