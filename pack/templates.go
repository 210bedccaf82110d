package pack

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"spritec/config"
)

// Values holds variables we make available for template expansion
type Values struct {
	Context  string
	Name     string
	CSSFile  string
	ImageDir string
}

func buildValues(name config.TemplateFieldName, in Instruction) Values {
	return Values{
		Context:  string(name),
		Name:     in.Name,
		CSSFile:  strings.TrimSuffix(filepath.Base(in.CSS), filepath.Ext(in.CSS)),
		ImageDir: filepath.Base(in.Img),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, in Instruction) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, buildValues(name, in)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
