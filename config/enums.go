package config

import "fmt"

// CSSOutputMode selects where the rewritten stylesheet lands: next to the
// original as a sibling file, or over the original in place.
type CSSOutputMode int

const (
	CSSOutputSibling CSSOutputMode = iota
	CSSOutputOverwrite
)

var cssOutputModeNames = map[CSSOutputMode]string{
	CSSOutputSibling:   "sibling",
	CSSOutputOverwrite: "overwrite",
}

func (m CSSOutputMode) String() string {
	if n, ok := cssOutputModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("CSSOutputMode(%d)", int(m))
}

// ParseCSSOutputMode converts textual mode specification to CSSOutputMode.
func ParseCSSOutputMode(s string) (CSSOutputMode, error) {
	for m, n := range cssOutputModeNames {
		if n == s {
			return m, nil
		}
	}
	return CSSOutputSibling, fmt.Errorf("unknown css output mode %q", s)
}

func (m CSSOutputMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *CSSOutputMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseCSSOutputMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
