// Package css provides a structural stylesheet model: an ordered tree of
// rules and declarations that can be edited in place and written back out as
// valid CSS. Unlike string substitution, editing the tree cannot corrupt
// unrelated parts of the stylesheet.
package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single "property: value" entry inside a rule. Value keeps
// the raw token text exactly as parsed (including any !important marker) so
// declarations we do not touch survive rewriting untouched.
type Declaration struct {
	Property string
	Value    string
}

// Rule is a qualified rule: one or more selectors and an ordered declaration
// list. Declaration order is preserved from the source and is significant -
// consumers locate declarations by index.
type Rule struct {
	Selectors    []string
	Declarations []Declaration
}

// Find returns the index of the first declaration with the given property
// name (case-insensitive), or -1.
func (r *Rule) Find(property string) int {
	for i := range r.Declarations {
		if strings.EqualFold(r.Declarations[i].Property, property) {
			return i
		}
	}
	return -1
}

// FindLast returns the index of the last declaration with the given property
// name (case-insensitive), or -1. The cascade gives the last declaration
// effect, so this is the one that determines rendering.
func (r *Rule) FindLast(property string) int {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if strings.EqualFold(r.Declarations[i].Property, property) {
			return i
		}
	}
	return -1
}

// SelectorText returns the comma-joined selector list as it will be written.
func (r *Rule) SelectorText() string {
	return strings.Join(r.Selectors, ", ")
}

// AtRule is an @-rule. Simple at-rules (@import, @charset) have no block and
// keep their prelude verbatim. Block at-rules (@media, @supports) carry their
// nested items so rules inside them participate in scanning and rewriting.
type AtRule struct {
	Name     string // including the leading "@"
	Prelude  string
	HasBlock bool
	// Declarations holds direct "property: value" entries for declaration
	// blocks such as @font-face. Items holds nested rules for blocks such as
	// @media. Both may be present.
	Declarations []Declaration
	Items        []Item
}

// Item is a single stylesheet item. Exactly one of the fields is non-nil.
type Item struct {
	Rule    *Rule
	AtRule  *AtRule
	Comment *string // comment text including the /* */ delimiters
}

// Stylesheet is the parsed rule tree in source order.
type Stylesheet struct {
	Path  string // origin of the stylesheet, used in error reporting
	Items []Item
}

// Rules calls fn for every rule in the stylesheet, including rules nested in
// block at-rules, in source order. fn may modify the rule in place.
func (s *Stylesheet) Rules(fn func(*Rule)) {
	walkRules(s.Items, fn)
}

func walkRules(items []Item, fn func(*Rule)) {
	for i := range items {
		switch {
		case items[i].Rule != nil:
			fn(items[i].Rule)
		case items[i].AtRule != nil && items[i].AtRule.HasBlock:
			walkRules(items[i].AtRule.Items, fn)
		}
	}
}

// WriteTo writes the stylesheet as CSS text, implementing io.WriterTo.
// Formatting is normalized (one declaration per line) but content and order
// are exactly what the tree holds.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Items {
		n, err := writeItem(w, &s.Items[i], "")
		total += n
		if err != nil {
			return total, err
		}
		if i < len(s.Items)-1 {
			m, err := io.WriteString(w, "\n")
			total += int64(m)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeItem(w io.Writer, item *Item, indent string) (int64, error) {
	switch {
	case item.Comment != nil:
		n, err := fmt.Fprintf(w, "%s%s\n", indent, *item.Comment)
		return int64(n), err
	case item.Rule != nil:
		return writeRule(w, item.Rule, indent)
	case item.AtRule != nil:
		return writeAtRule(w, item.AtRule, indent)
	}
	return 0, nil
}

func writeRule(w io.Writer, rule *Rule, indent string) (int64, error) {
	var total int64
	n, err := fmt.Fprintf(w, "%s%s {\n", indent, rule.SelectorText())
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, d := range rule.Declarations {
		n, err = fmt.Fprintf(w, "%s  %s: %s;\n", indent, d.Property, d.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += int64(n)
	return total, err
}

func writeAtRule(w io.Writer, ar *AtRule, indent string) (int64, error) {
	var total int64
	prelude := ar.Prelude
	if prelude != "" {
		prelude = " " + prelude
	}
	if !ar.HasBlock {
		n, err := fmt.Fprintf(w, "%s%s%s;\n", indent, ar.Name, prelude)
		return int64(n), err
	}
	n, err := fmt.Fprintf(w, "%s%s%s {\n", indent, ar.Name, prelude)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, d := range ar.Declarations {
		n, err = fmt.Fprintf(w, "%s  %s: %s;\n", indent, d.Property, d.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	for i := range ar.Items {
		m, err := writeItem(w, &ar.Items[i], indent+"  ")
		total += m
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += int64(n)
	return total, err
}
