package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	tdcss "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// ParseError reports malformed CSS with the byte offset of the offending
// input so the caller can point at the exact location.
type ParseError struct {
	Path   string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("css parse error in %s at offset %d: %s", e.Path, e.Offset, e.Msg)
}

// Parser parses CSS stylesheets into the structural tree model.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. path identifies the source in
// debug logs and parse errors.
func (p *Parser) Parse(data []byte, path string) (*Stylesheet, error) {
	p.log.Debug("Parsing CSS", zap.String("source", path), zap.Int("bytes", len(data)))

	input := parse.NewInput(bytes.NewReader(data))
	parser := tdcss.NewParser(input, false)

	sheet := &Stylesheet{Path: path}
	items, err := p.parseItems(parser, input, path, false)
	if err != nil {
		return nil, err
	}
	sheet.Items = items
	return sheet, nil
}

// parseItems consumes grammar events until end of input (nested == false) or
// the end of the enclosing at-rule block (nested == true).
func (p *Parser) parseItems(parser *tdcss.Parser, input *parse.Input, path string, nested bool) ([]Item, error) {
	var items []Item
	var pending []string // selectors accumulated from QualifiedRuleGrammar events

	for {
		gt, _, data := parser.Next()

		switch gt {
		case tdcss.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: err.Error()}
			}
			if nested {
				// block was not closed before end of input
				return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: "unexpected end of input inside block"}
			}
			return items, nil

		case tdcss.CommentGrammar:
			c := string(data)
			items = append(items, Item{Comment: &c})

		case tdcss.AtRuleGrammar:
			items = append(items, Item{AtRule: &AtRule{
				Name:    string(data),
				Prelude: tokenText(parser.Values()),
			}})

		case tdcss.BeginAtRuleGrammar:
			ar, err := p.parseAtRuleBlock(parser, input, path, string(data), tokenText(parser.Values()))
			if err != nil {
				return nil, err
			}
			items = append(items, Item{AtRule: ar})

		case tdcss.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(selectorText(data, parser.Values()))...)

		case tdcss.BeginRulesetGrammar:
			selectors := append(pending, splitSelectors(selectorText(data, parser.Values()))...)
			pending = nil
			decls, err := p.parseDeclarations(parser, input, path)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Rule: &Rule{Selectors: selectors, Declarations: decls}})

		case tdcss.EndAtRuleGrammar:
			if !nested {
				return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: "unexpected block end"}
			}
			return items, nil

		default:
			// token soup outside any rule, nothing to keep
		}
	}
}

// parseAtRuleBlock parses the body of a block at-rule. Declarations directly
// inside the block (e.g. @font-face) and nested rules (e.g. @media) are both
// supported.
func (p *Parser) parseAtRuleBlock(parser *tdcss.Parser, input *parse.Input, path, name, prelude string) (*AtRule, error) {
	ar := &AtRule{Name: name, Prelude: prelude, HasBlock: true}
	var pending []string

	for {
		gt, _, data := parser.Next()

		switch gt {
		case tdcss.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: err.Error()}
			}
			return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: "unterminated " + name + " block"}

		case tdcss.EndAtRuleGrammar:
			return ar, nil

		case tdcss.CommentGrammar:
			c := string(data)
			ar.Items = append(ar.Items, Item{Comment: &c})

		case tdcss.DeclarationGrammar:
			ar.Declarations = append(ar.Declarations, Declaration{
				Property: string(data),
				Value:    tokenText(parser.Values()),
			})

		case tdcss.AtRuleGrammar:
			ar.Items = append(ar.Items, Item{AtRule: &AtRule{
				Name:    string(data),
				Prelude: tokenText(parser.Values()),
			}})

		case tdcss.BeginAtRuleGrammar:
			inner, err := p.parseAtRuleBlock(parser, input, path, string(data), tokenText(parser.Values()))
			if err != nil {
				return nil, err
			}
			ar.Items = append(ar.Items, Item{AtRule: inner})

		case tdcss.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(selectorText(data, parser.Values()))...)

		case tdcss.BeginRulesetGrammar:
			selectors := append(pending, splitSelectors(selectorText(data, parser.Values()))...)
			pending = nil
			decls, err := p.parseDeclarations(parser, input, path)
			if err != nil {
				return nil, err
			}
			ar.Items = append(ar.Items, Item{Rule: &Rule{Selectors: selectors, Declarations: decls}})
		}
	}
}

// parseDeclarations collects declarations until the end of the ruleset.
func (p *Parser) parseDeclarations(parser *tdcss.Parser, input *parse.Input, path string) ([]Declaration, error) {
	var decls []Declaration
	for {
		gt, _, data := parser.Next()

		switch gt {
		case tdcss.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: err.Error()}
			}
			return nil, &ParseError{Path: path, Offset: input.Offset(), Msg: "unterminated rule"}

		case tdcss.EndRulesetGrammar:
			return decls, nil

		case tdcss.DeclarationGrammar, tdcss.CustomPropertyGrammar:
			decls = append(decls, Declaration{
				Property: string(data),
				Value:    tokenText(parser.Values()),
			})

		case tdcss.CommentGrammar:
			// comments between declarations do not survive rewriting
			p.log.Debug("Dropping comment inside rule", zap.String("source", path), zap.ByteString("comment", data))
		}
	}
}

// tokenText joins token data into a single string, collapsing whitespace
// runs to single spaces.
func tokenText(tokens []tdcss.Token) string {
	var sb strings.Builder
	space := false
	for _, t := range tokens {
		if t.TokenType == tdcss.WhitespaceToken {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// selectorText assembles a selector from the grammar data plus its value
// tokens. Whitespace inside selectors (descendant combinators) is preserved
// as single spaces.
func selectorText(data []byte, tokens []tdcss.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, t := range tokens {
		if t.TokenType == tdcss.WhitespaceToken {
			sb.WriteByte(' ')
			continue
		}
		sb.Write(t.Data)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// splitSelectors splits a comma-grouped selector string.
func splitSelectors(s string) []string {
	var out []string
	for sel := range strings.SplitSeq(s, ",") {
		sel = strings.TrimSpace(sel)
		if sel != "" {
			out = append(out, sel)
		}
	}
	return out
}

// Unquote removes surrounding single or double quotes from a CSS string.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// EscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func EscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
