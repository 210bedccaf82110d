package sprite

import (
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"spritec/css"
)

// urlPattern matches a url() reference in a CSS value:
// url("path"), url('path') and url(path).
var urlPattern = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"']*))\s*\)`)

// Scan walks the stylesheet and finds every rule whose background or
// background-image declaration references a file under imgDir (resolved
// relative to cssDir, the directory of the stylesheet). It returns the rule
// uses in source order and the distinct referenced images deduplicated by
// resolved path, ordered by first discovery.
//
// References to remote URLs, data URIs and files outside imgDir are not
// sprite candidates and pass through untouched. A candidate rule with an
// explicit repeat other than no-repeat fails with *RepeatError.
func Scan(sheet *css.Stylesheet, cssDir, imgDir string, log *zap.Logger) ([]*Use, []*Ref, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scan")

	var (
		uses    []*Use
		refs    []*Ref
		byPath  = make(map[string]*Ref)
		scanErr error
	)

	sheet.Rules(func(rule *css.Rule) {
		if scanErr != nil {
			return
		}
		use, err := scanRule(rule, cssDir, imgDir, log)
		if err != nil {
			scanErr = err
			return
		}
		if use == nil {
			return
		}
		ref, ok := byPath[use.Ref.Source]
		if !ok {
			ref = use.Ref
			byPath[ref.Source] = ref
			refs = append(refs, ref)
		}
		use.Ref = ref
		uses = append(uses, use)
	})
	if scanErr != nil {
		return nil, nil, scanErr
	}

	log.Debug("Stylesheet scanned", zap.String("css", sheet.Path), zap.Int("rules", len(uses)), zap.Int("images", len(refs)))
	return uses, refs, nil
}

// scanRule inspects a single rule. CSS cascade means a later background
// declaration fully overrides an earlier one, so the last background
// declaration decides: it becomes the use when it is a local candidate,
// otherwise the rule passes through even if an earlier declaration was one.
func scanRule(rule *css.Rule, cssDir, imgDir string, log *zap.Logger) (*Use, error) {
	declIdx := -1
	var val backgroundValue
	var source string

	for i := range rule.Declarations {
		d := &rule.Declarations[i]
		if !strings.EqualFold(d.Property, "background") && !strings.EqualFold(d.Property, "background-image") {
			continue
		}
		// this declaration overrides whatever came before it even when it is
		// not a candidate itself, an overridden candidate must not be sprited
		declIdx = -1
		if hasTopLevelComma(d.Value) {
			// multi-layer backgrounds are never sprited
			log.Debug("Skipping multi-layer background", zap.String("selector", rule.SelectorText()))
			continue
		}
		v := parseBackgroundValue(d.Value)
		if !v.hasURL {
			continue
		}
		abs, ok := localCandidate(v.url, cssDir, imgDir)
		if !ok {
			log.Debug("Skipping non-local image reference", zap.String("selector", rule.SelectorText()), zap.String("url", v.url))
			continue
		}
		declIdx, val, source = i, v, abs
		val.shorthand = strings.EqualFold(d.Property, "background")
	}
	if declIdx < 0 {
		return nil, nil
	}

	// Effective repeat: the last background-repeat declaration unless the
	// shorthand resets it (a declaration before the shorthand is dead; for
	// background-image any explicit declaration counts).
	repeat := ""
	if val.shorthand {
		repeat = val.repeat
	}
	repeatIdx := rule.FindLast("background-repeat")
	if repeatIdx >= 0 && (!val.shorthand || repeatIdx > declIdx) {
		repeat = strings.ToLower(strings.TrimSpace(rule.Declarations[repeatIdx].Value))
	}
	if repeat != "" && repeat != "no-repeat" {
		return nil, &RepeatError{Selector: rule.SelectorText(), Repeat: repeat, Path: val.url}
	}

	// Effective position, same override logic as repeat.
	posTokens := []string(nil)
	if val.shorthand {
		posTokens = val.posTokens
	}
	posIdx := rule.FindLast("background-position")
	if posIdx >= 0 && (!val.shorthand || posIdx > declIdx) {
		posTokens = splitValue(rule.Declarations[posIdx].Value)
	} else {
		posIdx = -1
	}
	ox, oy, ok := positionOffsets(posTokens)
	if !ok {
		// positions we cannot compose algebraically (percentages, center,
		// em units) leave the rule untouched; it keeps referencing the
		// original file and renders exactly as before
		log.Warn("Skipping rule with non-pixel background-position",
			zap.String("selector", rule.SelectorText()), zap.Strings("position", posTokens))
		return nil, nil
	}

	return &Use{
		Rule:      rule,
		Decl:      declIdx,
		Ref:       &Ref{Source: source, URL: val.url},
		OffsetX:   ox,
		OffsetY:   oy,
		Shorthand: val.shorthand,
		HasRepeat: repeatIdx >= 0 && repeat == "no-repeat",
		PosDecl:   posIdx,
		Extras:    val.extras,
	}, nil
}

// localCandidate resolves a url() reference against the stylesheet directory
// and reports whether it lands inside the image directory.
func localCandidate(url, cssDir, imgDir string) (string, bool) {
	switch {
	case url == "",
		strings.HasPrefix(url, "data:"),
		strings.HasPrefix(url, "#"),
		strings.HasPrefix(url, "//"),
		strings.Contains(url, "://"),
		path.IsAbs(url):
		return "", false
	}
	abs, err := filepath.Abs(filepath.Join(cssDir, filepath.FromSlash(url)))
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(imgDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}

// backgroundValue is the decomposed value of a background/background-image
// declaration.
type backgroundValue struct {
	url       string
	hasURL    bool
	shorthand bool
	repeat    string   // explicit repeat keyword, empty if absent
	posTokens []string // position component tokens in source order
	extras    []string // everything else worth carrying over (color, attachment)
}

func parseBackgroundValue(raw string) backgroundValue {
	var v backgroundValue

	loc := urlPattern.FindStringSubmatchIndex(raw)
	rest := raw
	if loc != nil {
		for _, g := range []int{2, 4, 6} {
			if loc[g] >= 0 {
				v.url = strings.TrimSpace(raw[loc[g]:loc[g+1]])
				v.hasURL = true
				break
			}
		}
		rest = raw[:loc[0]] + " " + raw[loc[1]:]
	}

	for _, tok := range splitValue(rest) {
		lower := strings.ToLower(tok)
		switch {
		case isRepeatKeyword(lower):
			v.repeat = lower
		case isPositionToken(lower):
			v.posTokens = append(v.posTokens, lower)
		case lower == "none", lower == "inherit", lower == "initial":
			// meaningless once the declaration is rewritten
		default:
			v.extras = append(v.extras, tok)
		}
	}
	return v
}

// hasTopLevelComma reports whether a value contains a comma outside function
// notation. Only such a comma separates background layers; commas inside
// rgb(), var() and friends belong to a single layer.
func hasTopLevelComma(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// splitValue splits a CSS value on whitespace keeping function notation
// (e.g. rgb(1, 2, 3)) together as a single token.
func splitValue(s string) []string {
	var out []string
	depth := 0
	cur := ""
	for _, f := range strings.Fields(s) {
		if depth > 0 {
			cur += " " + f
		} else {
			cur = f
		}
		depth += strings.Count(f, "(") - strings.Count(f, ")")
		if depth <= 0 {
			out = append(out, cur)
			depth = 0
			cur = ""
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func isRepeatKeyword(t string) bool {
	switch t {
	case "repeat", "repeat-x", "repeat-y", "no-repeat", "space", "round":
		return true
	}
	return false
}

var numericToken = regexp.MustCompile(`^[+-]?(\d+|\d*\.\d+)([a-z%]*)$`)

func isPositionToken(t string) bool {
	switch t {
	case "left", "right", "top", "bottom", "center":
		return true
	}
	return numericToken.MatchString(t)
}

// positionOffsets converts position tokens to pixel offsets. Only values
// that compose algebraically with a placement are accepted: bare zeros,
// pixel lengths and the left/top keywords. Everything else (percentages,
// center, relative units) reports !ok and the rule passes through.
func positionOffsets(tokens []string) (ox, oy int, ok bool) {
	switch len(tokens) {
	case 0:
		return 0, 0, true
	case 2:
		ox, ok = pixelOffset(tokens[0], "left")
		if !ok {
			return 0, 0, false
		}
		oy, ok = pixelOffset(tokens[1], "top")
		if !ok {
			return 0, 0, false
		}
		return ox, oy, true
	default:
		// a single value implies the second is center - not composable
		return 0, 0, false
	}
}

func pixelOffset(t, zeroKeyword string) (int, bool) {
	if t == zeroKeyword || t == "0" {
		return 0, true
	}
	m := numericToken.FindStringSubmatch(t)
	if m == nil || m[2] != "px" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(t, "px"), 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
