package dzn

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	rangeRe = regexp.MustCompile(`^(-?\d+)\s*\.\.\s*(-?\d+)$`)
)

// Parse decodes a block of dzn statements ("name = value;") into an
// Assignment, evaluating each value literal.
func Parse(text string) (Assignment, error) {
	a := Assignment{}
	for _, stmt := range splitStatements(text) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		name, raw, ok := strings.Cut(stmt, "=")
		if !ok {
			return nil, fmt.Errorf("malformed dzn statement %q", stmt)
		}
		name = strings.TrimSpace(name)
		if !identRe.MatchString(name) {
			return nil, fmt.Errorf("invalid dzn identifier %q", name)
		}
		v, err := ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		a[name] = v
	}
	return a, nil
}

// ParseValue evaluates a single dzn value literal.
func ParseValue(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty dzn value")
	}

	switch {
	case s == "true":
		return true, nil
	case s == "false":
		return false, nil
	case s[0] == '"':
		v, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %s: %w", s, err)
		}
		return v, nil
	case s[0] == '{':
		return parseSet(s)
	case s[0] == '[':
		return parseArray(s)
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i), nil
	}
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			return nil, fmt.Errorf("empty range literal %q", s)
		}
		return IntRange{Min: lo, Max: hi}, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}

	return nil, fmt.Errorf("cannot evaluate dzn value %q", s)
}

func parseSet(s string) (any, error) {
	if !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("unterminated set literal %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return IntSet{}, nil
	}
	setVals := IntSet{}
	for _, part := range strings.Split(inner, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid set element %q: %w", part, err)
		}
		setVals = append(setVals, i)
	}
	return setVals, nil
}

func parseArray(s string) (any, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("unterminated array literal %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []any{}, nil
	}
	elems := []any{}
	for _, part := range splitTop(inner) {
		v, err := ParseValue(part)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return elems, nil
}

// splitStatements splits dzn text on ';' boundaries, leaving string literals
// intact.
func splitStatements(text string) []string {
	var stmts []string
	var b strings.Builder
	inStr, esc := false, false
	for _, r := range text {
		switch {
		case esc:
			b.WriteRune(r)
			esc = false
		case inStr && r == '\\':
			b.WriteRune(r)
			esc = true
		case r == '"':
			inStr = !inStr
			b.WriteRune(r)
		case r == ';' && !inStr:
			stmts = append(stmts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if strings.TrimSpace(b.String()) != "" {
		stmts = append(stmts, b.String())
	}
	return stmts
}

// splitTop splits on top-level commas, respecting nested brackets and
// string literals.
func splitTop(s string) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	inStr, esc := false, false
	for _, r := range s {
		switch {
		case esc:
			b.WriteRune(r)
			esc = false
		case inStr && r == '\\':
			b.WriteRune(r)
			esc = true
		case r == '"':
			inStr = !inStr
			b.WriteRune(r)
		case inStr:
			b.WriteRune(r)
		case r == '[' || r == '{':
			depth++
			b.WriteRune(r)
		case r == ']' || r == '}':
			depth--
			b.WriteRune(r)
		case r == ',' && depth == 0:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}
