package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate is wrapped by every error returned from Compile.
var ErrInvalidTemplate = errors.New("pattern: invalid template")

// segmentKind is the kind of a single template segment.
type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentCapture
	segmentWildcard
)

// segment is one "/"-separated piece of a compiled template. For literal
// segments value holds the text to compare; for captures it holds the name.
type segment struct {
	kind  segmentKind
	value string
}

// Pattern is a compiled route template.
//
// A template is split on "/". A segment of the form ":name" captures exactly
// one path segment, ":name*" captures the remainder of the path (rejoined
// with "/") and must be the final segment, and anything else is a literal
// that must match exactly.
type Pattern struct {
	// template is the original template string.
	template string
	// segments are the parsed segments in order.
	segments []segment
	// names are the capture names in order.
	names []string
	// wildcard reports whether the last segment is a wildcard capture.
	wildcard bool
}

// Compile parses a route template and returns a compiled Pattern. Compiled
// patterns are cached by template, so compiling the same template twice
// returns the same *Pattern.
func Compile(tpl string) (*Pattern, error) {
	if v, ok := patternCache.Load(tpl); ok {
		return v.(*Pattern), nil
	}

	p, err := compile(tpl)
	if err != nil {
		return nil, err
	}

	actual, _ := patternCache.LoadOrStore(tpl, p)

	return actual.(*Pattern), nil
}

// MustCompile is like Compile but panics if the template is invalid.
func MustCompile(tpl string) *Pattern {
	p, err := Compile(tpl)
	if err != nil {
		panic(err)
	}
	return p
}

func compile(tpl string) (*Pattern, error) {
	parts := splitPath(tpl)

	p := &Pattern{
		template: tpl,
		segments: make([]segment, 0, len(parts)),
	}

	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			p.segments = append(p.segments, segment{kind: segmentLiteral, value: part})
			continue
		}

		name := part[1:]
		kind := segmentCapture
		if strings.HasSuffix(name, "*") {
			name = strings.TrimSuffix(name, "*")
			kind = segmentWildcard

			if i != len(parts)-1 {
				return nil, fmt.Errorf("%w: wildcard %q must be the last segment of %q", ErrInvalidTemplate, part, tpl)
			}
			p.wildcard = true
		}

		if name == "" {
			return nil, fmt.Errorf("%w: missing name in %q from %q", ErrInvalidTemplate, part, tpl)
		}
		if strings.ContainsAny(name, ":*") {
			return nil, fmt.Errorf("%w: invalid name %q in %q", ErrInvalidTemplate, name, tpl)
		}

		p.segments = append(p.segments, segment{kind: kind, value: name})
		p.names = append(p.names, name)
	}

	if err := checkDuplicateNames(p.names); err != nil {
		return nil, fmt.Errorf("%w: %s in %q", ErrInvalidTemplate, err, tpl)
	}

	return p, nil
}

// Match matches path against the pattern and returns the captured values.
//
// Without a wildcard the number of path segments must equal the number of
// template segments. With a wildcard the path needs at least as many segments
// as precede the wildcard, and the remainder (possibly empty) is captured.
// Single-segment captures never match an empty segment.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	parts := splitPath(path)

	fixed := len(p.segments)
	if p.wildcard {
		fixed--
		if len(parts) < fixed {
			return nil, false
		}
	} else if len(parts) != fixed {
		return nil, false
	}

	vars := make(map[string]string, len(p.names))
	for i := 0; i < fixed; i++ {
		seg := p.segments[i]
		switch seg.kind {
		case segmentLiteral:
			if parts[i] != seg.value {
				return nil, false
			}
		case segmentCapture:
			if parts[i] == "" {
				return nil, false
			}
			vars[seg.value] = parts[i]
		}
	}

	if p.wildcard {
		vars[p.segments[fixed].value] = strings.Join(parts[fixed:], "/")
	}

	return vars, true
}

// Template returns the template the pattern was compiled from.
func (p *Pattern) Template() string {
	return p.template
}

// Names returns the capture names in template order.
func (p *Pattern) Names() []string {
	names := make([]string, len(p.names))
	copy(names, p.names)
	return names
}

// HasWildcard reports whether the pattern ends in a wildcard capture.
func (p *Pattern) HasWildcard() bool {
	return p.wildcard
}

// Expand builds a path from the pattern and the given capture values.
func (p *Pattern) Expand(vars map[string]string) (string, error) {
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte('/')
		if seg.kind == segmentLiteral {
			b.WriteString(seg.value)
			continue
		}

		v, ok := vars[seg.value]
		if !ok {
			return "", fmt.Errorf("pattern: missing value for %q", seg.value)
		}
		if seg.kind == segmentCapture && (v == "" || strings.Contains(v, "/")) {
			return "", fmt.Errorf("pattern: value %q for %q must be a single non-empty segment", v, seg.value)
		}
		b.WriteString(v)
	}

	if b.Len() == 0 {
		return "/", nil
	}

	return strings.TrimSuffix(b.String(), "/"), nil
}

// OpenAPIPath returns the template in OpenAPI form, with every capture
// written as {name}.
func (p *Pattern) OpenAPIPath() string {
	if len(p.segments) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte('/')
		if seg.kind == segmentLiteral {
			b.WriteString(seg.value)
		} else {
			b.WriteString("{" + seg.value + "}")
		}
	}
	return b.String()
}

// String implements fmt.Stringer.
func (p *Pattern) String() string {
	return p.template
}

// splitPath strips one leading and one trailing slash and splits the rest
// on "/". The root path yields no segments.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// checkDuplicateNames returns an error if any capture name is repeated.
func checkDuplicateNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("duplicated capture %q", n)
		}
		seen[n] = true
	}
	return nil
}
