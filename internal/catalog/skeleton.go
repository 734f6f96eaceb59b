package catalog

import "strings"

// PlaceholderSource identifies where a placeholder takes its value from.
type PlaceholderSource uint8

// Placeholder sources.
const (
	FromInput     PlaceholderSource = iota // #_N
	FromAttribute                          // @_N
	FromSelf                               // $_N
)

// marker returns the leading character of the placeholder form.
func (s PlaceholderSource) marker() byte {
	switch s {
	case FromAttribute:
		return '@'
	case FromSelf:
		return '$'
	default:
		return '#'
	}
}

// Placeholder is a single substitution point in a skeleton.
type Placeholder struct {
	Source PlaceholderSource
	Index  int // 0-9
}

// Fragment is a literal span followed by a placeholder.
type Fragment struct {
	Literal     string
	Placeholder Placeholder
}

// Skeleton is a parsed LaTeX template.
//
// A skeleton renders as Fragments[0].Literal, value(Fragments[0].Placeholder),
// Fragments[1].Literal, ... and finally Tail.
type Skeleton struct {
	Fragments []Fragment
	Tail      string
}

// ParseSkeleton splits a template into literal spans and placeholders.
// Parsing never fails: anything that is not a well-formed `#_d`, `@_d` or
// `$_d` placeholder is kept as literal text.
func ParseSkeleton(s string) Skeleton {
	var (
		sk    Skeleton
		start int
	)
	for i := 0; i+2 < len(s); {
		src, ok := placeholderAt(s, i)
		if !ok {
			i++
			continue
		}
		sk.Fragments = append(sk.Fragments, Fragment{
			Literal:     s[start:i],
			Placeholder: Placeholder{Source: src, Index: int(s[i+2] - '0')},
		})
		i += 3
		start = i
	}
	sk.Tail = s[start:]
	return sk
}

func placeholderAt(s string, i int) (PlaceholderSource, bool) {
	var src PlaceholderSource
	switch s[i] {
	case '#':
		src = FromInput
	case '@':
		src = FromAttribute
	case '$':
		src = FromSelf
	default:
		return 0, false
	}
	if s[i+1] != '_' || s[i+2] < '0' || s[i+2] > '9' {
		return 0, false
	}
	return src, true
}

// Render substitutes inputs, attributes and the node's own symbol.
// Placeholders whose index has no value render as the empty string.
func (sk Skeleton) Render(inputs, attrs []string, self string) string {
	var b strings.Builder
	for _, f := range sk.Fragments {
		b.WriteString(f.Literal)
		switch f.Placeholder.Source {
		case FromInput:
			b.WriteString(pick(inputs, f.Placeholder.Index))
		case FromAttribute:
			b.WriteString(pick(attrs, f.Placeholder.Index))
		case FromSelf:
			b.WriteString(self)
		}
	}
	b.WriteString(sk.Tail)
	return b.String()
}

// OnlyInputs renders with empty attributes and an empty self symbol.
func (sk Skeleton) OnlyInputs(inputs ...string) string {
	return sk.Render(inputs, nil, "")
}

// ExceptSelf renders with an empty self symbol.
func (sk Skeleton) ExceptSelf(inputs, attrs []string) string {
	return sk.Render(inputs, attrs, "")
}

// String restores the template in its canonical placeholder form.
func (sk Skeleton) String() string {
	var b strings.Builder
	for _, f := range sk.Fragments {
		b.WriteString(f.Literal)
		b.WriteByte(f.Placeholder.Source.marker())
		b.WriteByte('_')
		b.WriteByte(byte('0' + f.Placeholder.Index))
	}
	b.WriteString(sk.Tail)
	return b.String()
}

// Empty reports whether the skeleton renders to nothing.
func (sk Skeleton) Empty() bool {
	return len(sk.Fragments) == 0 && sk.Tail == ""
}

func pick(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
