package cache

import (
	"strings"
)

const (
	wildcard   = '*'
	escapeRune = '\\'
)

// Pattern is a compiled glob. '*' matches any run of characters, including
// none; every other character is literal. A backslash makes the following
// character literal, so `\*` matches a star and `\\` a backslash.
type Pattern struct {
	raw    string
	tokens []token
}

type token struct {
	literal string
	star    bool
}

// CompilePattern parses a glob pattern. A trailing lone backslash is taken
// literally.
func CompilePattern(pattern string) Pattern {
	p := Pattern{raw: pattern}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p.tokens = append(p.tokens, token{literal: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == escapeRune && i+1 < len(runes):
			i++
			lit.WriteRune(runes[i])
		case r == wildcard:
			flush()
			// Consecutive stars are equivalent to one.
			if n := len(p.tokens); n == 0 || !p.tokens[n-1].star {
				p.tokens = append(p.tokens, token{star: true})
			}
		default:
			lit.WriteRune(r)
		}
	}
	flush()

	return p
}

// String returns the source pattern.
func (p Pattern) String() string {
	return p.raw
}

// Literal reports whether the pattern has no wildcard, and if so the exact
// key it matches.
func (p Pattern) Literal() (string, bool) {
	switch len(p.tokens) {
	case 0:
		return "", true
	case 1:
		if !p.tokens[0].star {
			return p.tokens[0].literal, true
		}
	}
	return "", false
}

// Prefix returns the literal text every matching key starts with.
func (p Pattern) Prefix() string {
	if len(p.tokens) > 0 && !p.tokens[0].star {
		return p.tokens[0].literal
	}
	return ""
}

// Match reports whether key matches the whole pattern.
func (p Pattern) Match(key string) bool {
	return matchTokens(p.tokens, key)
}

// matchTokens anchors the first and last literals and then places the
// middle literals greedily leftmost, which is exact for star-only globs.
func matchTokens(tokens []token, s string) bool {
	if len(tokens) == 0 {
		return s == ""
	}

	if !tokens[0].star {
		if !strings.HasPrefix(s, tokens[0].literal) {
			return false
		}
		s = s[len(tokens[0].literal):]
		tokens = tokens[1:]
		if len(tokens) == 0 {
			return s == ""
		}
	}

	last := tokens[len(tokens)-1]
	if !last.star {
		if !strings.HasSuffix(s, last.literal) {
			return false
		}
		s = s[:len(s)-len(last.literal)]
		tokens = tokens[:len(tokens)-1]
	}

	// tokens now starts and ends with a star, or is a single star.
	for _, t := range tokens {
		if t.star {
			continue
		}
		idx := strings.Index(s, t.literal)
		if idx < 0 {
			return false
		}
		s = s[idx+len(t.literal):]
	}
	return true
}

// EscapePattern quotes s so it matches itself literally.
func EscapePattern(s string) string {
	if !strings.ContainsAny(s, `*\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if r == wildcard || r == escapeRune {
			b.WriteRune(escapeRune)
		}
		b.WriteRune(r)
	}
	return b.String()
}
