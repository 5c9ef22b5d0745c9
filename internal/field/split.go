package field

// split.go splits tag strings at commas, ignoring commas inside quotes or brackets

import (
	"fmt"
	"strings"
)

// Split splits s on top-level commas, trimming spaces from each part.  Anything after a
// top-level # is returned separately as a comment.  Commas and #s inside double quotes,
// round brackets, square brackets or braces do not count, so "a(b,c),d # e" gives
// []string{"a(b,c)", "d"} and " e".  An error is returned for unmatched brackets or quotes.
func Split(s string) (parts []string, comment string, err error) {
	var depth []rune // stack of expected closing brackets
	var inString bool
	start := 0

loop:
	for i, c := range s {
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth = append(depth, ')')
		case '[':
			depth = append(depth, ']')
		case '{':
			depth = append(depth, '}')
		case ')', ']', '}':
			if len(depth) == 0 || depth[len(depth)-1] != c {
				return nil, "", fmt.Errorf("unmatched %q in %q", c, s)
			}
			depth = depth[:len(depth)-1]
		case ',':
			if len(depth) == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		case '#':
			if len(depth) == 0 {
				comment = s[i+1:]
				s = s[:i]
				break loop
			}
		}
	}
	if inString {
		return nil, "", fmt.Errorf("unterminated string in %q", s)
	}
	if len(depth) > 0 {
		return nil, "", fmt.Errorf("missing %q in %q", depth[len(depth)-1], s)
	}
	return append(parts, strings.TrimSpace(s[start:])), comment, nil
}
