package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// groupToken is a capturing group found in pattern source, in textual order
type groupToken struct {
	name   string // empty for unnamed groups
	offset int    // byte offset of the opening parenthesis
}

// backrefToken is a backreference escape found in pattern source
type backrefToken struct {
	start, end int    // byte span of the escape in the source
	digits     string // numeric form: every digit following the backslash
	explicit   bool   // digits came from \k<N>, so all of them are the number
	name       string // named form: \k<name> or \k'name'
}

func (b backrefToken) isNamed() bool { return b.name != "" }

// syntax is the structural summary of a pattern source
type syntax struct {
	groups   []groupToken
	backrefs []backrefToken
}

// syntaxError is a structural problem found while scanning a pattern
type syntaxError struct {
	offset int
	msg    string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.msg, e.offset)
}

// scanSyntax walks pattern source and records capturing groups and
// backreferences. It only understands enough of the .NET/ICU syntax to
// count groups: escapes, character classes (including subtraction),
// comments, lookaround, inline options and named-group openers.
func scanSyntax(src string) (syntax, error) {
	var out syntax
	depth := 0
	conditional := false
	extended := false // inside (?x); '#' starts a comment running to end of line
	var scopes []bool // extended state to restore when each open group closes

	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\\':
			if i+1 >= len(src) {
				return out, &syntaxError{offset: i, msg: "trailing backslash"}
			}
			next := src[i+1]
			switch {
			case next >= '1' && next <= '9':
				j := i + 1
				for j < len(src) && isDigit(src[j]) {
					j++
				}
				out.backrefs = append(out.backrefs, backrefToken{start: i, end: j, digits: src[i+1 : j]})
				i = j - 1
			case next == 'k' && i+2 < len(src) && (src[i+2] == '<' || src[i+2] == '\''):
				closer := byte('>')
				if src[i+2] == '\'' {
					closer = '\''
				}
				end := strings.IndexByte(src[i+3:], closer)
				if end < 0 {
					return out, &syntaxError{offset: i, msg: "unterminated named backreference"}
				}
				name := src[i+3 : i+3+end]
				ref := backrefToken{start: i, end: i + 3 + end + 1}
				if isAllDigits(name) {
					ref.digits = name
					ref.explicit = true
				} else {
					ref.name = name
				}
				out.backrefs = append(out.backrefs, ref)
				i = i + 3 + end
			default:
				i++
			}

		case '[':
			end, err := skipClass(src, i)
			if err != nil {
				return out, err
			}
			i = end

		case '#':
			if extended {
				end := strings.IndexByte(src[i:], '\n')
				if end < 0 {
					i = len(src)
					continue
				}
				i += end
			}

		case '(':
			if strings.HasPrefix(src[i:], "(?#") {
				end := strings.IndexByte(src[i:], ')')
				if end < 0 {
					return out, &syntaxError{offset: i, msg: "unterminated comment group"}
				}
				i += end
				continue
			}
			if on, scoped, n, ok := inlineOptions(src[i:], extended); ok {
				i += n - 1
				if !scoped {
					// (?x) applies until the enclosing group closes
					extended = on
					continue
				}
				depth++
				scopes = append(scopes, extended)
				extended = on
				continue
			}
			depth++
			scopes = append(scopes, extended)
			if conditional {
				// The parenthesised condition of (?(...)yes|no) never captures.
				conditional = false
				continue
			}
			if strings.HasPrefix(src[i:], "(?(") {
				conditional = true
				continue
			}
			capturing, name := groupOpener(src[i:])
			if capturing {
				out.groups = append(out.groups, groupToken{name: name, offset: i})
			}

		case ')':
			depth--
			if depth < 0 {
				return out, &syntaxError{offset: i, msg: "unmatched closing parenthesis"}
			}
			extended = scopes[len(scopes)-1]
			scopes = scopes[:len(scopes)-1]
		}
	}

	if depth != 0 {
		return out, &syntaxError{offset: len(src), msg: fmt.Sprintf("%d unclosed group(s)", depth)}
	}
	return out, nil
}

// inlineOptions parses an option group such as (?x), (?i-x) or (?sx:
// starting at s[0] == '('. It returns the free-spacing state inside the
// group, whether the options open a scoped group, and the length of the
// opener up to and including ')' or ':'.
func inlineOptions(s string, extended bool) (on, scoped bool, n int, ok bool) {
	if !strings.HasPrefix(s, "(?") {
		return false, false, 0, false
	}
	on = extended
	negate := false
	for j := 2; j < len(s); j++ {
		switch s[j] {
		case '-':
			negate = true
		case 'x', 'X':
			on = !negate
		case 'i', 'I', 'm', 'M', 'n', 'N', 's', 'S':
		case ')', ':':
			if j == 2 {
				return false, false, 0, false
			}
			return on, s[j] == ':', j + 1, true
		default:
			return false, false, 0, false
		}
	}
	return false, false, 0, false
}

// groupOpener classifies the group starting at s[0] == '('
func groupOpener(s string) (capturing bool, name string) {
	if len(s) < 2 || s[1] != '?' {
		return true, ""
	}
	rest := s[2:]
	switch {
	case strings.HasPrefix(rest, "P<"):
		return namedUntil(rest[2:], '>')
	case strings.HasPrefix(rest, "<"):
		if len(rest) > 1 && (rest[1] == '=' || rest[1] == '!') {
			return false, ""
		}
		return namedUntil(rest[1:], '>')
	case strings.HasPrefix(rest, "'"):
		return namedUntil(rest[1:], '\'')
	default:
		return false, ""
	}
}

func namedUntil(s string, closer byte) (bool, string) {
	end := strings.IndexByte(s, closer)
	if end <= 0 {
		return false, ""
	}
	name := s[:end]
	// Balancing groups (?<name-other>...) capture under their first name.
	if dash := strings.IndexByte(name, '-'); dash >= 0 {
		name = name[:dash]
		if name == "" {
			return false, ""
		}
	}
	return true, name
}

// skipClass returns the offset of the ']' closing the class opened at start
func skipClass(src string, start int) (int, error) {
	j := start + 1
	if j < len(src) && src[j] == '^' {
		j++
	}
	if j < len(src) && src[j] == ']' {
		j++
	}
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '[':
			if src[j-1] == '-' {
				end, err := skipClass(src, j)
				if err != nil {
					return 0, err
				}
				j = end + 1
				continue
			}
		case ']':
			return j, nil
		}
		j++
	}
	return 0, &syntaxError{offset: start, msg: "unterminated character class"}
}

// resolveNumber picks the longest digit prefix naming an existing group.
// It returns the group number and how many digits it consumed.
func resolveNumber(digits string, groupCount int) (int, int) {
	best, used := 0, 0
	for n := 1; n <= len(digits); n++ {
		v, err := strconv.Atoi(digits[:n])
		if err != nil || v > groupCount {
			break
		}
		best, used = v, n
	}
	return best, used
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
