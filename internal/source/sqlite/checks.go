package sqlite

import (
	"fmt"
	"strings"

	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

// SQLite keeps no structured record of check constraints, only the original
// CREATE TABLE text in sqlite_master. The scanner below walks that text,
// skipping literals, quoted identifiers and comments, and picks out every
// CHECK (...) clause.

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokString
	tokPunct
)

type token struct {
	kind       tokenKind
	text       string
	start, end int
}

// ParseCheckConstraints extracts the check constraints of a CREATE TABLE
// statement in declaration order. Unnamed constraints get the name Postgres
// would choose: table_column_check when the expression references exactly one
// column, table_check otherwise, with a numeric suffix on collision.
func ParseCheckConstraints(table, createSQL string) []types.ConstraintDescriptor {
	toks := tokenize(createSQL)
	columns := columnNames(toks)
	out := []types.ConstraintDescriptor{}
	taken := map[string]bool{}
	var pending []int
	var bases []string

	for i := 0; i < len(toks); i++ {
		if !isKeyword(toks[i], "CHECK") || i+1 >= len(toks) || !isPunct(toks[i+1], "(") {
			continue
		}
		closeIdx := matchParen(toks, i+1)
		if closeIdx < 0 {
			break
		}
		expr := strings.TrimSpace(createSQL[toks[i+1].end:toks[closeIdx].start])

		var name string
		if i >= 2 && isKeyword(toks[i-2], "CONSTRAINT") && (toks[i-1].kind == tokWord || toks[i-1].kind == tokQuoted) {
			name = toks[i-1].text
		}
		if name == "" {
			base := table + "_check"
			if refs := referencedColumns(toks[i+2:closeIdx], columns); len(refs) == 1 {
				base = table + "_" + refs[0] + "_check"
			}
			pending = append(pending, len(out))
			bases = append(bases, base)
		} else {
			taken[name] = true
		}

		out = append(out, types.ConstraintDescriptor{
			Name:       name,
			Definition: "CHECK (" + expr + ")",
		})
		i = closeIdx
	}

	for n, idx := range pending {
		name := bases[n]
		for suffix := 1; taken[name]; suffix++ {
			name = fmt.Sprintf("%s%d", bases[n], suffix)
		}
		taken[name] = true
		out[idx].Name = name
	}
	return out
}

// columnNames lists the columns declared in the table body: the leading
// identifier of every top-level definition that is not a table constraint.
func columnNames(toks []token) []string {
	open := -1
	for i, t := range toks {
		if isPunct(t, "(") {
			open = i
			break
		}
	}
	if open < 0 {
		return nil
	}

	var cols []string
	depth := 0
	atStart := true
	for _, t := range toks[open+1:] {
		switch {
		case isPunct(t, "("):
			depth++
		case isPunct(t, ")"):
			if depth == 0 {
				return cols
			}
			depth--
		case isPunct(t, ",") && depth == 0:
			atStart = true
			continue
		}
		if atStart && depth == 0 {
			atStart = false
			if t.kind == tokQuoted || (t.kind == tokWord && !isTableConstraintKeyword(t)) {
				cols = append(cols, t.text)
			}
		}
	}
	return cols
}

func isTableConstraintKeyword(t token) bool {
	for _, kw := range []string{"CONSTRAINT", "CHECK", "PRIMARY", "UNIQUE", "FOREIGN"} {
		if isKeyword(t, kw) {
			return true
		}
	}
	return false
}

// referencedColumns returns the distinct declared columns named in expr,
// ignoring function names and string literals.
func referencedColumns(expr []token, columns []string) []string {
	var refs []string
	seen := map[string]bool{}
	for i, t := range expr {
		if t.kind != tokWord && t.kind != tokQuoted {
			continue
		}
		if t.kind == tokWord && i+1 < len(expr) && isPunct(expr[i+1], "(") {
			continue
		}
		for _, col := range columns {
			if strings.EqualFold(t.text, col) && !seen[col] {
				seen[col] = true
				refs = append(refs, col)
			}
		}
	}
	return refs
}

func isKeyword(t token, kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func isPunct(t token, p string) bool {
	return t.kind == tokPunct && t.text == p
}

// matchParen returns the index of the token closing the parenthesis at open, or -1.
func matchParen(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case isPunct(toks[i], "("):
			depth++
		case isPunct(toks[i], ")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func tokenize(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 4
			}
		case c == '\'':
			end, text := scanQuoted(s, i, '\'')
			toks = append(toks, token{kind: tokString, text: text, start: i, end: end})
			i = end
		case c == '"' || c == '`':
			end, text := scanQuoted(s, i, c)
			toks = append(toks, token{kind: tokQuoted, text: text, start: i, end: end})
			i = end
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				toks = append(toks, token{kind: tokQuoted, text: s[i+1:], start: i, end: len(s)})
				i = len(s)
				continue
			}
			toks = append(toks, token{kind: tokQuoted, text: s[i+1 : i+end], start: i, end: i + end + 1})
			i += end + 1
		case isWordByte(c):
			start := i
			for i < len(s) && isWordByte(s[i]) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: s[start:i], start: start, end: i})
		default:
			toks = append(toks, token{kind: tokPunct, text: s[i : i+1], start: i, end: i + 1})
			i++
		}
	}
	return toks
}

// scanQuoted reads a q-delimited run starting at s[start], where a doubled q
// stands for one literal q. It returns the offset past the closing quote and
// the unescaped contents.
func scanQuoted(s string, start int, q byte) (int, string) {
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				b.WriteByte(q)
				i += 2
				continue
			}
			return i + 1, b.String()
		}
		b.WriteByte(s[i])
		i++
	}
	return len(s), b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
