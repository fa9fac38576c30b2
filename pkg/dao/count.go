package dao

import "strings"

// CountQuery derives the query Page uses to count the rows of query.
// A trailing ORDER BY is dropped; SQL Server rejects one inside a derived
// table.
func CountQuery(query string) string {
	return "SELECT COUNT(*) FROM (" + StripOrderBy(query) + ") _v"
}

// StripOrderBy removes the top-level ORDER BY clause ending query. The
// clause is kept when LIMIT, OFFSET or FETCH follow it, since the ordering
// then decides which rows are counted.
func StripOrderBy(query string) string {
	q := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(query), ";"))
	words := topLevelWords(q)

	at := -1
	for i := len(words) - 2; i >= 0; i-- {
		if words[i].text == "ORDER" && words[i+1].text == "BY" {
			at = i
			break
		}
	}
	if at < 0 {
		return q
	}
	for _, w := range words[at+2:] {
		switch w.text {
		case "LIMIT", "OFFSET", "FETCH":
			return q
		}
	}
	return strings.TrimSpace(q[:words[at].pos])
}

type word struct {
	text string
	pos  int
}

// topLevelWords lists the upper-cased bare words of q that sit outside
// parentheses, quotes and comments. Backslash escapes are honoured only in
// Postgres E'...' literals; MySQL's default backslash escaping inside plain
// quotes is not recognised.
func topLevelWords(q string) []word {
	var (
		out   []word
		depth int
	)
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(q, i, c, c == '\'' && escapePrefixed(q, i))
		case c == '$':
			if end, ok := skipDollarQuoted(q, i); ok {
				i = end
			} else {
				i++
			}
		case c == '[':
			if j := strings.IndexByte(q[i:], ']'); j >= 0 {
				i += j + 1
			} else {
				i = len(q)
			}
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			if j := strings.IndexByte(q[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(q)
			}
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			if j := strings.Index(q[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(q)
			}
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c) && !isDigit(c):
			start := i
			for i < len(q) && isWordByte(q[i]) {
				i++
			}
			if depth == 0 {
				out = append(out, word{text: strings.ToUpper(q[start:i]), pos: start})
			}
		default:
			i++
		}
	}
	return out
}

// skipQuoted returns the index just past the literal opened at q[i]. A
// doubled quote is an escaped quote, and so is a backslashed one when
// backslash is set.
func skipQuoted(q string, i int, quote byte, backslash bool) int {
	for j := i + 1; j < len(q); j++ {
		if backslash && q[j] == '\\' {
			j++
			continue
		}
		if q[j] != quote {
			continue
		}
		if j+1 < len(q) && q[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(q)
}

// escapePrefixed reports whether the quote at q[i] opens an E'...' literal.
func escapePrefixed(q string, i int) bool {
	if i == 0 || (q[i-1] != 'E' && q[i-1] != 'e') {
		return false
	}
	return i == 1 || !isWordByte(q[i-2])
}

// skipDollarQuoted skips a Postgres $tag$...$tag$ literal opened at q[i].
// Positional parameters like $1 are not literals.
func skipDollarQuoted(q string, i int) (int, bool) {
	j := i + 1
	for j < len(q) && q[j] != '$' {
		c := q[j]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (j > i+1 && isDigit(c))) {
			return 0, false
		}
		j++
	}
	if j >= len(q) {
		return 0, false
	}
	tag := q[i : j+1]
	if end := strings.Index(q[j+1:], tag); end >= 0 {
		return j + 1 + end + len(tag), true
	}
	return len(q), true
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
