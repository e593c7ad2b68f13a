package sqlguard

import (
	"strings"
	"unicode"
)

type tokKind int

const (
	tokWord   tokKind = iota // keyword or bare identifier, may contain dots
	tokQuoted                // `ident` or "ident"
	tokString                // 'literal'
	tokPunct                 // any other single character
)

type token struct {
	kind  tokKind
	text  string
	lower string
}

// tokenize splits a statement into tokens, dropping whitespace and comments.
// Double-quoted text is treated as an identifier, as in standard SQL.
func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '-' && i+1 < len(rs) && rs[i+1] == '-', r == '#':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}

		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			j := i + 2
			for j+1 < len(rs) && (rs[j] != '*' || rs[j+1] != '/') {
				j++
			}
			if j+1 >= len(rs) {
				return nil, violation("unterminated comment")
			}
			i = j + 2

		case r == '\'':
			j, ok := closeQuote(rs, i, '\'')
			if !ok {
				return nil, violation("unterminated string literal")
			}
			toks = append(toks, token{kind: tokString, text: string(rs[i : j+1])})
			i = j + 1

		case r == '`' || r == '"':
			j, ok := closeQuote(rs, i, r)
			if !ok {
				return nil, violation("unterminated quoted identifier")
			}
			name := strings.ReplaceAll(string(rs[i+1:j]), string([]rune{r, r}), string(r))
			toks = append(toks, token{kind: tokQuoted, text: name, lower: strings.ToLower(name)})
			i = j + 1

		case isWordRune(r):
			j := i
			for j < len(rs) && (isWordRune(rs[j]) || rs[j] == '.') {
				j++
			}
			w := string(rs[i:j])
			toks = append(toks, token{kind: tokWord, text: w, lower: strings.ToLower(w)})
			i = j

		default:
			toks = append(toks, token{kind: tokPunct, text: string(r)})
			i++
		}
	}
	return toks, nil
}

// closeQuote finds the closing quote for the one at rs[start], treating a
// doubled quote as an escape. Backslash escapes are honoured for strings.
func closeQuote(rs []rune, start int, q rune) (int, bool) {
	for j := start + 1; j < len(rs); j++ {
		switch {
		case q == '\'' && rs[j] == '\\':
			j++
		case rs[j] == q && j+1 < len(rs) && rs[j+1] == q:
			j++
		case rs[j] == q:
			return j, true
		}
	}
	return 0, false
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
