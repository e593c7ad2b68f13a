// Package sqlguard vets LLM-written SQL before it reaches the shop database.
// Only a single SELECT (optionally with CTEs) over allow-listed, unqualified
// tables passes.
package sqlguard

import (
	"fmt"
	"slices"
	"strings"
)

// Violation explains why a statement was refused.
type Violation struct {
	Reason string
}

func (v *Violation) Error() string { return "sqlguard: " + v.Reason }

func violation(format string, args ...any) error {
	return &Violation{Reason: fmt.Sprintf(format, args...)}
}

// forbidden words end the check unless used as a function call, e.g. the
// MySQL string functions REPLACE() and INSERT().
var forbidden = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true, "upsert": true,
	"replace": true, "alter": true, "drop": true, "create": true, "truncate": true,
	"rename": true, "grant": true, "revoke": true, "call": true, "exec": true,
	"execute": true, "load": true, "handler": true, "lock": true, "unlock": true,
	"set": true, "into": true, "outfile": true, "dumpfile": true, "copy": true,
	"vacuum": true, "attach": true, "detach": true, "pragma": true,
}

// forbiddenFuncs are refused even as function calls.
var forbiddenFuncs = map[string]bool{
	"sleep": true, "pg_sleep": true, "benchmark": true, "load_file": true,
}

// clauseWords terminate a table reference list.
var clauseWords = map[string]bool{
	"where": true, "join": true, "inner": true, "left": true, "right": true,
	"full": true, "outer": true, "cross": true, "natural": true, "straight_join": true,
	"on": true, "using": true, "group": true, "order": true, "having": true,
	"limit": true, "offset": true, "union": true, "intersect": true, "except": true,
	"window": true, "for": true, "as": true,
}

// Check returns query without trailing semicolons if it is a single
// read-only statement touching only allowed tables (case-insensitive).
func Check(query string, allowed []string) (string, error) {
	stmt := strings.TrimSpace(query)
	for strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	}
	if stmt == "" {
		return "", violation("empty statement")
	}

	toks, err := tokenize(stmt)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "", violation("empty statement")
	}
	if first := toks[0]; first.kind != tokWord || (first.lower != "select" && first.lower != "with") {
		return "", violation("only SELECT statements are allowed")
	}

	for i, t := range toks {
		if t.kind == tokPunct && t.text == ";" {
			return "", violation("multiple statements are not allowed")
		}
		if t.kind != tokWord {
			continue
		}
		if forbiddenFuncs[t.lower] || (forbidden[t.lower] && !nextIs(toks, i, "(")) {
			return "", violation("%s is not allowed, access is read-only", strings.ToUpper(t.lower))
		}
	}

	tables, ctes, err := references(toks)
	if err != nil {
		return "", err
	}
	for _, tbl := range tables {
		name := strings.ToLower(tbl)
		if name == "dual" || slices.Contains(ctes, name) {
			continue
		}
		if !containsFold(allowed, name) {
			return "", violation("table %q is not readable", tbl)
		}
	}
	return stmt, nil
}

// StripFences extracts the SQL from a markdown code fence if the model
// wrapped its answer in one.
func StripFences(raw string) string {
	q := strings.TrimSpace(raw)
	if _, after, ok := strings.Cut(q, "```sql"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(q, "```"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	return q
}

// references walks the tokens and collects table names that follow FROM or
// JOIN at statement level or inside subqueries, plus CTE names. FROM inside
// function calls such as EXTRACT(YEAR FROM d) is ignored.
func references(toks []token) (tables, ctes []string, err error) {
	// parens tracks whether each open parenthesis starts a subquery.
	var parens []bool
	inQuery := func() bool { return len(parens) == 0 || parens[len(parens)-1] }

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.kind == tokPunct && t.text == "(":
			parens = append(parens, nextWordIs(toks, i, "select", "with"))
		case t.kind == tokPunct && t.text == ")":
			if len(parens) > 0 {
				parens = parens[:len(parens)-1]
			}
		case t.kind == tokWord && t.lower == "as" && i > 0 && nextIs(toks, i, "(") && isIdent(toks[i-1]):
			ctes = append(ctes, strings.ToLower(toks[i-1].text))
		case t.kind == tokWord && (t.lower == "from" || t.lower == "join") && inQuery():
			names, next, err := tableList(toks, i+1, t.lower == "from")
			if err != nil {
				return nil, nil, err
			}
			tables = append(tables, names...)
			i = next - 1
		}
	}
	return tables, ctes, nil
}

// tableList reads "tbl [AS] [alias] [, tbl ...]" starting at i and returns
// the names plus the index of the first unconsumed token.
func tableList(toks []token, i int, allowComma bool) ([]string, int, error) {
	var names []string
	for i < len(toks) {
		t := toks[i]
		if t.kind == tokPunct && t.text == "(" {
			return names, i, nil
		}
		if !isIdent(t) {
			return nil, i, violation("unexpected %q after FROM/JOIN", t.text)
		}
		if nextIs(toks, i, ".") {
			return nil, i, violation("qualified table names are not allowed")
		}
		if nextIs(toks, i, "(") {
			return nil, i, violation("table functions are not allowed")
		}
		if strings.Contains(t.text, ".") {
			return nil, i, violation("qualified table names are not allowed")
		}
		names = append(names, t.text)
		i++

		if i < len(toks) && toks[i].kind == tokWord && toks[i].lower == "as" {
			i++
		}
		if i < len(toks) && isIdent(toks[i]) && !clauseWords[toks[i].lower] {
			i++
		}
		if allowComma && i < len(toks) && toks[i].kind == tokPunct && toks[i].text == "," {
			i++
			continue
		}
		break
	}
	return names, i, nil
}

func isIdent(t token) bool {
	return t.kind == tokWord || t.kind == tokQuoted
}

func nextIs(toks []token, i int, punct string) bool {
	return i+1 < len(toks) && toks[i+1].kind == tokPunct && toks[i+1].text == punct
}

func nextWordIs(toks []token, i int, words ...string) bool {
	return i+1 < len(toks) && toks[i+1].kind == tokWord && slices.Contains(words, toks[i+1].lower)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
