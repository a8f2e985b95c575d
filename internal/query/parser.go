// Package query implements the query-string parser: turning a
// comma-separated conjunction of predicate patterns into an ordered
// []Pattern plus the distinct variables they mention, in first-occurrence
// order.
package query

import (
	"strings"
	"unicode"

	"github.com/jptmoore/beingdb/internal/litsplit"
)

// Parse parses a query string such as:
//
//	created(X, she), keyword(X, "neural networks")
//
// into a Query. It returns (nil, false) for an empty query or a pattern with
// no opening parenthesis — the same leniency posture as internal/fact.
func Parse(s string) (*Query, bool) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimSuffix(trimmed, ".")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return nil, false
	}

	parts := splitPatterns(trimmed)
	if len(parts) == 0 {
		return nil, false
	}

	q := &Query{}
	seen := make(map[string]bool)

	for _, part := range parts {
		pat, ok := parsePattern(part)
		if !ok {
			return nil, false
		}
		q.Patterns = append(q.Patterns, pat)
		for _, term := range pat.Terms {
			if term.Kind == TermVar && !seen[term.Text] {
				seen[term.Text] = true
				q.Variables = append(q.Variables, term.Text)
			}
		}
	}

	return q, true
}

// splitPatterns splits s on commas that are both outside a quoted string and
// at zero paren depth — the comma separating "f(a,b)" from "g(c)" in
// "f(a,b), g(c)", but not the comma inside f(a,b)'s own argument list.
func splitPatterns(s string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	inString := false
	escaped := false

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inString && r == '\\':
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			cur.WriteRune(r)
		case inString:
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, strings.TrimSpace(cur.String()))

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePattern(s string) (Pattern, bool) {
	openParen := strings.IndexByte(s, '(')
	if openParen < 0 {
		return Pattern{}, false
	}

	name := strings.TrimSpace(s[:openParen])
	if name == "" {
		return Pattern{}, false
	}

	rest := strings.TrimSpace(s[openParen+1:])
	rest = strings.TrimSuffix(rest, ")")

	tokens := litsplit.SplitTopLevel(rest)
	terms := make([]Term, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, parseTerm(tok))
	}

	return Pattern{Name: name, Terms: terms}, true
}

func parseTerm(tok string) Term {
	if tok == "_" {
		return Term{Kind: TermWildcard}
	}
	if strings.HasPrefix(tok, `"`) {
		if content, ok := litsplit.UnquoteString(tok); ok {
			return Term{Kind: TermString, Text: content}
		}
		return Term{Kind: TermAtom, Text: tok}
	}
	if isVarToken(tok) {
		return Term{Kind: TermVar, Text: tok}
	}
	return Term{Kind: TermAtom, Text: tok}
}

// isVarToken reports whether tok begins with an uppercase ASCII letter, the
// rule distinguishing a variable from an atom.
func isVarToken(tok string) bool {
	if tok == "" {
		return false
	}
	r := rune(tok[0])
	return unicode.IsUpper(r) && r <= unicode.MaxASCII
}
