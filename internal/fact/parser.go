// Package fact implements the source-line parser for predicate fact files:
// one ground fact per line, of the form "name(arg, arg, ...)." with an
// optional trailing period.
package fact

import (
	"strings"

	"github.com/jptmoore/beingdb/internal/litsplit"
)

// ArgKind distinguishes an atom from a quoted string argument. The
// distinction is a tagged value carried alongside the text, not a Go type
// system artifact.
type ArgKind int

const (
	// Atom is an unquoted, verbatim argument.
	Atom ArgKind = iota
	// String is a double-quoted argument with escapes already resolved.
	String
)

// Arg is one typed fact argument.
type Arg struct {
	Kind ArgKind
	Text string
}

// Fact is a single ground tuple: a predicate name and its typed arguments.
type Fact struct {
	Name string
	Args []Arg
}

// ParseLine parses one source line. It returns (fact, true) on a well-formed
// line and (Fact{}, false) for anything that should be silently skipped:
// blank lines, comment lines (starting with % or #), and lines with no
// opening parenthesis.
//
// The parser is deliberately lenient beyond that point: malformed argument
// tokens round-trip as a verbatim Atom rather than failing the whole line.
// Arity mismatches across a predicate's facts are a compile-pipeline concern,
// not this function's.
func ParseLine(line string) (Fact, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "#") {
		return Fact{}, false
	}

	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "."))

	openParen := strings.IndexByte(trimmed, '(')
	if openParen < 0 {
		return Fact{}, false
	}

	name := strings.TrimSpace(trimmed[:openParen])
	if name == "" {
		return Fact{}, false
	}

	rest := strings.TrimSpace(trimmed[openParen+1:])
	rest = strings.TrimSuffix(rest, ")")

	tokens := litsplit.SplitTopLevel(rest)
	args := make([]Arg, 0, len(tokens))
	for _, tok := range tokens {
		args = append(args, parseArg(tok))
	}

	return Fact{Name: name, Args: args}, true
}

func parseArg(tok string) Arg {
	if strings.HasPrefix(tok, `"`) {
		if content, ok := litsplit.UnquoteString(tok); ok {
			return Arg{Kind: String, Text: content}
		}
	}
	return Arg{Kind: Atom, Text: tok}
}
