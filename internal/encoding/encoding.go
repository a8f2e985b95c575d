// Package encoding implements the two-level fact encoding: mapping a fact's
// argument list onto a content-addressed KV path segment plus a value blob,
// and decoding the pair back. Atoms are inlined into the path,
// length-prefixed so they may contain arbitrary bytes including ':'.
// Strings are offloaded into the blob and referenced from the path by index,
// keeping the path segment compact for a KV that indexes or hash-trees it.
//
// Decode is total: it never panics and never returns an error, degrading to
// a truncated or substituted result on malformed input, so a corrupted or
// adversarial pack can never crash the serving path.
package encoding

import (
	"strconv"
	"strings"

	"github.com/jptmoore/beingdb/internal/fact"
)

const maxAtomLen = 1_000_000

// Encode turns an argument list into the pack's two-level representation:
// the path segment (atoms inlined, strings referenced by index) and the
// value blob (string contents, length-prefixed in referenced order).
func Encode(args []fact.Arg) (pathSegment string, blob []byte) {
	parts := make([]string, 0, len(args))
	var strs []string

	for _, a := range args {
		switch a.Kind {
		case fact.String:
			idx := len(strs)
			strs = append(strs, a.Text)
			parts = append(parts, "$:"+strconv.Itoa(idx))
		default: // fact.Atom
			parts = append(parts, strconv.Itoa(len(a.Text))+":"+a.Text)
		}
	}

	var b strings.Builder
	for _, s := range strs {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}

	return strings.Join(parts, ":"), []byte(b.String())
}

// Decode parses a (path, blob) pair back into an argument list. It is total:
// on malformed input it returns whatever prefix decoded successfully rather
// than aborting.
func Decode(pathSegment string, blob []byte) []fact.Arg {
	strs := decodeBlobStrings(blob)

	var args []fact.Arg
	pos := 0
	n := len(pathSegment)

	for pos < n {
		if strings.HasPrefix(pathSegment[pos:], "$:") {
			pos += 2
			start := pos
			for pos < n && pathSegment[pos] != ':' {
				pos++
			}
			raw := pathSegment[start:pos]
			idx, err := strconv.Atoi(raw)
			if err != nil || idx < 0 || idx >= len(strs) {
				args = append(args, fact.Arg{Kind: fact.Atom, Text: "$:" + raw})
			} else {
				args = append(args, fact.Arg{Kind: fact.String, Text: strs[idx]})
			}
		} else {
			digitsStart := pos
			for pos < n && isDigit(pathSegment[pos]) {
				pos++
			}
			if pos == digitsStart || pos >= n || pathSegment[pos] != ':' {
				return args
			}
			length, err := strconv.Atoi(pathSegment[digitsStart:pos])
			if err != nil || length < 0 || length > maxAtomLen {
				return args
			}
			pos++ // skip the length-prefix colon
			if pos+length > n {
				return args
			}
			args = append(args, fact.Arg{Kind: fact.Atom, Text: pathSegment[pos : pos+length]})
			pos += length
		}

		if pos == n {
			break
		}
		if pathSegment[pos] != ':' {
			return args
		}
		pos++ // skip the part-joining colon
	}

	return args
}

// decodeBlobStrings parses the length-prefixed string blob, returning as
// many complete strings as it can before any malformed framing is hit.
func decodeBlobStrings(blob []byte) []string {
	var out []string
	pos := 0
	n := len(blob)

	for pos < n {
		digitsStart := pos
		for pos < n && isDigit(blob[pos]) {
			pos++
		}
		if pos == digitsStart || pos >= n || blob[pos] != ':' {
			return out
		}
		length, err := strconv.Atoi(string(blob[digitsStart:pos]))
		if err != nil || length < 0 {
			return out
		}
		pos++ // skip length-prefix colon
		if pos+length > n {
			return out
		}
		out = append(out, string(blob[pos:pos+length]))
		pos += length
	}

	return out
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
