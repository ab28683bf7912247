// Package sanitize prepares untrusted text for embedding in JSON payloads.
//
// Resume text comes out of PDF/DOCX extraction with whatever the document
// contained: raw backslashes, control characters, and substrings that look
// like unicode escapes but are not (a backslash, a 'u', and the wrong number
// of hex digits). Passed through as-is, those corrupt the JSON bodies sent to
// the AI gateway and stored in Postgres. The functions here neutralize all of
// that while leaving every valid multi-byte character untouched.
//
// Apply sanitization exactly once per transmission. String is intentionally
// not idempotent: every backslash is doubled on every pass, including the
// ones a previous pass inserted. See the note on String.
package sanitize

import (
	"fmt"
	"strings"
)

// String makes s safe to place inside a JSON string literal. Three rewrites,
// in this order:
//
//  1. A backslash followed by 'u' but not by exactly four hex digits gets an
//     extra backslash inserted before the 'u', so the broken escape becomes
//     literal text instead of a malformed \u sequence.
//  2. Every backslash is doubled.
//  3. Every code point in 0x00-0x1F or 0x7F-0x9F becomes \u followed by four
//     lowercase hex digits.
//
// Every backslash is treated as literal text, including ones that happen to
// form a well-formed \uXXXX in the input; input text is never trusted to
// carry intentional JSON escapes. A consequence is that running String twice
// doubles backslashes twice. Callers must sanitize once, at the boundary
// where the value crosses into a JSON-producing call. If a peer expects
// well-formed \uXXXX text to survive untouched, use StringKeepValidEscapes
// everywhere instead; never mix the two for the same data path.
func String(s string) string {
	s = neutralizeMalformedEscapes(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	return encodeControlChars(s)
}

// StringKeepValidEscapes is the alternate contract: identical to String
// except that a backslash opening a well-formed \uXXXX sequence is left
// single. Malformed \u sequences and all other backslashes are handled
// exactly as String handles them.
func StringKeepValidEscapes(s string) string {
	s = neutralizeMalformedEscapes(s)
	s = doubleBackslashesKeepingEscapes(s)
	return encodeControlChars(s)
}

// Scalar sanitizes v when it is a string and returns every other value
// (numbers, bools, nil, anything opaque) unchanged and uncoerced.
func Scalar(v any) any {
	if s, ok := v.(string); ok {
		return String(s)
	}
	return v
}

// Structured walks a JSON-shaped value (maps, slices, scalars) depth-first
// and returns a new value of the same shape with every string leaf passed
// through String. Map keys are not sanitized, only values. Non-string leaves
// come back unchanged. The input is never mutated; maps and slices are
// rebuilt, empty ones included.
//
// Cyclic values are not supported. Data decoded from JSON is always acyclic,
// and that is the only shape this worker feeds in.
func Structured(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Structured(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Structured(elem)
		}
		return out
	default:
		return v
	}
}

// neutralizeMalformedEscapes inserts a backslash before the 'u' of every
// backslash+u that is not followed by exactly four hex digits. Well-formed
// \uXXXX text passes through for the later backslash pass to handle.
func neutralizeMalformedEscapes(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == 'u' && !fourHexAt(s, i+2) {
			b.WriteString(`\\u`)
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// doubleBackslashesKeepingEscapes doubles every backslash except one that
// opens a well-formed \uXXXX sequence, which is emitted as-is together with
// its 'u'.
func doubleBackslashesKeepingEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == 'u' && fourHexAt(s, i+2) {
			b.WriteString(`\u`)
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// encodeControlChars replaces C0 controls, DEL and C1 controls with \u
// escapes, four lowercase hex digits each. Everything else is copied
// byte-for-byte.
func encodeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 0x00 && r <= 0x1f) || (r >= 0x7f && r <= 0x9f) {
			fmt.Fprintf(&b, `\u%04x`, r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fourHexAt(s string, i int) bool {
	if i+4 > len(s) {
		return false
	}
	for j := i; j < i+4; j++ {
		if !isHexDigit(s[j]) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
