package sanitize_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumatch/worker/internal/sanitize"
)

func TestString_CleanTextUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "plain ascii", input: "Senior Backend Engineer, 5 years experience"},
		{name: "accented latin", input: "José García, Zoë Müller, naïve résumé"},
		{name: "cjk", input: "東京で働くソフトウェアエンジニア"},
		{name: "emoji", input: "Team lead 🚀 shipped v2 🎉"},
		{name: "math symbols", input: "p ≠ NP, ∑ x² ≤ ∞"},
		{name: "forward slashes", input: "CI/CD, TCP/IP, 24/7 on-call"},
		{name: "quotes untouched", input: `said "hello" to the team`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.input, sanitize.String(tt.input))
		})
	}
}

func TestString_BackslashDoubling(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "windows path",
			input:    `C:\Users\test`,
			expected: `C:\\Users\\test`,
		},
		{
			name:     "single trailing backslash",
			input:    `dir\`,
			expected: `dir\\`,
		},
		{
			name:     "leading backslash",
			input:    `\section`,
			expected: `\\section`,
		},
		{
			name:     "consecutive backslashes each doubled",
			input:    `a\\b`,
			expected: `a\\\\b`,
		},
		{
			name:     "backslashes keep relative order",
			input:    `one\two\three`,
			expected: `one\\two\\three`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitize.String(tt.input))
		})
	}
}

func TestString_MalformedUnicodeEscapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "four non-hex digits",
			input:    `\uZZZZ`,
			expected: `\\\\uZZZZ`,
		},
		{
			name:     "three hex digits then end",
			input:    `Java\uABC`,
			expected: `Java\\\\uABC`,
		},
		{
			name:     "u at end of string",
			input:    `broken\u`,
			expected: `broken\\\\u`,
		},
		{
			name:     "mixed hex and non-hex",
			input:    `\u12G4`,
			expected: `\\\\u12G4`,
		},
		{
			name:     "well-formed escape is doubled not preserved",
			input:    `\u0041`,
			expected: `\\u0041`,
		},
		{
			name:     "four hex digits with trailing text still well-formed",
			input:    `\u12345`,
			expected: `\\u12345`,
		},
		{
			name:     "malformed escape embedded in text",
			input:    `José\uZZZZ García`,
			expected: `José\\\\uZZZZ García`,
		},
		{
			name:     "well-formed and malformed side by side",
			input:    `\uBEEF\uXY12`,
			expected: `\\uBEEF\\\\uXY12`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitize.String(tt.input))
		})
	}
}

func TestString_ControlCharacters(t *testing.T) {
	t.Run("every C0 control, DEL and C1 control encoded as lowercase hex", func(t *testing.T) {
		var codepoints []rune
		for c := rune(0x00); c <= 0x1f; c++ {
			codepoints = append(codepoints, c)
		}
		for c := rune(0x7f); c <= 0x9f; c++ {
			codepoints = append(codepoints, c)
		}
		for _, c := range codepoints {
			expected := fmt.Sprintf(`\u%04x`, c)
			assert.Equal(t, expected, sanitize.String(string(c)), "codepoint 0x%02x", c)
		}
	})

	t.Run("boundary characters pass through", func(t *testing.T) {
		// 0x20, 0x7e and 0xa0 sit just outside the control ranges.
		assert.Equal(t, " ", sanitize.String(" "))
		assert.Equal(t, "~", sanitize.String("~"))
		assert.Equal(t, "\u00a0", sanitize.String("\u00a0"))
	})

	t.Run("newline and tab between words", func(t *testing.T) {
		assert.Equal(t, `hello\u000aworld\u0009end`, sanitize.String("hello\nworld\tend"))
	})

	t.Run("nul and carriage return", func(t *testing.T) {
		assert.Equal(t, `a\u0000b\u000dc`, sanitize.String("a\x00b\rc"))
	})
}

func TestString_NotIdempotent(t *testing.T) {
	// Documented contract: each pass doubles backslashes again, so the
	// pipeline must run exactly once per transmission.
	once := sanitize.String(`a\b`)
	require.Equal(t, `a\\b`, once)
	twice := sanitize.String(once)
	assert.Equal(t, `a\\\\b`, twice)
	assert.NotEqual(t, once, twice)
}

func TestStringKeepValidEscapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "well-formed escape preserved",
			input:    `\u0041`,
			expected: `\u0041`,
		},
		{
			name:     "malformed escape still neutralized",
			input:    `\uZZZZ`,
			expected: `\\\\uZZZZ`,
		},
		{
			name:     "plain backslashes still doubled",
			input:    `C:\Users\test`,
			expected: `C:\\Users\\test`,
		},
		{
			name:     "preserved escape next to doubled backslash",
			input:    `\u00e9\path`,
			expected: `\u00e9\\path`,
		},
		{
			name:     "control characters still encoded",
			input:    "tab\there",
			expected: `tab\u0009here`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitize.StringKeepValidEscapes(tt.input))
		})
	}
}

func TestScalar(t *testing.T) {
	t.Run("string goes through the pipeline", func(t *testing.T) {
		assert.Equal(t, `C:\\tmp`, sanitize.Scalar(`C:\tmp`))
	})

	t.Run("non-strings returned unchanged", func(t *testing.T) {
		assert.Nil(t, sanitize.Scalar(nil))
		assert.Equal(t, 123, sanitize.Scalar(123))
		assert.Equal(t, 4.5, sanitize.Scalar(4.5))
		assert.Equal(t, true, sanitize.Scalar(true))
		assert.Equal(t, false, sanitize.Scalar(false))
	})

	t.Run("non-string is not coerced to text", func(t *testing.T) {
		got := sanitize.Scalar(float64(42))
		_, isString := got.(string)
		assert.False(t, isString)
	})
}

func TestStructured(t *testing.T) {
	t.Run("nested candidate record", func(t *testing.T) {
		input := map[string]any{
			"name":   `José\uZZZZ García`,
			"skills": []any{"C++", `Java\uABC`},
			"score":  87.5,
			"active": true,
			"notes":  nil,
		}

		got, ok := sanitize.Structured(input).(map[string]any)
		require.True(t, ok)

		assert.Equal(t, `José\\\\uZZZZ García`, got["name"])
		assert.Equal(t, []any{"C++", `Java\\\\uABC`}, got["skills"])
		assert.Equal(t, 87.5, got["score"])
		assert.Equal(t, true, got["active"])
		assert.Nil(t, got["notes"])
	})

	t.Run("keys are not sanitized", func(t *testing.T) {
		input := map[string]any{`weird\key`: "value\n"}
		got := sanitize.Structured(input).(map[string]any)
		require.Contains(t, got, `weird\key`)
		assert.Equal(t, `value\u000a`, got[`weird\key`])
	})

	t.Run("sequence order preserved", func(t *testing.T) {
		input := []any{"first\t", "second", `third\`}
		got := sanitize.Structured(input).([]any)
		assert.Equal(t, []any{`first\u0009`, "second", `third\\`}, got)
	})

	t.Run("deep nesting", func(t *testing.T) {
		input := map[string]any{
			"outer": []any{
				map[string]any{
					"inner": []any{`path\to\file`},
				},
			},
		}
		got := sanitize.Structured(input).(map[string]any)
		inner := got["outer"].([]any)[0].(map[string]any)["inner"].([]any)
		assert.Equal(t, `path\\to\\file`, inner[0])
	})

	t.Run("empty containers round-trip", func(t *testing.T) {
		gotMap := sanitize.Structured(map[string]any{}).(map[string]any)
		assert.Empty(t, gotMap)
		gotSlice := sanitize.Structured([]any{}).([]any)
		assert.Empty(t, gotSlice)
		assert.Len(t, gotSlice, 0)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		inner := []any{`raw\text`}
		input := map[string]any{"list": inner}

		_ = sanitize.Structured(input)

		assert.Equal(t, `raw\text`, inner[0])
		assert.Equal(t, []any{`raw\text`}, input["list"])
	})

	t.Run("bare scalar", func(t *testing.T) {
		assert.Equal(t, `a\\b`, sanitize.Structured(`a\b`))
		assert.Equal(t, 7, sanitize.Structured(7))
		assert.Nil(t, sanitize.Structured(nil))
	})
}
