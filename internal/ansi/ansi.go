// Package ansi removes terminal escape sequences from captured server output
// so it can be shown as plain text.
package ansi

import "regexp"

// Sequences are matched longest-first: string-terminated ones (OSC, DCS,
// PM, APC, screen titles) before CSI, then two-byte escapes.
var escapes = regexp.MustCompile(`\x1b\].*?(?:\x07|\x1b\\)` +
	`|\x1b[P^_k].*?\x1b\\` +
	`|\x1b\[[0-?]*[ -/]*[@-~]` +
	`|\x1b[()][0-9A-Za-z]` +
	`|\x1b.`)

// Strip drops escape sequences, carriage returns and other control bytes.
// Backspace erases the preceding byte. Newlines and tabs are kept.
func Strip(s string) string {
	s = escapes.ReplaceAllString(s, "")

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\b':
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case ch == '\n' || ch == '\t':
			out = append(out, ch)
		case ch < 0x20 || ch == 0x7f:
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
