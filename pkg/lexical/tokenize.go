package lexical

import "strings"

// tokenize lower-cases and splits on anything that is not a letter, digit,
// or one of a small set of symbol-dense joiners (/, -, _, ., :) so that
// paths, flags, and error codes survive as single tokens in text_symbols
// while still splitting on whitespace and punctuation in plain text.
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/' || r == '-' || r == '_' || r == '.' || r == ':':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
