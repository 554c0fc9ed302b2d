package memo

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxLength is the hard cap the ledger API accepts for memos
const MaxLength = 500

// allowedPunctuation is the punctuation kept by Sanitize. Parentheses are
// included because the memo templates themselves use them.
const allowedPunctuation = "_-+:'|.,&()"

var wideSpaces = regexp.MustCompile(` {3,}`)

// Sanitize strips characters outside the allow-list (letters, digits,
// space, allowedPunctuation), collapses runs of three or more spaces to
// exactly two and truncates to MaxLength runes.
//
// Sanitize is idempotent.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || strings.ContainsRune(allowedPunctuation, r) {
			b.WriteRune(r)
		}
	}

	out := wideSpaces.ReplaceAllString(b.String(), "  ")

	runes := []rune(out)
	if len(runes) > MaxLength {
		out = string(runes[:MaxLength])
	}
	return out
}
