package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle canonicalises a user-supplied title: surrounding space is
// trimmed, inner whitespace runs collapse to one space and the result is
// NFC-normalised so visually identical titles share one key.
func NormalizeTitle(raw string) string {
	return norm.NFC.String(strings.Join(strings.Fields(raw), " "))
}
