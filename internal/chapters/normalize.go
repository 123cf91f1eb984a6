// Package chapters turns free-form chapter specifications ("1-3, 5, 007-009")
// into canonical zero-padded chapter identifiers.
package chapters

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinWidth is the minimum zero-pad width of a chapter identifier.
	MinWidth = 2
	// MaxRangeSpan caps how many identifiers a single range token may expand to.
	MaxRangeSpan = 10000
)

// Result is the outcome of normalising one chapter list.
type Result struct {
	// IDs holds the identifiers in input order. Duplicates are kept; callers
	// deduplicate against their own registries.
	IDs []string
	// Rejected holds the malformed tokens that contributed nothing.
	Rejected []string
}

// Normalize parses raw into chapter identifiers.
//
// Spaces are removed and the remainder split on commas. A token "A-B"
// expands to every integer from A to B inclusive, padded to the character
// length of the literal A (at least MinWidth). A single integer token is
// padded the same way. Empty tokens are ignored; malformed tokens, reversed
// ranges and ranges wider than MaxRangeSpan are collected in Rejected.
func Normalize(raw string) Result {
	var res Result
	compact := strings.ReplaceAll(raw, " ", "")
	for _, part := range strings.Split(compact, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		ids, err := expandToken(token)
		if err != nil {
			res.Rejected = append(res.Rejected, token)
			continue
		}
		res.IDs = append(res.IDs, ids...)
	}
	return res
}

// Parse is Normalize without the rejected tokens.
func Parse(raw string) []string {
	return Normalize(raw).IDs
}

// Format renders n as a chapter identifier of the given width.
func Format(n, width int) string {
	return fmt.Sprintf("%0*d", max(width, MinWidth), n)
}

func expandToken(token string) ([]string, error) {
	if !strings.Contains(token, "-") {
		n, err := parseBound(token)
		if err != nil {
			return nil, err
		}
		return []string{Format(n, len(token))}, nil
	}

	bounds := strings.Split(token, "-")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("range %q: expected exactly one '-'", token)
	}
	start, err := parseBound(bounds[0])
	if err != nil {
		return nil, err
	}
	end, err := parseBound(bounds[1])
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("range %q: start after end", token)
	}
	if end-start >= MaxRangeSpan {
		return nil, fmt.Errorf("range %q: spans more than %d chapters", token, MaxRangeSpan)
	}

	width := len(bounds[0])
	ids := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		ids = append(ids, Format(n, width))
	}
	return ids, nil
}

func parseBound(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("chapter number %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("chapter number %q: negative", s)
	}
	return n, nil
}
