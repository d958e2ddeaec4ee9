// Package slug derives URL-safe identifiers for catalog entries.
package slug

import (
	"regexp"
	"strings"
)

// MaxBaseLength bounds the normalized base before any numeric or random suffix.
const MaxBaseLength = 80

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	valid    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Normalize lowercases s, collapses every run outside [a-z0-9] into a single
// hyphen, trims leading and trailing hyphens and truncates to MaxBaseLength.
// The result may be empty.
func Normalize(s string) string {
	out := nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	out = strings.Trim(out, "-")
	if len(out) > MaxBaseLength {
		out = strings.TrimRight(out[:MaxBaseLength], "-")
	}
	return out
}

// Valid reports whether s is a non-empty slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}
