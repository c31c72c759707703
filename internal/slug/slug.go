// Package slug derives URL-safe identifiers from display text and resolves
// them against a per-entity namespace.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxAttempts bounds the numeric suffix search in Unique.
const MaxAttempts = 1000

var (
	turkish = strings.NewReplacer(
		"ı", "i", "İ", "i",
		"ğ", "g", "Ğ", "g",
		"ü", "u", "Ü", "u",
		"ş", "s", "Ş", "s",
		"ö", "o", "Ö", "o",
		"ç", "c", "Ç", "c",
	)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Make converts s into a lowercase, hyphen-delimited ASCII token.
// Example: "Beşiktaş'ta Yeni Park" → "besiktas-ta-yeni-park"
func Make(s string) string {
	result := turkish.Replace(s)
	result = asciiFold(result)
	result = strings.ToLower(result)
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// MakeOr is Make with a fallback for input that folds to nothing.
func MakeOr(s, fallback string) string {
	if out := Make(s); out != "" {
		return out
	}
	return Make(fallback)
}

func asciiFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ErrExhausted is returned by Unique when every suffix up to MaxAttempts is taken.
var ErrExhausted = errors.New("no free suffix")

// ExistsFunc reports whether a candidate slug is taken in one namespace.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns base if free, otherwise the first free base-1, base-2, ...
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for n := 1; n <= MaxAttempts; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("slug %q: %w after %d attempts", base, ErrExhausted, MaxAttempts)
}
