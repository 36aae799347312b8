package util

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// GenUsername returns e.g. "user-k3j9x0qa".
func GenUsername() string {
	return "user-" + randomSuffix(8)
}

var (
	nonSlug    = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaces     = regexp.MustCompile(`\s+`)
	multiDash  = regexp.MustCompile(`-+`)
	maxSlugLen = 80
)

// Slugify lowercases title, keeps only [a-z0-9-] and
// appends a random suffix so equal titles get distinct slugs.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonSlug.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, "-")
	s = multiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		s = "blog"
	}
	return s + "-" + randomSuffix(6)
}
