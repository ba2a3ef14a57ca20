// Package shortcode holds the case folding shared by every component that
// stores or compares short codes.
package shortcode

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold lowercases code with Unicode-aware rules so that "AbCÄ" and "abcä"
// compare equal. A fresh Caser is built per call; cases.Caser is not safe
// for concurrent use.
func Fold(code string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(code))
}
