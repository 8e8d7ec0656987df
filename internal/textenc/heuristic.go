package textenc

import (
	"strings"
	"unicode"
)

const (
	sampleRunes   = 1000
	minTextRunes  = 10
	goodThreshold = 0.6
	commonPunct   = ".,!?;:-–—()[]{}\"'«»„“”‘’…/\\@#%&*+=_<>`~№$|^"
)

// LooksLikeText reports whether s reads as human text: more than 60% of
// its first 1000 runes are letters, digits, whitespace, punctuation or
// Cyrillic. Strings shorter than 10 runes always pass.
func LooksLikeText(s string) bool {
	total, good := 0, 0
	for _, r := range s {
		if total == sampleRunes {
			break
		}
		total++
		if isGood(r) {
			good++
		}
	}
	if total < minTextRunes {
		return true
	}
	return float64(good)/float64(total) > goodThreshold
}

func isGood(r rune) bool {
	switch {
	case r == unicode.ReplacementChar:
		return false
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		return true
	case unicode.Is(unicode.Cyrillic, r):
		return true
	case unicode.IsPunct(r):
		return true
	}
	return strings.ContainsRune(commonPunct, r)
}
