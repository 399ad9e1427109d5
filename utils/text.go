package utils

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize case-folds s, strips diacritics and tone marks, drops apostrophes
// and other punctuation and collapses whitespace. Han characters pass through untouched.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	space := false
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r == '\'' || r == '’':
			// contractions stay one word: "i'd" -> "id"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			// punctuation and whitespace both act as separators
			space = true
		}
	}
	return b.String()
}

// Levenshtein returns the rune-level edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Similarity is 1 - editDistance/maxLen, in [0, 1].
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// ToCents converts a fiat amount to integer cents, rounding half away from zero.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func FromCents(c int64) float64 {
	return float64(c) / 100
}

// RoundMoney rounds a fiat amount to 2 decimals.
func RoundMoney(v float64) float64 {
	return FromCents(ToCents(v))
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
