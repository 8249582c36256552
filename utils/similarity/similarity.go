// Package similarity scores how alike two movie titles are, so that
// near-identical titles from different sources can be treated as the same
// film.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Score rates two titles between 0 (unrelated) and 1 (the same title).
// Comparison is case-insensitive and ignores punctuation. A title that
// extends the other with a short possessive prefix ("Rob Reiner's Misery"
// vs "Misery") still scores close to 1.
func Score(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	if score := suffixScore(a, b); score > 0 {
		return score
	}

	distance := editDistance(a, b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(distance)/float64(longest)
}

// suffixScore handles prefixed variants of one title. When the shorter
// title closes the longer one at a word boundary and still makes up most of
// it, the two are a near match regardless of edit distance.
func suffixScore(a, b string) float64 {
	longer, shorter := a, b
	if len(longer) < len(shorter) {
		longer, shorter = shorter, longer
	}
	if !strings.HasSuffix(longer, shorter) {
		return 0
	}
	boundary := len(longer) - len(shorter)
	if boundary > 0 && longer[boundary-1] != ' ' {
		return 0
	}
	ratio := float64(len(shorter)) / float64(len(longer))
	if ratio < 0.6 {
		return 0
	}
	return 0.90 + ratio*0.10
}

// normalize lowercases, spells out ampersands and keeps only letters, digits
// and single spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// editDistance is the Levenshtein distance, computed over runes with a
// rolling pair of rows.
func editDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
