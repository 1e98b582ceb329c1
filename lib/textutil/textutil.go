package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func Normalize(value string) string {
	value = strings.ToLower(value)
	value = strings.Trim(value, " \n\t")
	value = whitespaceRegex.ReplaceAllString(value, "")
	return value
}

// Closest returns the choice most similar to value, it returns "" when
// nothing is similar enough to be worth suggesting.
func Closest(value string, choices []string) string {
	normalized := Normalize(value)
	best := ""
	bestScore := 0.7
	for _, choice := range choices {
		score := matchr.JaroWinkler(normalized, Normalize(choice), false)
		if score > bestScore {
			best = choice
			bestScore = score
		}
	}
	return best
}

// OneOf matches value against choices after normalization and returns
// the canonical choice.
func OneOf(value string, choices []string) (string, bool) {
	normalized := Normalize(value)
	for _, choice := range choices {
		if Normalize(choice) == normalized {
			return choice, true
		}
	}
	return "", false
}
