package moderation

import (
	"regexp"

	"github.com/vaifllc/youyesyou-core/moderation/keyword"
)

// Mask is the fixed replacement for matched terms in cleaned content.
const Mask = "****"

// word runs, excluding surrounding punctuation so it survives masking
var wordRegex = regexp.MustCompile(`[\pL\pN][\pL\pN'_-]*`)

// maskMatches rewrites text, replacing each whole word which matched the
// profanity lexicon or a hard-category pattern with the fixed mask.
// Surrounding text is left untouched.
func (e *Engine) maskMatches(text string, profMatches map[string]bool) string {
	return wordRegex.ReplaceAllStringFunc(text, func(word string) string {
		slug := keyword.Slugify(word)
		if slug == "" {
			return word
		}
		if profMatches[keyword.NormalizeToken(word)] {
			return Mask
		}
		if e.Hard.MatchesToken(slug) != "" {
			return Mask
		}
		return word
	})
}
