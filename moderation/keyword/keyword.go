package keyword

import (
	"strings"
)

// Normalizes a token for lexicon lookup: lower-case slug with a trailing
// plural "s" removed.
func NormalizeToken(tok string) string {
	return strings.TrimSuffix(Slugify(tok), "s")
}
