package keyword

import (
	"fmt"
	"regexp"
	"strings"
)

// common single-character substitutions used to evade lexicon matching
var leetClasses = map[rune]string{
	'a': "a4@",
	'b': "b8",
	'e': "e3",
	'g': "g9",
	'i': "i1l",
	'o': "o0",
	's': "s5z",
	't': "t7",
}

// Matcher detects a configured list of "hard" terms within slugified text,
// tolerating common evasions: digit/symbol substitution, repeated letters, and
// short suffix variations (plurals etc). Benign words which happen to contain a
// term as a substring are excluded via a per-matcher allowlist.
//
// Term and allowlist entries are expected to be slugs (see Slugify). Compiled
// matchers are immutable and safe for concurrent use.
type Matcher struct {
	patterns []termPattern
}

type termPattern struct {
	term     string
	contains *regexp.Regexp
	exact    *regexp.Regexp
	allow    []*regexp.Regexp
}

// expands a term into a regex fragment tolerating substitutions and letter repeats
func termRegexFragment(term string) string {
	var b strings.Builder
	for _, r := range term {
		if cls, ok := leetClasses[r]; ok {
			b.WriteString("[" + cls + "]+")
		} else {
			b.WriteString(regexp.QuoteMeta(string(r)) + "+")
		}
	}
	return b.String()
}

func NewMatcher(terms []string, allow []string) (*Matcher, error) {
	m := &Matcher{}
	for _, term := range terms {
		term = Slugify(term)
		if term == "" {
			continue
		}
		frag := termRegexFragment(term)
		contains, err := regexp.Compile(frag)
		if err != nil {
			return nil, fmt.Errorf("compiling term pattern %q: %w", term, err)
		}
		// short trailing suffix covers plural and diminutive variants
		exact, err := regexp.Compile("^" + frag + "[a-z0-9]{0,2}$")
		if err != nil {
			return nil, fmt.Errorf("compiling term pattern %q: %w", term, err)
		}
		tp := termPattern{term: term, contains: contains, exact: exact}
		for _, a := range allow {
			a = Slugify(a)
			if a == "" || !strings.Contains(a, term) {
				// allowlist entries only matter for the terms they contain
				continue
			}
			ar, err := regexp.Compile(regexp.QuoteMeta(a))
			if err != nil {
				return nil, fmt.Errorf("compiling allowlist pattern %q: %w", a, err)
			}
			tp.allow = append(tp.allow, ar)
		}
		m.patterns = append(m.patterns, tp)
	}
	return m, nil
}

// MustNewMatcher is like NewMatcher but panics on invalid configuration. For
// use with static term lists at startup.
func MustNewMatcher(terms []string, allow []string) *Matcher {
	m, err := NewMatcher(terms, allow)
	if err != nil {
		panic(err)
	}
	return m
}

// Checks whether the slug contains any configured term, anywhere in the
// string. Returns the canonical form of the first term found, or an empty
// string. Matches fully covered by an allowlisted benign word do not count.
func (m *Matcher) Contains(slug string) string {
	for _, p := range m.patterns {
		locs := p.contains.FindAllStringIndex(slug, -1)
		if len(locs) == 0 {
			continue
		}
		var allowLocs [][]int
		for _, a := range p.allow {
			allowLocs = append(allowLocs, a.FindAllStringIndex(slug, -1)...)
		}
		for _, loc := range locs {
			covered := false
			for _, al := range allowLocs {
				if loc[0] >= al[0] && loc[1] <= al[1] {
					covered = true
					break
				}
			}
			if !covered {
				return p.term
			}
		}
	}
	return ""
}

// Checks whether the slug, taken as a whole token, is one of the configured
// terms (or a close variant). Returns the canonical form, or an empty string.
func (m *Matcher) MatchesToken(slug string) string {
	for _, p := range m.patterns {
		if p.exact.MatchString(slug) {
			return p.term
		}
	}
	return ""
}
