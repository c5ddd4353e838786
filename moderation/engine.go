// Package moderation implements the text classification engine and the
// pre-persistence gate for user-generated content: lexicon and pattern
// detectors, spam heuristics, a block/flag decision policy, and the
// moderation record lifecycle.
package moderation

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/vaifllc/youyesyou-core/moderation/keyword"
	"github.com/vaifllc/youyesyou-core/setstore"
	"github.com/vaifllc/youyesyou-core/util"
)

type Config struct {
	// aggregate severity at which content is flagged (persisted masked)
	FlagThreshold int
	// aggregate severity at which content is blocked outright
	BlockThreshold int
	// severity contributed by a hard-category match (also blocks on its own)
	HardSeverity int
	// run length of a single repeated character considered spammy
	MaxRepeatRun int
	// minimum letter count before the all-caps heuristic applies
	CapsMinLetters int
	// upper-case ratio above which text is considered shouting spam
	CapsRatio float64
}

func DefaultConfig() Config {
	return Config{
		FlagThreshold:  1,
		BlockThreshold: 5,
		HardSeverity:   5,
		MaxRepeatRun:   10,
		CapsMinLetters: 20,
		CapsRatio:      0.8,
	}
}

// Engine runs free text through the configured detectors and produces a
// Verdict. Evaluation is deterministic: no network calls, no randomness, and
// configuration is read-only after construction. Safe for concurrent use.
type Engine struct {
	Logger *slog.Logger
	Sets   setstore.SetStore
	// hard-category terms (hate speech, explicit slurs): any match blocks
	Hard   *keyword.Matcher
	Config Config
}

func NewEngine(logger *slog.Logger, sets setstore.SetStore, hard *keyword.Matcher, config Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if hard == nil {
		hard = keyword.MustNewMatcher(nil, nil)
	}
	return &Engine{
		Logger: logger,
		Sets:   sets,
		Hard:   hard,
		Config: config,
	}
}

// Per-kind adjustments to which detectors apply.
type KindPolicy struct {
	// run the spam heuristics (repetition, links, caps) at all
	CheckSpam bool
	// more links than this triggers the spam-links issue
	MaxLinks int
	// images allowed per item; only consulted for kinds that carry images
	MaxImages int
}

func DefaultKindPolicy() KindPolicy {
	return KindPolicy{CheckSpam: true, MaxLinks: 5}
}

// Evaluate classifies text under the default policy.
func (e *Engine) Evaluate(ctx context.Context, text string) Verdict {
	return e.EvaluateForKind(ctx, text, DefaultKindPolicy())
}

// EvaluateForKind classifies text with kind-specific detector adjustments.
func (e *Engine) EvaluateForKind(ctx context.Context, text string, policy KindPolicy) Verdict {
	verdict := Verdict{CleanedContent: text}

	// presence checks happen upstream; absent text is trivially clean
	if strings.TrimSpace(text) == "" {
		return verdict
	}

	profMatches := e.matchProfanity(ctx, text)
	if len(profMatches) > 0 {
		verdict.Issues = append(verdict.Issues, IssueProfanity)
		verdict.Severity += len(profMatches)
	}

	hardMatch := e.Hard.Contains(keyword.Slugify(text))
	if hardMatch != "" {
		verdict.Issues = append(verdict.Issues, IssueHateSpeech)
		verdict.Severity += e.Config.HardSeverity
	}

	if policy.CheckSpam {
		if hasRepeatedRun(text, e.Config.MaxRepeatRun) {
			verdict.Issues = append(verdict.Issues, IssueSpamRepetition)
			verdict.Severity += 1
		}
		if e.spammyLinks(ctx, text, policy.MaxLinks) {
			verdict.Issues = append(verdict.Issues, IssueSpamLinks)
			verdict.Severity += 1
		}
		if mostlyUpperCase(text, e.Config.CapsMinLetters, e.Config.CapsRatio) {
			verdict.Issues = append(verdict.Issues, IssueSpamCaps)
			verdict.Severity += 1
		}
	}

	verdict.ShouldBlock = hardMatch != "" || verdict.Severity >= e.Config.BlockThreshold
	verdict.ShouldFlag = !verdict.ShouldBlock && verdict.Severity >= e.Config.FlagThreshold

	if len(profMatches) > 0 || hardMatch != "" {
		verdict.CleanedContent = e.maskMatches(text, profMatches)
	}
	return verdict
}

// EvaluateIdentifier screens a user-chosen identifier (username, group slug)
// against the profanity lexicon and the hard-category matcher. Identifiers are
// never masked or flagged for review: any match blocks.
func (e *Engine) EvaluateIdentifier(ctx context.Context, ident string) Verdict {
	verdict := Verdict{CleanedContent: ident}
	if strings.TrimSpace(ident) == "" {
		return verdict
	}

	matched := make(map[string]bool)
	for _, tok := range keyword.TokenizeIdentifier(ident) {
		tok = keyword.NormalizeToken(tok)
		if matched[tok] {
			continue
		}
		ok, err := e.Sets.InSet(ctx, setstore.SetProfanity, tok)
		if err != nil {
			e.Logger.Error("profanity lexicon lookup failed", "err", err)
			continue
		}
		if ok {
			matched[tok] = true
		}
	}
	if len(matched) > 0 {
		verdict.Issues = append(verdict.Issues, IssueProfanity)
		verdict.Severity += len(matched)
	}

	// hard terms are checked against the whole identifier, so separators do
	// not defeat the match ("real_sl-ur_99")
	if e.Hard.Contains(keyword.Slugify(ident)) != "" {
		verdict.Issues = append(verdict.Issues, IssueHateSpeech)
		verdict.Severity += e.Config.HardSeverity
	}

	verdict.ShouldBlock = len(verdict.Issues) > 0
	return verdict
}

// returns the set of normalized tokens which hit the profanity lexicon
func (e *Engine) matchProfanity(ctx context.Context, text string) map[string]bool {
	matches := make(map[string]bool)
	for _, tok := range keyword.TokenizeText(text) {
		tok = keyword.NormalizeToken(tok)
		ok, err := e.Sets.InSet(ctx, setstore.SetProfanity, tok)
		if err != nil {
			// lexicon lookup failures must not change the verdict's shape
			e.Logger.Error("profanity lexicon lookup failed", "err", err)
			continue
		}
		if ok {
			matches[tok] = true
		}
	}
	return matches
}

func (e *Engine) spammyLinks(ctx context.Context, text string, maxLinks int) bool {
	urls := util.ExtractTextURLs(text)
	if maxLinks > 0 && len(urls) > maxLinks {
		return true
	}
	for _, u := range urls {
		host := urlHost(u)
		ok, err := e.Sets.InSet(ctx, setstore.SetSpamDomains, host)
		if err != nil {
			e.Logger.Error("spam domain lookup failed", "err", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func urlHost(raw string) string {
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "ftp://")
	if idx := strings.IndexAny(raw, "/?"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ToLower(raw)
}

// Go regexps have no backreferences, so repeated-run detection is a scan.
func hasRepeatedRun(text string, maxRun int) bool {
	if maxRun <= 0 {
		return false
	}
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev && !unicode.IsSpace(r) {
			run++
			if run >= maxRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func mostlyUpperCase(text string, minLetters int, ratio float64) bool {
	letters := 0
	uppers := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters < minLetters {
		return false
	}
	return float64(uppers)/float64(letters) >= ratio
}
