package moderation

// Issue codes attached to verdicts and moderation records.
const (
	IssueProfanity      = "profanity"
	IssueHateSpeech     = "hate-speech"
	IssueSpamRepetition = "spam-repetition"
	IssueSpamLinks      = "spam-links"
	IssueSpamCaps       = "spam-caps"
	IssueTooManyImages  = "too-many-images"
	IssueExplicitImage  = "explicit-image"
)

// Kinds of user-generated content the gate handles.
type ContentKind string

const (
	KindPost     ContentKind = "post"
	KindComment  ContentKind = "comment"
	KindMessage  ContentKind = "message"
	KindFeedback ContentKind = "feedback"
)

// Verdict is the outcome of classifying a single piece of text. It is
// computed per submission and never persisted directly; a Record is derived
// from it for content which is allowed through.
type Verdict struct {
	// content must be rejected outright, and never persisted in any form
	ShouldBlock bool
	// content may be persisted, but only as CleanedContent, marked for review
	ShouldFlag bool
	// sum of triggered detector severities
	Severity int
	// issue codes, in detector order
	Issues []string
	// original text with matched terms masked; equal to the input when no
	// lexical detector matched
	CleanedContent string
}

func (v *Verdict) Clean() bool {
	return !v.ShouldBlock && !v.ShouldFlag
}
