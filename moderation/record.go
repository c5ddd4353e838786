package moderation

import (
	"time"
)

// Record is the moderation state attached to a persisted content item. It is
// created from a Verdict at submission time, and may later be overwritten by
// an admin review action.
type Record struct {
	IsApproved bool     `bson:"isApproved" json:"isApproved"`
	Flagged    bool     `bson:"flagged" json:"flagged"`
	Issues     []string `bson:"issues,omitempty" json:"issues,omitempty"`
	Severity   int      `bson:"severity" json:"severity"`
	// retained for audit and admin review when content was masked
	OriginalContent string     `bson:"originalContent,omitempty" json:"originalContent,omitempty"`
	ModeratedBy     string     `bson:"moderatedBy,omitempty" json:"moderatedBy,omitempty"`
	ModeratedAt     *time.Time `bson:"moderatedAt,omitempty" json:"moderatedAt,omitempty"`
	Notes           string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// NewRecord derives the initial moderation record for content being
/// persisted. Must not be called for a blocking verdict: blocked content is
// never written in any form.
func NewRecord(v Verdict, original string) Record {
	rec := Record{
		IsApproved: true,
		Flagged:    v.ShouldFlag,
		Issues:     v.Issues,
		Severity:   v.Severity,
	}
	if v.ShouldFlag {
		rec.OriginalContent = original
	}
	return rec
}

type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ApplyReview overwrites the record with the outcome of an admin review.
func (r *Record) ApplyReview(action ReviewAction, moderator, notes string, now time.Time) {
	r.ModeratedBy = moderator
	r.ModeratedAt = &now
	r.Notes = notes
	r.IsApproved = action == ReviewApprove
	if action == ReviewApprove {
		r.Flagged = false
	}
}
