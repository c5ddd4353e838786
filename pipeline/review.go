package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vaifllc/youyesyou-core/flagstore"
	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/notifier"
	"github.com/vaifllc/youyesyou-core/store"
)

// ReviewContent applies an admin approve/reject decision to a persisted
// content item. Approving restores the original text when the item was
// masked and clears its moderation flags; rejecting keeps the masked body
// and notifies the author's moderation channel.
func (p *Pipeline) ReviewContent(ctx context.Context, contentID string, action moderation.ReviewAction, moderator, notes string) (*store.Content, error) {
	if action != moderation.ReviewApprove && action != moderation.ReviewReject {
		return nil, fmt.Errorf("unknown review action: %s", action)
	}
	c, err := p.Store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	rec := c.Moderation
	wasFlagged := rec.Flagged
	rec.ApplyReview(action, moderator, notes, time.Now().UTC())

	body := c.Body
	if action == moderation.ReviewApprove && rec.OriginalContent != "" {
		body = rec.OriginalContent
		rec.OriginalContent = ""
	}

	if err := p.Store.SetModeration(ctx, contentID, body, rec); err != nil {
		return nil, fmt.Errorf("saving review decision: %w", err)
	}
	c.Body = body
	c.Moderation = rec

	reviewCount.WithLabelValues(string(action)).Inc()
	p.Logger.Info("content reviewed",
		"content", contentID, "action", action, "moderator", moderator, "wasFlagged", wasFlagged)

	if p.Flags != nil && action == moderation.ReviewApprove && len(rec.Issues) > 0 {
		if err := p.Flags.Remove(ctx, flagstore.ContentKey(contentID), rec.Issues); err != nil {
			p.Logger.Warn("failed to clear content flags", "err", err, "content", contentID)
		}
	}
	if p.Notifier != nil && action == moderation.ReviewReject {
		p.Notifier.Dispatch(notifier.EventContentFlagged, map[string]any{
			"user":      c.UserID,
			"content":   contentID,
			"rejected":  true,
			"moderator": moderator,
		})
	}
	return c, nil
}
