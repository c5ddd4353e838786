// Package pipeline orchestrates a content submission end to end: standing
// check, moderation gate, persistence, activity counters, points, and badge
// re-evaluation, in that order. It also carries the admin review workflow
// for flagged content.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vaifllc/youyesyou-core/badges"
	"github.com/vaifllc/youyesyou-core/countstore"
	"github.com/vaifllc/youyesyou-core/flagstore"
	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/moderation/visual"
	"github.com/vaifllc/youyesyou-core/notifier"
	"github.com/vaifllc/youyesyou-core/points"
	"github.com/vaifllc/youyesyou-core/standing"
	"github.com/vaifllc/youyesyou-core/store"
	"github.com/vaifllc/youyesyou-core/util"
)

// Rejection kinds carried on a rejected Result. Policy violations come from
// the moderation gate; ban and suspension come from the standing check.
const (
	RejectPolicy     = "policy-violation"
	RejectBan        = "ban"
	RejectSuspension = "suspension"
)

type Submission struct {
	UserID    string
	Kind      moderation.ContentKind
	Body      string
	ImageURLs []string
}

// Result is what the request layer branches on. A rejected submission
// persisted nothing; an accepted one carries the stored content and the
// gamification outcome.
type Result struct {
	Rejected  bool
	Rejection string
	Reason    string
	Issues    []string
	Severity  int
	// suspension expiry, when Rejection is "suspension"
	ExpiresAt *time.Time

	Content     *store.Content
	Flagged     bool
	PointsTotal int
	Level       string
	NewBadges   []*store.Badge
}

type Pipeline struct {
	Logger   *slog.Logger
	Store    store.Store
	Standing *standing.Tracker
	Gate     *moderation.Gate
	Visual   *visual.Client
	Points   *points.Engine
	Badges   *badges.Engine
	Notifier *notifier.Dispatcher
	Counters countstore.CountStore
	Flags    flagstore.FlagStore
}

func NewPipeline(st store.Store, tracker *standing.Tracker, gate *moderation.Gate, vis *visual.Client, pts *points.Engine, bdg *badges.Engine, disp *notifier.Dispatcher, counters countstore.CountStore, flags flagstore.FlagStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default().With("system", "pipeline")
	}
	return &Pipeline{
		Logger:   logger,
		Store:    st,
		Standing: tracker,
		Gate:     gate,
		Visual:   vis,
		Points:   pts,
		Badges:   bdg,
		Notifier: disp,
		Counters: counters,
		Flags:    flags,
	}
}

// actions credited per content kind; kinds absent here earn no points
var kindActions = map[moderation.ContentKind]string{
	moderation.KindPost:    points.ActionPost,
	moderation.KindComment: points.ActionComment,
}

var kindStats = map[moderation.ContentKind]string{
	moderation.KindPost:    store.StatPosts,
	moderation.KindComment: store.StatComments,
}

// ProcessSubmission runs the full caller-side contract. The returned error
// is reserved for storage failures after the content was accepted; policy
// and standing rejections come back as a Result, not an error.
func (p *Pipeline) ProcessSubmission(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()

	// standing precedes classification: a banned user is rejected before
	// their content is ever looked at
	if d := p.Standing.Check(ctx, sub.UserID); !d.Allowed {
		submissionCount.WithLabelValues(string(sub.Kind), d.Kind).Inc()
		p.Logger.Info("submission rejected on standing",
			"user", sub.UserID, "kind", sub.Kind, "deny", d.Kind, "reason", d.Reason)
		return &Result{
			Rejected:  true,
			Rejection: d.Kind,
			Reason:    d.Reason,
			ExpiresAt: d.ExpiresAt,
		}, nil
	}

	if issue := p.Gate.CheckImageCount(sub.Kind, len(sub.ImageURLs)); issue != "" {
		return p.reject(ctx, sub, moderation.Verdict{
			ShouldBlock: true,
			Severity:    1,
			Issues:      []string{issue},
		}), nil
	}

	if p.Visual != nil {
		var imageIssues []string
		for _, url := range sub.ImageURLs {
			res := p.Visual.Evaluate(ctx, url)
			if res.IsExplicit {
				imageIssues = append(imageIssues, moderation.IssueExplicitImage)
				imageIssues = append(imageIssues, res.Reasons...)
			}
		}
		if len(imageIssues) > 0 {
			return p.reject(ctx, sub, moderation.Verdict{
				ShouldBlock: true,
				Severity:    p.Gate.Engine.Config.HardSeverity,
				Issues:      util.DedupeStrings(imageIssues),
			}), nil
		}
	}

	verdict := p.Gate.Moderate(ctx, sub.Body, sub.Kind)
	if verdict.ShouldBlock {
		return p.reject(ctx, sub, verdict), nil
	}

	body := sub.Body
	if verdict.ShouldFlag {
		body = verdict.CleanedContent
	}
	content := &store.Content{
		UserID:     sub.UserID,
		Kind:       sub.Kind,
		Body:       body,
		ImageURLs:  sub.ImageURLs,
		Moderation: moderation.NewRecord(verdict, sub.Body),
	}
	if err := p.Store.CreateContent(ctx, content); err != nil {
		return nil, fmt.Errorf("persisting content: %w", err)
	}

	p.countSubmission(ctx, sub)
	if verdict.ShouldFlag {
		p.recordFlagged(ctx, sub, content, verdict)
	}

	res := &Result{
		Content: content,
		Flagged: verdict.ShouldFlag,
		Issues:  verdict.Issues,
	}
	if err := p.applyGamification(ctx, sub, res); err != nil {
		return nil, err
	}

	p.Logger.Info("canonical-event-line",
		"user", sub.UserID,
		"kind", sub.Kind,
		"content", content.ID,
		"flagged", verdict.ShouldFlag,
		"issues", verdict.Issues,
		"severity", verdict.Severity,
		"points", res.PointsTotal,
		"level", res.Level,
		"newBadges", len(res.NewBadges),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) reject(ctx context.Context, sub Submission, v moderation.Verdict) *Result {
	submissionCount.WithLabelValues(string(sub.Kind), "blocked").Inc()
	if p.Counters != nil {
		if err := p.Counters.Increment(ctx, countstore.NameBlocked, sub.UserID); err != nil {
			p.Logger.Warn("failed to count blocked submission", "err", err, "user", sub.UserID)
		}
	}
	// audit trail only; the decision was already made
	p.Logger.Warn("submission blocked",
		"user", sub.UserID, "kind", sub.Kind, "issues", v.Issues, "severity", v.Severity)
	if p.Notifier != nil {
		p.Notifier.Dispatch(notifier.EventContentBlocked, map[string]any{
			"user":     sub.UserID,
			"kind":     string(sub.Kind),
			"issues":   v.Issues,
			"severity": v.Severity,
		})
	}
	return &Result{
		Rejected:  true,
		Rejection: RejectPolicy,
		Issues:    v.Issues,
		Severity:  v.Severity,
	}
}

func (p *Pipeline) countSubmission(ctx context.Context, sub Submission) {
	if p.Counters == nil {
		return
	}
	if err := p.Counters.Increment(ctx, countstore.NameSubmission, sub.UserID); err != nil {
		p.Logger.Warn("failed to count submission", "err", err, "user", sub.UserID)
	}
	day := time.Now().UTC().Format(time.DateOnly)
	if err := p.Counters.IncrementDistinct(ctx, countstore.NameActiveUsers, day, sub.UserID); err != nil {
		p.Logger.Warn("failed to count active user", "err", err, "user", sub.UserID)
	}
}

func (p *Pipeline) recordFlagged(ctx context.Context, sub Submission, content *store.Content, v moderation.Verdict) {
	submissionCount.WithLabelValues(string(sub.Kind), "flagged").Inc()
	p.Logger.Warn("content flagged",
		"user", sub.UserID, "kind", sub.Kind, "content", content.ID,
		"issues", v.Issues, "severity", v.Severity)

	if p.Flags != nil {
		if err := p.Flags.Add(ctx, flagstore.UserKey(sub.UserID), v.Issues); err != nil {
			p.Logger.Warn("failed to record user flags", "err", err)
		}
		if err := p.Flags.Add(ctx, flagstore.ContentKey(content.ID), v.Issues); err != nil {
			p.Logger.Warn("failed to record content flags", "err", err)
		}
	}
	if err := p.Standing.RecordFlagged(ctx, sub.UserID); err != nil {
		p.Logger.Warn("failed to record flagged submission for escalation", "err", err, "user", sub.UserID)
	}
	p.notifyFlaggedDeduped(ctx, sub.UserID, content.ID, v)
}

// notifyFlaggedDeduped sends at most one "content flagged" notification per
// user per issue set per UTC day. The dedupe key folds in a hash of the
// issue codes so a new kind of violation still notifies the same day.
func (p *Pipeline) notifyFlaggedDeduped(ctx context.Context, userID, contentID string, v moderation.Verdict) {
	if p.Notifier == nil {
		return
	}
	if p.Counters != nil {
		key := userID + "/" + util.HashOfString(strings.Join(v.Issues, ","))
		n, err := p.Counters.IncrementAndGet(ctx, countstore.NameNotifFlagged, key)
		if err != nil {
			// counter trouble degrades to notifying, not to silence
			p.Logger.Warn("failed to bump notification dedupe counter", "err", err)
		} else if n > 1 {
			return
		}
	}
	p.Notifier.Dispatch(notifier.EventContentFlagged, map[string]any{
		"user":     userID,
		"content":  contentID,
		"issues":   v.Issues,
		"severity": v.Severity,
	})
}

func (p *Pipeline) applyGamification(ctx context.Context, sub Submission, res *Result) error {
	if stat, ok := kindStats[sub.Kind]; ok {
		if err := p.Store.IncrementStat(ctx, sub.UserID, stat, 1); err != nil {
			return fmt.Errorf("incrementing %s stat: %w", stat, err)
		}
	}

	action, ok := kindActions[sub.Kind]
	if !ok {
		u, err := p.Store.GetUser(ctx, sub.UserID)
		if err != nil {
			return fmt.Errorf("loading user after submission: %w", err)
		}
		res.PointsTotal, res.Level = u.Points, u.Level
	} else {
		total, level, err := p.Points.Add(ctx, sub.UserID, points.ValueForAction(action), action)
		if err != nil {
			return fmt.Errorf("awarding submission points: %w", err)
		}
		res.PointsTotal, res.Level = total, level
		prior := points.LevelForPoints(total - points.ValueForAction(action))
		if prior != level && p.Notifier != nil {
			p.Notifier.Dispatch(notifier.EventLevelUp, map[string]any{
				"user":  sub.UserID,
				"level": level,
			})
		}
	}

	earned, err := p.Badges.CheckEligibility(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("re-evaluating badges: %w", err)
	}
	res.NewBadges = earned
	for _, b := range earned {
		res.PointsTotal += b.RewardPoints
		if p.Notifier != nil {
			p.Notifier.Dispatch(notifier.EventBadgeEarned, map[string]any{
				"user":  sub.UserID,
				"badge": b.Name,
			})
		}
	}
	if len(earned) > 0 {
		// badge rewards may have moved the total; report the persisted value
		u, err := p.Store.GetUser(ctx, sub.UserID)
		if err == nil {
			res.PointsTotal, res.Level = u.Points, u.Level
		}
	}
	return nil
}
