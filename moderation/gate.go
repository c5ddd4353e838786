package moderation

import (
	"context"
)

// Gate applies the text engine to inbound user content before persistence,
// with per-kind policy adjustments. It is a pure function of its input plus
// static configuration, safe to invoke concurrently.
type Gate struct {
	Engine   *Engine
	Policies map[ContentKind]KindPolicy
}

func NewGate(engine *Engine) *Gate {
	return &Gate{
		Engine: engine,
		Policies: map[ContentKind]KindPolicy{
			KindPost:    {CheckSpam: true, MaxLinks: 10, MaxImages: 4},
			KindComment: {CheckSpam: true, MaxLinks: 5},
			// private messages skip the spam heuristics
			KindMessage:  {CheckSpam: false},
			KindFeedback: {CheckSpam: true, MaxLinks: 5},
		},
	}
}

func (g *Gate) policy(kind ContentKind) KindPolicy {
	if p, ok := g.Policies[kind]; ok {
		return p
	}
	return DefaultKindPolicy()
}

// Moderate classifies a piece of content of the given kind. The caller must
// branch on the returned verdict: reject on ShouldBlock (nothing persisted),
// persist CleanedContent with a flagged Record on ShouldFlag, persist
// verbatim otherwise.
func (g *Gate) Moderate(ctx context.Context, content string, kind ContentKind) Verdict {
	v := g.Engine.EvaluateForKind(ctx, content, g.policy(kind))
	gateDecisionCount.WithLabelValues(string(kind), verdictOutcome(v)).Inc()
	return v
}

// CheckImageCount enforces the per-kind attachment limit. Returns an issue
// code, or empty when within limits. Image-count limits only apply to posts.
func (g *Gate) CheckImageCount(kind ContentKind, count int) string {
	if kind != KindPost {
		return ""
	}
	if max := g.policy(kind).MaxImages; count > max {
		return IssueTooManyImages
	}
	return ""
}

func verdictOutcome(v Verdict) string {
	switch {
	case v.ShouldBlock:
		return "block"
	case v.ShouldFlag:
		return "flag"
	default:
		return "clean"
	}
}
