// Package badges evaluates achievement criteria against a snapshot of user
// stats and records awards at-most-once per user per badge.
package badges

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vaifllc/youyesyou-core/points"
	"github.com/vaifllc/youyesyou-core/store"
)

type Engine struct {
	Logger *slog.Logger
	Users  store.UserStore
	Badges store.BadgeStore
	Points *points.Engine
}

func NewEngine(users store.UserStore, badgeStore store.BadgeStore, pts *points.Engine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default().With("system", "badges")
	}
	return &Engine{Logger: logger, Users: users, Badges: badgeStore, Points: pts}
}

// snapshot holds the user metrics the criteria compare against, read once
// before any award in the pass is applied. Point rewards granted during the
// pass never feed back into the same pass.
type snapshot struct {
	points   int
	posts    int
	comments int
	courses  int
	events   int
	streak   int
	earned   map[string]bool
}

func snapshotUser(u *store.User) snapshot {
	s := snapshot{
		points:   u.Points,
		posts:    u.Stats.Posts,
		comments: u.Stats.Comments,
		courses:  u.Stats.CoursesCompleted,
		events:   u.Stats.EventsAttended,
		streak:   u.Stats.LoginStreak,
		earned:   make(map[string]bool, len(u.Achievements)),
	}
	for _, a := range u.Achievements {
		s.earned[a.BadgeID] = true
	}
	return s
}

func (s snapshot) metric(typ store.CriteriaType) (int, bool) {
	switch typ {
	case store.CriteriaPoints:
		return s.points, true
	case store.CriteriaPosts:
		return s.posts, true
	case store.CriteriaComments:
		return s.comments, true
	case store.CriteriaCourses:
		return s.courses, true
	case store.CriteriaEvents:
		return s.events, true
	case store.CriteriaStreak:
		return s.streak, true
	}
	return 0, false
}

func compare(metric int, op string, value int) bool {
	switch op {
	case ">=":
		return metric >= value
	case ">":
		return metric > value
	case "=", "==":
		return metric == value
	case "<":
		return metric < value
	case "<=":
		return metric <= value
	}
	return false
}

// CheckEligibility evaluates every active, not-yet-earned badge against the
// user's current stats and returns the badges newly earned in this pass.
// Award writes are conditional, so a concurrent pass observing the same
// snapshot cannot double-award: the loser's write is a no-op and the badge
// is not reported as newly earned.
func (e *Engine) CheckEligibility(ctx context.Context, userID string) ([]*store.Badge, error) {
	u, err := e.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user for eligibility: %w", err)
	}
	snap := snapshotUser(u)

	active, err := e.Badges.ListActiveBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active badges: %w", err)
	}

	var earned []*store.Badge
	for _, b := range active {
		if snap.earned[b.ID] {
			continue
		}
		if b.Criteria.Type == store.CriteriaCustom {
			// custom badges are granted by admin action, never automatically
			continue
		}
		metric, ok := snap.metric(b.Criteria.Type)
		if !ok {
			e.Logger.Warn("badge with unknown criteria type skipped", "badge", b.ID, "type", b.Criteria.Type)
			continue
		}
		if !compare(metric, b.Criteria.Operator, b.Criteria.Value) {
			continue
		}
		newly, err := e.award(ctx, userID, b)
		if err != nil {
			return earned, err
		}
		if newly {
			earned = append(earned, b)
		}
	}
	return earned, nil
}

func (e *Engine) award(ctx context.Context, userID string, b *store.Badge) (bool, error) {
	now := time.Now().UTC()
	inserted, err := e.Badges.AddEarner(ctx, b.ID, userID, now)
	if err != nil {
		return false, fmt.Errorf("recording badge award: %w", err)
	}
	if !inserted {
		// lost the race to a concurrent pass; already earned
		return false, nil
	}
	if err := e.Users.AppendAchievement(ctx, userID, store.Achievement{BadgeID: b.ID, EarnedAt: now}); err != nil {
		return false, fmt.Errorf("recording achievement: %w", err)
	}
	if b.RewardPoints > 0 && e.Points != nil {
		if _, _, err := e.Points.Add(ctx, userID, b.RewardPoints, points.ActionBadgeReward+": "+b.Name); err != nil {
			return false, fmt.Errorf("awarding badge points: %w", err)
		}
	}
	awardCount.WithLabelValues(b.Name).Inc()
	e.Logger.Info("badge awarded", "user", userID, "badge", b.Name, "rewardPoints", b.RewardPoints)
	return true, nil
}
