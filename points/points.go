// Package points awards and deducts user points, keeps the append-only
// history, and recomputes the level tier on every change.
package points

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vaifllc/youyesyou-core/store"
)

// Level tier names, ascending.
const (
	LevelNewMember        = "New Member"
	LevelBuilder          = "Builder"
	LevelOvercomer        = "Overcomer"
	LevelMentorInTraining = "Mentor-in-Training"
	LevelLegacyLeader     = "Legacy Leader"
)

type tier struct {
	min   int
	level string
}

// descending, first match wins
var tiers = []tier{
	{750, LevelLegacyLeader},
	{500, LevelMentorInTraining},
	{250, LevelOvercomer},
	{100, LevelBuilder},
	{0, LevelNewMember},
}

// LevelForPoints is the pure tier function. Level is always derived from the
// point total, never stored independently of it.
func LevelForPoints(points int) string {
	for _, t := range tiers {
		if points >= t.min {
			return t.level
		}
	}
	return LevelNewMember
}

// Point values for qualifying platform actions.
const (
	ActionPost           = "post"
	ActionComment        = "comment"
	ActionCourseComplete = "course-complete"
	ActionEventAttend    = "event-attend"
	ActionDailyLogin     = "daily-login"
	ActionBadgeReward    = "badge-reward"
	ActionRewardClaim    = "reward-claim"
)

var actionValues = map[string]int{
	ActionPost:           5,
	ActionComment:        2,
	ActionCourseComplete: 25,
	ActionEventAttend:    10,
	ActionDailyLogin:     1,
}

// ValueForAction returns the configured point value for a platform action,
// zero for unknown actions.
func ValueForAction(action string) int {
	return actionValues[action]
}

type Engine struct {
	Logger *slog.Logger
	Users  store.UserStore
}

func NewEngine(users store.UserStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default().With("system", "points")
	}
	return &Engine{Logger: logger, Users: users}
}

// Add applies the delta atomically relative to the persisted total (clamped
// at zero), appends the history entry, and recomputes the level from the
// resulting total. Returns the new total and level.
func (e *Engine) Add(ctx context.Context, userID string, delta int, reason string) (int, string, error) {
	entry := store.PointsEntry{
		Action:    reason,
		Points:    delta,
		Timestamp: time.Now().UTC(),
	}
	total, err := e.Users.AddPoints(ctx, userID, delta, entry)
	if err != nil {
		return 0, "", fmt.Errorf("applying points delta: %w", err)
	}
	level := LevelForPoints(total)
	if err := e.Users.SetLevel(ctx, userID, level, total); err != nil {
		return 0, "", fmt.Errorf("updating level: %w", err)
	}
	pointsApplied.WithLabelValues(reason).Add(float64(abs(delta)))
	e.Logger.Debug("points applied", "user", userID, "delta", delta, "reason", reason, "total", total, "level", level)
	return total, level, nil
}

// AddForAction awards the configured value for a platform action. Actions
// with no configured value are a no-op.
func (e *Engine) AddForAction(ctx context.Context, userID, action string) (int, string, error) {
	val := ValueForAction(action)
	if val == 0 {
		u, err := e.Users.GetUser(ctx, userID)
		if err != nil {
			return 0, "", err
		}
		return u.Points, u.Level, nil
	}
	return e.Add(ctx, userID, val, action)
}

// CanClaim reports whether the user currently holds at least cost points.
func (e *Engine) CanClaim(ctx context.Context, userID string, cost int) (bool, error) {
	u, err := e.Users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Points >= cost, nil
}

// Claim deducts the cost of a reward after an affordability check. The
// check and the deduction are separate reads, so a concurrent spend can
// still drive the clamped total to zero rather than negative.
func (e *Engine) Claim(ctx context.Context, userID string, cost int, reward string) (int, error) {
	if cost <= 0 {
		return 0, fmt.Errorf("invalid claim cost: %d", cost)
	}
	ok, err := e.CanClaim(ctx, userID, cost)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInsufficientPoints
	}
	total, _, err := e.Add(ctx, userID, -cost, ActionRewardClaim+": "+reward)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// RecordLogin maintains the consecutive-day login streak on the user's
// stats, awarding the daily login point the first time a UTC day is seen.
// Returns the current streak.
func (e *Engine) RecordLogin(ctx context.Context, userID string, now time.Time) (int, error) {
	u, err := e.Users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	day := now.UTC().Format(time.DateOnly)
	if u.Stats.LastLoginDay == day {
		return u.Stats.LoginStreak, nil
	}

	yesterday := now.UTC().AddDate(0, 0, -1).Format(time.DateOnly)
	streak := 1
	if u.Stats.LastLoginDay == yesterday {
		streak = u.Stats.LoginStreak + 1
	}
	longest := u.Stats.LongestStreak
	if streak > longest {
		longest = streak
	}
	if err := e.Users.SetLoginStats(ctx, userID, day, streak, longest); err != nil {
		return 0, fmt.Errorf("updating login stats: %w", err)
	}
	if _, _, err := e.Add(ctx, userID, actionValues[ActionDailyLogin], ActionDailyLogin); err != nil {
		return 0, err
	}
	return streak, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
