// Package store defines the persisted document types of the platform core
// (users, content, badges) and the persistence interfaces the decision engines
// consume. Implementations must provide the atomic primitives the engines
// rely on: conditional add-to-set for badge awards and atomic counter
// increments for points.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vaifllc/youyesyou-core/moderation"
)

var ErrNotFound = errors.New("record not found")

type WarningType string

const (
	WarningTypeWarning    WarningType = "warning"
	WarningTypeSuspension WarningType = "suspension"
	WarningTypeBanned     WarningType = "banned"
)

// Warning entries are owned by the user document: append-only except for
// expiry/deactivation.
type Warning struct {
	Type      WarningType `bson:"type" json:"type"`
	Reason    string      `bson:"reason" json:"reason"`
	IssuedBy  string      `bson:"issuedBy,omitempty" json:"issuedBy,omitempty"`
	IssuedAt  time.Time   `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt *time.Time  `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	IsActive  bool        `bson:"isActive" json:"isActive"`
}

type PointsEntry struct {
	Action    string    `bson:"action" json:"action"`
	Points    int       `bson:"points" json:"points"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Achievement struct {
	BadgeID  string    `bson:"badge" json:"badge"`
	EarnedAt time.Time `bson:"earnedAt" json:"earnedAt"`
}

// Aggregated per-user stats the badge criteria evaluate against.
type UserStats struct {
	Posts            int    `bson:"posts" json:"posts"`
	Comments         int    `bson:"comments" json:"comments"`
	CoursesCompleted int    `bson:"coursesCompleted" json:"coursesCompleted"`
	EventsAttended   int    `bson:"eventsAttended" json:"eventsAttended"`
	LoginStreak      int    `bson:"loginStreak" json:"loginStreak"`
	LongestStreak    int    `bson:"longestStreak" json:"longestStreak"`
	// UTC date (YYYY-MM-DD) of the most recent recorded login
	LastLoginDay string `bson:"lastLoginDay,omitempty" json:"lastLoginDay,omitempty"`
}

type User struct {
	ID            string        `bson:"_id,omitempty" json:"id"`
	Name          string        `bson:"name,omitempty" json:"name,omitempty"`
	Points        int           `bson:"points" json:"points"`
	Level         string        `bson:"level" json:"level"`
	PointsHistory []PointsEntry `bson:"pointsHistory,omitempty" json:"pointsHistory,omitempty"`
	Warnings      []Warning     `bson:"warnings,omitempty" json:"warnings,omitempty"`
	Achievements  []Achievement `bson:"achievements,omitempty" json:"achievements,omitempty"`
	Stats         UserStats     `bson:"stats" json:"stats"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
}

type Content struct {
	ID         string                 `bson:"_id,omitempty" json:"id"`
	UserID     string                 `bson:"user" json:"user"`
	Kind       moderation.ContentKind `bson:"kind" json:"kind"`
	Body       string                 `bson:"body" json:"body"`
	ImageURLs  []string               `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"`
	Moderation moderation.Record      `bson:"moderation" json:"moderation"`
	CreatedAt  time.Time              `bson:"createdAt" json:"createdAt"`
}

type CriteriaType string

const (
	CriteriaPoints   CriteriaType = "points"
	CriteriaPosts    CriteriaType = "posts"
	CriteriaComments CriteriaType = "comments"
	CriteriaCourses  CriteriaType = "courses"
	CriteriaEvents   CriteriaType = "events"
	CriteriaStreak   CriteriaType = "streak"
	// custom badges are awarded manually, never by the eligibility engine
	CriteriaCustom CriteriaType = "custom"
)

type BadgeCriteria struct {
	Type      CriteriaType `bson:"type" json:"type"`
	Value     int          `bson:"value" json:"value"`
	Operator  string       `bson:"operator" json:"operator"`
	Timeframe string       `bson:"timeframe,omitempty" json:"timeframe,omitempty"`
}

type BadgeEarner struct {
	UserID   string    `bson:"user" json:"user"`
	EarnedAt time.Time `bson:"earnedAt" json:"earnedAt"`
}

type Badge struct {
	ID          string        `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Active      bool          `bson:"active" json:"active"`
	Criteria    BadgeCriteria `bson:"criteria" json:"criteria"`
	// points granted to the user on award
	RewardPoints int `bson:"rewardPoints" json:"rewardPoints"`
	// at most one entry per user
	EarnedBy []BadgeEarner `bson:"earnedBy,omitempty" json:"earnedBy,omitempty"`
}

// Stat field names accepted by IncrementStat.
const (
	StatPosts    = "posts"
	StatComments = "comments"
	StatCourses  = "coursesCompleted"
	StatEvents   = "eventsAttended"
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	PutUser(ctx context.Context, u *User) error
	// AddPoints applies the delta atomically relative to the persisted value,
	// clamping the total at zero, and appends the history entry. Returns the
	// new total.
	AddPoints(ctx context.Context, id string, delta int, entry PointsEntry) (int, error)
	// SetLevel records the level derived from the given points total. The
	// write only applies while the stored total still equals forPoints; when
	// a concurrent delta has moved the total on, the write is skipped and
	// that delta's own SetLevel carries the fresh level.
	SetLevel(ctx context.Context, id string, level string, forPoints int) error
	AddWarning(ctx context.Context, id string, w Warning) error
	// SetWarnings replaces the warning list wholesale (deactivation, expiry sweep)
	SetWarnings(ctx context.Context, id string, ws []Warning) error
	AppendAchievement(ctx context.Context, id string, a Achievement) error
	IncrementStat(ctx context.Context, id string, stat string, delta int) error
	SetLoginStats(ctx context.Context, id string, day string, streak, longest int) error
}

type ContentStore interface {
	CreateContent(ctx context.Context, c *Content) error
	GetContent(ctx context.Context, id string) (*Content, error)
	// SetModeration overwrites the moderation record and body together
	// (admin review may restore the original content)
	SetModeration(ctx context.Context, id string, body string, rec moderation.Record) error
}

type BadgeStore interface {
	CreateBadge(ctx context.Context, b *Badge) error
	GetBadge(ctx context.Context, id string) (*Badge, error)
	ListActiveBadges(ctx context.Context) ([]*Badge, error)
	// AddEarner records the award if and only if the user is not already in
	// the badge's earned set. Returns false when already present (a no-op,
	// not an error).
	AddEarner(ctx context.Context, badgeID, userID string, at time.Time) (bool, error)
}

// Store is the full persistence surface the submission pipeline needs.
type Store interface {
	UserStore
	ContentStore
	BadgeStore
}
