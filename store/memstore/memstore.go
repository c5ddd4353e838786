// Package memstore is an in-memory Store implementation for tests and
// single-process development. All mutations take a per-store lock, so the
// conditional-award and atomic-increment semantics match the database-backed
// implementation.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/store"
)

type MemStore struct {
	mu      sync.Mutex
	users   *xsync.MapOf[string, *store.User]
	content *xsync.MapOf[string, *store.Content]
	badges  *xsync.MapOf[string, *store.Badge]
	nextID  int
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		users:   xsync.NewMapOf[string, *store.User](),
		content: xsync.NewMapOf[string, *store.Content](),
		badges:  xsync.NewMapOf[string, *store.Badge](),
	}
}

func (s *MemStore) genID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// Stored documents and returned snapshots must never share slice backing
// arrays: callers mutate their copies (warning deactivation, review edits)
// and those writes must not reach the store, or race with other readers.
func copyUser(u *store.User) *store.User {
	cp := *u
	cp.PointsHistory = slices.Clone(u.PointsHistory)
	cp.Warnings = slices.Clone(u.Warnings)
	cp.Achievements = slices.Clone(u.Achievements)
	return &cp
}

func copyContent(c *store.Content) *store.Content {
	cp := *c
	cp.ImageURLs = slices.Clone(c.ImageURLs)
	cp.Moderation.Issues = slices.Clone(c.Moderation.Issues)
	return &cp
}

func copyBadge(b *store.Badge) *store.Badge {
	cp := *b
	cp.EarnedBy = slices.Clone(b.EarnedBy)
	return &cp
}

func (s *MemStore) GetUser(ctx context.Context, id string) (*store.User, error) {
	u, ok := s.users.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(u), nil
}

func (s *MemStore) PutUser(ctx context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.genID("user")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users.Store(u.ID, copyUser(u))
	return nil
}

func (s *MemStore) AddPoints(ctx context.Context, id string, delta int, entry store.PointsEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return 0, store.ErrNotFound
	}
	u.Points += delta
	if u.Points < 0 {
		u.Points = 0
	}
	u.PointsHistory = append(u.PointsHistory, entry)
	return u.Points, nil
}

func (s *MemStore) SetLevel(ctx context.Context, id string, level string, forPoints int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	if u.Points != forPoints {
		// derived from a stale total; the concurrent writer sets the level
		return nil
	}
	u.Level = level
	return nil
}

func (s *MemStore) AddWarning(ctx context.Context, id string, w store.Warning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	u.Warnings = append(u.Warnings, w)
	return nil
}

func (s *MemStore) SetWarnings(ctx context.Context, id string, ws []store.Warning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	u.Warnings = slices.Clone(ws)
	return nil
}

func (s *MemStore) AppendAchievement(ctx context.Context, id string, a store.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	u.Achievements = append(u.Achievements, a)
	return nil
}

func (s *MemStore) IncrementStat(ctx context.Context, id string, stat string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	switch stat {
	case store.StatPosts:
		u.Stats.Posts += delta
	case store.StatComments:
		u.Stats.Comments += delta
	case store.StatCourses:
		u.Stats.CoursesCompleted += delta
	case store.StatEvents:
		u.Stats.EventsAttended += delta
	default:
		return fmt.Errorf("unknown stat field: %s", stat)
	}
	return nil
}

func (s *MemStore) SetLoginStats(ctx context.Context, id string, day string, streak, longest int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	u.Stats.LastLoginDay = day
	u.Stats.LoginStreak = streak
	u.Stats.LongestStreak = longest
	return nil
}

func (s *MemStore) CreateContent(ctx context.Context, c *store.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.genID("content")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.content.Store(c.ID, copyContent(c))
	return nil
}

func (s *MemStore) GetContent(ctx context.Context, id string) (*store.Content, error) {
	c, ok := s.content.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyContent(c), nil
}

func (s *MemStore) SetModeration(ctx context.Context, id string, body string, rec moderation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.content.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	c.Body = body
	c.Moderation = rec
	c.Moderation.Issues = slices.Clone(rec.Issues)
	return nil
}

func (s *MemStore) CreateBadge(ctx context.Context, b *store.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = s.genID("badge")
	}
	s.badges.Store(b.ID, copyBadge(b))
	return nil
}

func (s *MemStore) GetBadge(ctx context.Context, id string) (*store.Badge, error) {
	b, ok := s.badges.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBadge(b), nil
}

func (s *MemStore) ListActiveBadges(ctx context.Context) ([]*store.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Badge
	s.badges.Range(func(id string, b *store.Badge) bool {
		if b.Active {
			out = append(out, copyBadge(b))
		}
		return true
	})
	return out, nil
}

func (s *MemStore) AddEarner(ctx context.Context, badgeID, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges.Load(badgeID)
	if !ok {
		return false, store.ErrNotFound
	}
	for _, e := range b.EarnedBy {
		if e.UserID == userID {
			// already earned: a no-op, not an error
			return false, nil
		}
	}
	b.EarnedBy = append(b.EarnedBy, store.BadgeEarner{UserID: userID, EarnedAt: at})
	return true, nil
}
