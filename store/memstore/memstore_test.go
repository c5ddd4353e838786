package memstore

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/store"
)

func TestAddPointsAtomic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemStore()
	require.NoError(t, s.PutUser(ctx, &store.User{ID: "u1"}))

	// concurrent deltas must not lose updates
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.AddPoints(ctx, "u1", 1, store.PointsEntry{Action: "test", Points: 1, Timestamp: time.Now()})
				assert.NoError(err)
			}
		}()
	}
	wg.Wait()

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(100, u.Points)
	assert.Len(u.PointsHistory, 100)

	// clamp at zero on over-deduction
	total, err := s.AddPoints(ctx, "u1", -500, store.PointsEntry{Action: "claim", Points: -500, Timestamp: time.Now()})
	assert.NoError(err)
	assert.Equal(0, total)
}

func TestAddEarnerIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemStore()
	require.NoError(t, s.CreateBadge(ctx, &store.Badge{ID: "b1", Name: "Starter", Active: true}))

	// simulate concurrent eligibility checks racing to award
	awards := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AddEarner(ctx, "b1", "u1", time.Now())
			assert.NoError(err)
			if ok {
				mu.Lock()
				awards++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(1, awards)
	b, err := s.GetBadge(ctx, "b1")
	require.NoError(t, err)
	assert.Len(b.EarnedBy, 1)
	assert.Equal("u1", b.EarnedBy[0].UserID)
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	s := NewMemStore()
	require.NoError(s.PutUser(ctx, &store.User{
		ID: "u1",
		Warnings: []store.Warning{
			{Type: store.WarningTypeBanned, IsActive: true, Reason: "abuse"},
		},
		PointsHistory: []store.PointsEntry{{Action: "post", Points: 5}},
		Achievements:  []store.Achievement{{BadgeID: "b1"}},
	}))

	// a snapshot taken before a write must not mutate after the fact
	before, err := s.GetUser(ctx, "u1")
	require.NoError(err)
	ws := slices.Clone(before.Warnings)
	ws[0].IsActive = false
	require.NoError(s.SetWarnings(ctx, "u1", ws))
	assert.True(before.Warnings[0].IsActive)

	// and writes through a snapshot must not reach the store
	after, err := s.GetUser(ctx, "u1")
	require.NoError(err)
	after.Warnings[0].Reason = "scribbled"
	after.PointsHistory[0].Points = 999
	after.Achievements[0].BadgeID = "scribbled"
	fresh, err := s.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal("abuse", fresh.Warnings[0].Reason)
	assert.Equal(5, fresh.PointsHistory[0].Points)
	assert.Equal("b1", fresh.Achievements[0].BadgeID)

	require.NoError(s.CreateBadge(ctx, &store.Badge{ID: "b1", Name: "Starter", Active: true}))
	b, err := s.GetBadge(ctx, "b1")
	require.NoError(err)
	_, err = s.AddEarner(ctx, "b1", "u1", time.Now())
	require.NoError(err)
	assert.Empty(b.EarnedBy)

	require.NoError(s.CreateContent(ctx, &store.Content{
		ID: "c1", UserID: "u1", Body: "hello",
		Moderation: moderation.Record{Issues: []string{"profanity"}},
	}))
	c, err := s.GetContent(ctx, "c1")
	require.NoError(err)
	c.Moderation.Issues[0] = "scribbled"
	freshContent, err := s.GetContent(ctx, "c1")
	require.NoError(err)
	assert.Equal([]string{"profanity"}, freshContent.Moderation.Issues)
}

func TestNotFound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemStore()
	_, err := s.GetUser(ctx, "missing")
	assert.ErrorIs(err, store.ErrNotFound)
	_, err = s.GetContent(ctx, "missing")
	assert.ErrorIs(err, store.ErrNotFound)
	_, err = s.AddEarner(ctx, "missing", "u1", time.Now())
	assert.ErrorIs(err, store.ErrNotFound)
}
