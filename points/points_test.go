package points

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaifllc/youyesyou-core/store"
	"github.com/vaifllc/youyesyou-core/store/memstore"
)

func TestLevelForPoints(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		points int
		level  string
	}{
		{0, LevelNewMember},
		{50, LevelNewMember},
		{99, LevelNewMember},
		{100, LevelBuilder},
		{249, LevelBuilder},
		{250, LevelOvercomer},
		{499, LevelOvercomer},
		{500, LevelMentorInTraining},
		{749, LevelMentorInTraining},
		{750, LevelLegacyLeader},
		{10000, LevelLegacyLeader},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.level, LevelForPoints(fix.points), "points=%d", fix.points)
	}
}

func newTestEngine(t *testing.T, startPoints int) (*Engine, *memstore.MemStore) {
	t.Helper()
	st := memstore.NewMemStore()
	err := st.PutUser(context.Background(), &store.User{
		ID:     "u1",
		Points: startPoints,
		Level:  LevelForPoints(startPoints),
	})
	require.NoError(t, err)
	return NewEngine(st, nil), st
}

func TestAddRecomputesLevel(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := newTestEngine(t, 95)

	total, level, err := eng.Add(ctx, "u1", 5, ActionPost)
	require.NoError(err)
	assert.Equal(100, total)
	assert.Equal(LevelBuilder, level)

	u, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal(100, u.Points)
	assert.Equal(LevelBuilder, u.Level)
	require.Len(u.PointsHistory, 1)
	assert.Equal(ActionPost, u.PointsHistory[0].Action)
	assert.Equal(5, u.PointsHistory[0].Points)
}

func TestStaleLevelWriteSkipped(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := newTestEngine(t, 95)

	total, level, err := eng.Add(ctx, "u1", 5, ActionPost)
	require.NoError(err)
	require.Equal(100, total)
	require.Equal(LevelBuilder, level)

	// a level derived from a total the store has moved past must not land
	require.NoError(st.SetLevel(ctx, "u1", LevelNewMember, 95))
	u, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal(LevelBuilder, u.Level)
}

func TestConcurrentAddsKeepLevelConsistent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := newTestEngine(t, 80)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := eng.Add(ctx, "u1", 5, ActionPost)
			assert.NoError(err)
		}()
	}
	wg.Wait()

	u, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal(120, u.Points)
	assert.Equal(LevelForPoints(u.Points), u.Level)
}

func TestAddMonotonicity(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, _ := newTestEngine(t, 40)

	total, _, err := eng.Add(ctx, "u1", 30, "test-up")
	require.NoError(err)
	assert.Equal(70, total)
	total, _, err = eng.Add(ctx, "u1", -30, "test-down")
	require.NoError(err)
	assert.Equal(40, total)

	// large deduction clamps at zero instead of going negative
	total, level, err := eng.Add(ctx, "u1", -500, "test-clamp")
	require.NoError(err)
	assert.Equal(0, total)
	assert.Equal(LevelNewMember, level)
}

func TestClaim(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := newTestEngine(t, 120)

	total, err := eng.Claim(ctx, "u1", 50, "coaching session")
	require.NoError(err)
	assert.Equal(70, total)

	_, err = eng.Claim(ctx, "u1", 500, "retreat ticket")
	assert.ErrorIs(err, ErrInsufficientPoints)

	u, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal(70, u.Points)
	require.Len(u.PointsHistory, 1)
	assert.Equal(-50, u.PointsHistory[0].Points)
}

func TestRecordLogin(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := newTestEngine(t, 0)

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	streak, err := eng.RecordLogin(ctx, "u1", day1)
	require.NoError(err)
	assert.Equal(1, streak)

	// same day is idempotent, no extra point
	streak, err = eng.RecordLogin(ctx, "u1", day1.Add(4*time.Hour))
	require.NoError(err)
	assert.Equal(1, streak)
	u, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal(1, u.Points)

	// consecutive day extends the streak
	streak, err = eng.RecordLogin(ctx, "u1", day1.AddDate(0, 0, 1))
	require.NoError(err)
	assert.Equal(2, streak)

	// a gap resets the streak but keeps the longest
	streak, err = eng.RecordLogin(ctx, "u1", day1.AddDate(0, 0, 5))
	require.NoError(err)
	assert.Equal(1, streak)
	u, err = st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Equal(2, u.Stats.LongestStreak)
}
