package standing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaifllc/youyesyou-core/countstore"
	"github.com/vaifllc/youyesyou-core/store"
	"github.com/vaifllc/youyesyou-core/store/memstore"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestDecideFromWarnings(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	future := ptrTime(now.Add(24 * time.Hour))
	past := ptrTime(now.Add(-24 * time.Hour))

	fixtures := []struct {
		name     string
		warnings []store.Warning
		allowed  bool
		kind     string
	}{
		{
			name:     "no history",
			warnings: nil,
			allowed:  true,
		},
		{
			name: "inactive ban",
			warnings: []store.Warning{
				{Type: store.WarningTypeBanned, IsActive: false},
			},
			allowed: true,
		},
		{
			name: "active ban",
			warnings: []store.Warning{
				{Type: store.WarningTypeBanned, IsActive: true, Reason: "abuse"},
			},
			allowed: false,
			kind:    DenyBan,
		},
		{
			name: "active suspension with future expiry",
			warnings: []store.Warning{
				{Type: store.WarningTypeSuspension, IsActive: true, ExpiresAt: future},
			},
			allowed: false,
			kind:    DenySuspension,
		},
		{
			name: "active suspension already expired",
			warnings: []store.Warning{
				{Type: store.WarningTypeSuspension, IsActive: true, ExpiresAt: past},
			},
			allowed: true,
		},
		{
			name: "active suspension with no expiry recorded",
			warnings: []store.Warning{
				{Type: store.WarningTypeSuspension, IsActive: true},
			},
			allowed: true,
		},
		{
			name: "ban wins over suspension",
			warnings: []store.Warning{
				{Type: store.WarningTypeSuspension, IsActive: true, ExpiresAt: future},
				{Type: store.WarningTypeBanned, IsActive: true},
			},
			allowed: false,
			kind:    DenyBan,
		},
		{
			name: "plain warnings never deny",
			warnings: []store.Warning{
				{Type: store.WarningTypeWarning, IsActive: true},
				{Type: store.WarningTypeWarning, IsActive: true},
			},
			allowed: true,
		},
	}

	for _, fix := range fixtures {
		d := DecideFromWarnings(fix.warnings, now)
		assert.Equal(fix.allowed, d.Allowed, fix.name)
		assert.Equal(fix.kind, d.Kind, fix.name)
	}
}

func TestCheckSuspensionExpiry(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	st := memstore.NewMemStore()
	tr := NewTracker(st, nil, nil, nil, DefaultConfig())

	u := &store.User{ID: "u1", Name: "alice"}
	require.NoError(st.PutUser(ctx, u))

	require.NoError(tr.Issue(ctx, "u1", store.WarningTypeSuspension, "cooling off", "admin-1", time.Hour))
	d := tr.Check(ctx, "u1")
	assert.False(d.Allowed)
	assert.Equal(DenySuspension, d.Kind)
	require.NotNil(d.ExpiresAt)

	// rewrite the expiry into the past; the suspension no longer denies even
	// though it is still active
	got, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	got.Warnings[0].ExpiresAt = ptrTime(time.Now().Add(-time.Minute))
	require.NoError(st.SetWarnings(ctx, "u1", got.Warnings))

	d = tr.Check(ctx, "u1")
	assert.True(d.Allowed)

	swept, err := tr.SweepExpired(ctx, "u1")
	require.NoError(err)
	assert.Equal(1, swept)
	got, err = st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.False(got.Warnings[0].IsActive)
}

func TestCheckUnknownUserAllows(t *testing.T) {
	tr := NewTracker(memstore.NewMemStore(), nil, nil, nil, DefaultConfig())
	d := tr.Check(context.Background(), "nobody")
	assert.True(t, d.Allowed)
}

func TestDeactivate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	st := memstore.NewMemStore()
	tr := NewTracker(st, nil, nil, nil, DefaultConfig())

	require.NoError(st.PutUser(ctx, &store.User{ID: "u1"}))
	require.NoError(tr.Issue(ctx, "u1", store.WarningTypeBanned, "spam rings", "admin-1", 0))
	require.False(tr.Check(ctx, "u1").Allowed)

	require.NoError(tr.Deactivate(ctx, "u1", 0))
	require.True(tr.Check(ctx, "u1").Allowed)

	require.Error(tr.Deactivate(ctx, "u1", 5))
}

func TestDeactivateDoesNotMutateSnapshots(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	st := memstore.NewMemStore()
	tr := NewTracker(st, nil, nil, nil, DefaultConfig())

	require.NoError(st.PutUser(ctx, &store.User{ID: "u1"}))
	require.NoError(tr.Issue(ctx, "u1", store.WarningTypeBanned, "abuse", "admin-1", 0))

	// a snapshot taken before deactivation must keep showing the active ban
	before, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	require.NoError(tr.Deactivate(ctx, "u1", 0))
	assert.True(before.Warnings[0].IsActive)
	assert.False(DecideFromWarnings(before.Warnings, time.Now()).Allowed)

	// checks racing a deactivation read their own copies (run with -race)
	require.NoError(tr.Issue(ctx, "u1", store.WarningTypeBanned, "again", "admin-1", 0))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tr.Check(ctx, "u1")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(tr.Deactivate(ctx, "u1", 1))
	}()
	wg.Wait()
	assert.True(tr.Check(ctx, "u1").Allowed)
}

func TestEscalation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	st := memstore.NewMemStore()
	counters := countstore.NewMemCountStore()
	cfg := DefaultConfig()
	cfg.FlaggedPerDayThreshold = 2
	tr := NewTracker(st, nil, counters, nil, cfg)

	require.NoError(st.PutUser(ctx, &store.User{ID: "u1"}))

	require.NoError(tr.RecordFlagged(ctx, "u1"))
	got, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	assert.Empty(got.Warnings)

	// crossing the threshold issues exactly one automatic warning, further
	// flags the same day do not issue another
	require.NoError(tr.RecordFlagged(ctx, "u1"))
	require.NoError(tr.RecordFlagged(ctx, "u1"))
	got, err = st.GetUser(ctx, "u1")
	require.NoError(err)
	require.Len(got.Warnings, 1)
	assert.Equal(store.WarningTypeWarning, got.Warnings[0].Type)
	assert.Equal("system", got.Warnings[0].IssuedBy)
	assert.True(got.Warnings[0].IsActive)
}

func TestEscalationConcurrent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	st := memstore.NewMemStore()
	counters := countstore.NewMemCountStore()
	cfg := DefaultConfig()
	cfg.FlaggedPerDayThreshold = 1
	tr := NewTracker(st, nil, counters, nil, cfg)

	require.NoError(st.PutUser(ctx, &store.User{ID: "u1"}))

	// every submission crosses the threshold; still only one warning lands
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(tr.RecordFlagged(ctx, "u1"))
		}()
	}
	wg.Wait()

	got, err := st.GetUser(ctx, "u1")
	require.NoError(err)
	require.Len(got.Warnings, 1)
	assert.Equal(store.WarningTypeWarning, got.Warnings[0].Type)
}
