package countstore

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// In-memory counter store, safe for concurrent use. Intended for tests and
// single-process deployments; counters never expire. Counters are plain
// atomics so IncrementAndGet observes its own bump, like redis INCR.
type MemCountStore struct {
	counts         *xsync.MapOf[string, *atomic.Int64]
	distinctCounts *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts:         xsync.NewMapOf[string, *atomic.Int64](),
		distinctCounts: xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	c, ok := s.counts.Load(periodBucket(name, val, period))
	if !ok {
		return 0, nil
	}
	return int(c.Load()), nil
}

func (s *MemCountStore) incr(name, val, period string) int {
	k := periodBucket(name, val, period)
	c, _ := s.counts.LoadOrCompute(k, func() *atomic.Int64 {
		return new(atomic.Int64)
	})
	return int(c.Add(1))
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		s.incr(name, val, p)
	}
	return nil
}

func (s *MemCountStore) IncrementAndGet(ctx context.Context, name, val string) (int, error) {
	s.incr(name, val, PeriodTotal)
	s.incr(name, val, PeriodHour)
	return s.incr(name, val, PeriodDay), nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	m, ok := s.distinctCounts.Load(periodBucket(name, bucket, period))
	if !ok {
		return 0, nil
	}
	return m.Size(), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		k := periodBucket(name, bucket, p)
		m, _ := s.distinctCounts.LoadOrCompute(k, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		m.Store(val, struct{}{})
	}
	return nil
}
