// Package countstore tracks per-user activity counters with total/day/hour
// period buckets: submissions, flagged content, notification dedupe, and
// distinct/cardinality counts.
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

// Counter namespaces used by the submission pipeline.
const (
	NameSubmission   = "submission"
	NameFlagged      = "content-flagged"
	NameBlocked      = "content-blocked"
	NameNotifFlagged = "notif-flagged"
	NameActiveUsers  = "active-users"
)

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	// IncrementAndGet bumps the counter in every period and returns the new
	// day-period value in one atomic step, for guards that must fire at most
	// once per day under concurrent increments.
	IncrementAndGet(ctx context.Context, name, val string) (int, error)
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

func periodBucket(name, val, period string) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		t := time.Now().UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodHour:
		t := time.Now().UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}
