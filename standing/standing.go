// Package standing decides whether a user may submit content at all, based
// on their warning history. The check runs before any content classification
// and is independent of it.
//
// Policy note: storage errors during the check are logged and resolve to
// Allow. Availability is deliberately favored over strict enforcement here.
package standing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vaifllc/youyesyou-core/cachestore"
	"github.com/vaifllc/youyesyou-core/countstore"
	"github.com/vaifllc/youyesyou-core/store"
)

// Decision kinds for a denied submission.
const (
	DenyBan        = "ban"
	DenySuspension = "suspension"
)

// Decision is the outcome of a standing check. When Allowed is false, Kind
// says which enforcement applies and ExpiresAt carries the suspension expiry
// when one exists.
type Decision struct {
	Allowed   bool
	Kind      string
	Reason    string
	ExpiresAt *time.Time
}

var allow = Decision{Allowed: true}

type Config struct {
	// standing cache TTL is owned by the cachestore; entries here are purged
	// eagerly on warning changes
	CacheAllowed bool
	// flagged submissions per UTC day before an automatic warning is issued;
	// zero disables escalation
	FlaggedPerDayThreshold int
	EscalationReason       string
}

func DefaultConfig() Config {
	return Config{
		CacheAllowed:           true,
		FlaggedPerDayThreshold: 3,
		EscalationReason:       "repeated flagged content",
	}
}

type Tracker struct {
	Logger   *slog.Logger
	Users    store.UserStore
	Cache    cachestore.CacheStore
	Counters countstore.CountStore
	Config   Config
}

func NewTracker(users store.UserStore, cache cachestore.CacheStore, counters countstore.CountStore, logger *slog.Logger, cfg Config) *Tracker {
	if logger == nil {
		logger = slog.Default().With("system", "standing")
	}
	return &Tracker{
		Logger:   logger,
		Users:    users,
		Cache:    cache,
		Counters: counters,
		Config:   cfg,
	}
}

const cacheName = "standing"

// Check returns the user's current submission standing. Unknown users and
// users with no warning history are allowed. Store failures are logged and
// resolve to Allow.
func (t *Tracker) Check(ctx context.Context, userID string) Decision {
	if t.Config.CacheAllowed && t.Cache != nil {
		if val, err := t.Cache.Get(ctx, cacheName, userID); err == nil && val == "allow" {
			checkCount.WithLabelValues("allow-cached").Inc()
			return allow
		}
	}

	u, err := t.Users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		checkCount.WithLabelValues("allow").Inc()
		return allow
	} else if err != nil {
		t.Logger.Error("standing lookup failed, allowing submission", "err", err, "user", userID)
		checkCount.WithLabelValues("allow-failopen").Inc()
		return allow
	}

	d := DecideFromWarnings(u.Warnings, time.Now())
	if d.Allowed {
		if t.Config.CacheAllowed && t.Cache != nil {
			if err := t.Cache.Set(ctx, cacheName, userID, "allow"); err != nil {
				t.Logger.Warn("failed to cache standing", "err", err, "user", userID)
			}
		}
		checkCount.WithLabelValues("allow").Inc()
	} else {
		checkCount.WithLabelValues(d.Kind).Inc()
	}
	return d
}

// DecideFromWarnings is the pure decision rule. An active ban always denies.
// An active suspension denies only while its expiry is in the future; a
// suspension with no expiry recorded does not block.
func DecideFromWarnings(warnings []store.Warning, now time.Time) Decision {
	for _, w := range warnings {
		if !w.IsActive {
			continue
		}
		if w.Type == store.WarningTypeBanned {
			return Decision{Kind: DenyBan, Reason: w.Reason}
		}
	}
	for _, w := range warnings {
		if !w.IsActive || w.Type != store.WarningTypeSuspension {
			continue
		}
		if w.ExpiresAt != nil && w.ExpiresAt.After(now) {
			exp := *w.ExpiresAt
			return Decision{Kind: DenySuspension, Reason: w.Reason, ExpiresAt: &exp}
		}
	}
	return allow
}

// Issue appends a warning to the user's history and drops any cached
// standing. A non-zero duration sets the expiry (used for suspensions).
func (t *Tracker) Issue(ctx context.Context, userID string, typ store.WarningType, reason, issuedBy string, duration time.Duration) error {
	w := store.Warning{
		Type:     typ,
		Reason:   reason,
		IssuedBy: issuedBy,
		IssuedAt: time.Now().UTC(),
		IsActive: true,
	}
	if duration > 0 {
		exp := w.IssuedAt.Add(duration)
		w.ExpiresAt = &exp
	}
	if err := t.Users.AddWarning(ctx, userID, w); err != nil {
		return fmt.Errorf("issuing warning: %w", err)
	}
	t.purge(ctx, userID)
	issuedCount.WithLabelValues(string(typ)).Inc()
	t.Logger.Info("warning issued", "user", userID, "type", typ, "reason", reason, "issuedBy", issuedBy)
	return nil
}

// Deactivate clears the IsActive bit on the warning at the given index in
// the user's history.
func (t *Tracker) Deactivate(ctx context.Context, userID string, index int) error {
	u, err := t.Users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(u.Warnings) {
		return fmt.Errorf("warning index out of range: %d", index)
	}
	u.Warnings[index].IsActive = false
	if err := t.Users.SetWarnings(ctx, userID, u.Warnings); err != nil {
		return fmt.Errorf("deactivating warning: %w", err)
	}
	t.purge(ctx, userID)
	return nil
}

// SweepExpired deactivates any active suspension whose expiry has passed,
// returning the number deactivated.
func (t *Tracker) SweepExpired(ctx context.Context, userID string) (int, error) {
	u, err := t.Users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	swept := 0
	for i, w := range u.Warnings {
		if w.IsActive && w.Type == store.WarningTypeSuspension && w.ExpiresAt != nil && !w.ExpiresAt.After(now) {
			u.Warnings[i].IsActive = false
			swept++
		}
	}
	if swept == 0 {
		return 0, nil
	}
	if err := t.Users.SetWarnings(ctx, userID, u.Warnings); err != nil {
		return 0, fmt.Errorf("sweeping warnings: %w", err)
	}
	t.purge(ctx, userID)
	return swept, nil
}

// RecordFlagged notes a flagged submission for escalation tracking. When the
// user crosses the per-day threshold an automatic warning is issued, at most
// once per day.
func (t *Tracker) RecordFlagged(ctx context.Context, userID string) error {
	if t.Counters == nil {
		return nil
	}
	if err := t.Counters.Increment(ctx, countstore.NameFlagged, userID); err != nil {
		return fmt.Errorf("incrementing flagged counter: %w", err)
	}
	if t.Config.FlaggedPerDayThreshold <= 0 {
		return nil
	}
	n, err := t.Counters.GetCount(ctx, countstore.NameFlagged, userID, countstore.PeriodDay)
	if err != nil {
		return fmt.Errorf("reading flagged counter: %w", err)
	}
	if n < t.Config.FlaggedPerDayThreshold {
		return nil
	}
	// the bump and the read are one atomic step, so concurrent submissions
	// crossing the threshold still escalate exactly once per day
	issued, err := t.Counters.IncrementAndGet(ctx, nameEscalation, userID)
	if err != nil {
		return fmt.Errorf("bumping escalation counter: %w", err)
	}
	if issued > 1 {
		return nil
	}
	return t.Issue(ctx, userID, store.WarningTypeWarning, t.Config.EscalationReason, "system", 0)
}

const nameEscalation = "standing-escalation"

func (t *Tracker) purge(ctx context.Context, userID string) {
	if t.Cache == nil {
		return
	}
	if err := t.Cache.Purge(ctx, cacheName, userID); err != nil {
		t.Logger.Warn("failed to purge standing cache", "err", err, "user", userID)
	}
}
