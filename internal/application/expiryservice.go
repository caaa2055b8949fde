// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// DefaultGracePeriod is the window after expiry during which the holder keeps
// the role before automatic revocation.
const DefaultGracePeriod = 3 * 24 * time.Hour

// reminderThresholds are evaluated in strictly descending order with
// mutually exclusive day ranges, so at most one reminder fires per record
// per pass even after a long gap between passes.
var reminderThresholds = []struct {
	days  int
	lower int // exclusive lower bound in days remaining
	flag  model.AlertFlags
}{
	{days: 7, lower: 3, flag: model.AlertReminder7d},
	{days: 3, lower: 1, flag: model.AlertReminder3d},
	{days: 1, lower: 0, flag: model.AlertReminder1d},
}

// RefreshScheduler is the slice of the roster synchronizer the other
// services need: scheduling a coalesced display refresh.
type RefreshScheduler interface {
	RequestRefresh(reason string)
}

// ExpiryService advances the per-record expiration state machine. It is
// driven by a periodic scheduler and is safe to invoke at arbitrary,
// irregular intervals: alert flags persisted per record make every
// transition one-shot across repeated passes.
type ExpiryService struct {
	vips     driven.VipStore
	roles    driven.RoleSource
	notifier driven.Notifier
	roster   RefreshScheduler
	grace    time.Duration
}

// NewExpiryService creates an ExpiryService. grace <= 0 falls back to
// DefaultGracePeriod.
func NewExpiryService(
	vips driven.VipStore,
	roles driven.RoleSource,
	notifier driven.Notifier,
	roster RefreshScheduler,
	grace time.Duration,
) *ExpiryService {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &ExpiryService{
		vips:     vips,
		roles:    roles,
		notifier: notifier,
		roster:   roster,
		grace:    grace,
	}
}

// RunOnce executes one expiry pass against the current wall clock.
// Intended as the periodic driver's entry point.
func (s *ExpiryService) RunOnce(ctx context.Context) {
	start := time.Now()

	effects, err := s.Advance(ctx, start)
	if err != nil {
		slog.Error("expiry pass failed", "error", err)
		return
	}

	slog.Info("expiry pass complete",
		"effects", len(effects),
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// Advance evaluates every non-permanent record with an expiry against now,
// persists changed alert flags record by record, performs the attached side
// effects (notification, role removal, refresh scheduling), and returns the
// effects that fired. One record's failure never blocks the rest of the pass.
func (s *ExpiryService) Advance(ctx context.Context, now time.Time) ([]model.Effect, error) {
	records, err := s.vips.ListExpiring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expiring records: %w", err)
	}

	var effects []model.Effect
	for _, rec := range records {
		if ctx.Err() != nil {
			return effects, ctx.Err()
		}

		flags, effect := ComputeExpiryTransition(rec, now, s.grace)
		if effect == nil {
			continue
		}

		// Persist the flag before announcing anything: a crash after the
		// notification but before the write would re-fire on the next pass.
		rec.Alerts = flags
		rec.UpdatedAt = now
		if err := s.vips.Upsert(ctx, rec); err != nil {
			slog.Error("persist alert flags failed", "holder", rec.HolderID, "error", err)
			continue
		}

		s.applyEffect(ctx, *effect)
		effects = append(effects, *effect)
	}

	if len(effects) > 0 {
		s.roster.RequestRefresh("expiry check")
	}

	return effects, nil
}

// applyEffect performs the external side effects of one transition. All of
// them are best-effort: the flag is already persisted, so a failed role
// removal or notification is logged and left to operators rather than
// re-running the transition.
func (s *ExpiryService) applyEffect(ctx context.Context, effect model.Effect) {
	switch effect.Kind {
	case model.EffectReminderDue:
		s.notify(ctx, fmt.Sprintf(
			"VIP reminder: %s expires in %d day(s) (expiry: %s).",
			effect.HolderID, effect.DaysRemaining, effect.ExpiresAt.Format(time.RFC3339),
		))

	case model.EffectGraceStarted:
		s.notify(ctx, fmt.Sprintf(
			"VIP expired: %s entered the grace window (expired: %s). Role will be removed in %s.",
			effect.HolderID, effect.ExpiresAt.Format(time.RFC3339), s.grace,
		))

	case model.EffectRevoked:
		if err := s.roles.RemoveRole(ctx, effect.HolderID); err != nil {
			if errors.Is(err, driven.ErrNotFound) {
				s.notify(ctx, fmt.Sprintf(
					"VIP revoked: %s (holder not found or role already removed).",
					effect.HolderID,
				))
			} else {
				slog.Error("role removal failed", "holder", effect.HolderID, "error", err)
				s.notify(ctx, fmt.Sprintf(
					"VIP revoked record-side: %s, but role removal failed: %v.",
					effect.HolderID, err,
				))
			}
			return
		}
		s.notify(ctx, fmt.Sprintf(
			"VIP revoked: %s (expired: %s, grace elapsed). Role removed automatically.",
			effect.HolderID, effect.ExpiresAt.Format(time.RFC3339),
		))
	}
}

// notify sends a staff alert. Failures are logged, never retried.
func (s *ExpiryService) notify(ctx context.Context, text string) {
	if err := s.notifier.Send(ctx, text); err != nil {
		slog.Error("staff alert failed", "error", err, "text", text)
	}
}

// ComputeExpiryTransition evaluates one record against now and returns the
// updated alert flags together with the effect that fired, or the unchanged
// flags and nil when nothing is due. It never mutates the record and at most
// one effect fires per call.
func ComputeExpiryTransition(rec model.VipRecord, now time.Time, grace time.Duration) (model.AlertFlags, *model.Effect) {
	if rec.Permanent || rec.ExpiresAt == nil {
		return rec.Alerts, nil
	}

	expiresAt := *rec.ExpiresAt
	remaining := expiresAt.Sub(now)

	if remaining > 0 {
		daysRemaining := daysCeil(remaining)
		for _, t := range reminderThresholds {
			if daysRemaining <= t.days && daysRemaining > t.lower && !rec.Alerts.Has(t.flag) {
				return rec.Alerts.With(t.flag), &model.Effect{
					Kind:          model.EffectReminderDue,
					HolderID:      rec.HolderID,
					DaysRemaining: t.days,
					ExpiresAt:     expiresAt,
				}
			}
		}
		return rec.Alerts, nil
	}

	if now.Before(expiresAt.Add(grace)) {
		if !rec.Alerts.Has(model.AlertGraceStarted) {
			return rec.Alerts.With(model.AlertGraceStarted), &model.Effect{
				Kind:      model.EffectGraceStarted,
				HolderID:  rec.HolderID,
				ExpiresAt: expiresAt,
			}
		}
		return rec.Alerts, nil
	}

	if !rec.Alerts.Has(model.AlertRevoked) {
		return rec.Alerts.With(model.AlertRevoked), &model.Effect{
			Kind:      model.EffectRevoked,
			HolderID:  rec.HolderID,
			ExpiresAt: expiresAt,
		}
	}

	return rec.Alerts, nil
}

// daysCeil converts a positive duration to whole days, rounding up.
func daysCeil(d time.Duration) int {
	const day = 24 * time.Hour
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}
