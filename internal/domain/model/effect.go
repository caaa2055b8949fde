package model

import "time"

// EffectKind identifies an expiry state-machine transition.
type EffectKind string

const (
	// EffectReminderDue fires once per reminder threshold before expiry.
	EffectReminderDue EffectKind = "reminder_due"
	// EffectGraceStarted fires once when a record enters its grace window.
	EffectGraceStarted EffectKind = "grace_started"
	// EffectRevoked fires once when the grace window has elapsed. Terminal.
	EffectRevoked EffectKind = "revoked"
)

// Effect is a side effect produced by one expiry pass for one record.
type Effect struct {
	Kind     EffectKind
	HolderID string
	// DaysRemaining is the reminder threshold that fired (7, 3, or 1).
	// Zero for grace and revocation effects.
	DaysRemaining int
	// ExpiresAt is the record's expiry instant at the time the effect fired.
	ExpiresAt time.Time
}
