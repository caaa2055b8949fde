// Package model contains the domain entities shared across the application.
package model

import "time"

// AlertFlags is a bitset of one-shot expiry transitions that have already
// fired for a record. Flags are the only mechanism preventing duplicate
// notifications across repeated expiry passes; they are cleared as a whole
// when an entitlement is extended or made permanent.
type AlertFlags uint8

const (
	// AlertReminder7d marks the "expires within 7 days" reminder as sent.
	AlertReminder7d AlertFlags = 1 << iota
	// AlertReminder3d marks the "expires within 3 days" reminder as sent.
	AlertReminder3d
	// AlertReminder1d marks the "expires within 1 day" reminder as sent.
	AlertReminder1d
	// AlertGraceStarted marks the grace-window warning as sent.
	AlertGraceStarted
	// AlertRevoked marks the terminal revocation as performed.
	AlertRevoked
)

// Has reports whether all bits of flag are set.
func (f AlertFlags) Has(flag AlertFlags) bool {
	return f&flag == flag
}

// With returns f with flag set.
func (f AlertFlags) With(flag AlertFlags) AlertFlags {
	return f | flag
}

// Any reports whether at least one flag is set.
func (f AlertFlags) Any() bool {
	return f != 0
}

// VipRecord is one holder's entitlement. A record is either permanent
// (ExpiresAt nil, ignored) or time-bounded (ExpiresAt set); a freshly created
// record may briefly have neither until the first duration is assigned.
type VipRecord struct {
	HolderID  string
	Permanent bool
	ExpiresAt *time.Time // nil when permanent or no duration assigned yet
	Note      string
	Alerts    AlertFlags
	UpdatedAt time.Time
}

// Expired reports whether the record is time-bounded and past its expiry.
func (r VipRecord) Expired(now time.Time) bool {
	return !r.Permanent && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// ExtendResult describes the outcome of an extend operation.
type ExtendResult struct {
	// Permanent is true when the record was already permanent and the
	// duration was left untouched.
	Permanent bool
	// ExpiresAt is the new expiry instant for temporary records; nil when
	// Permanent is true.
	ExpiresAt *time.Time
}
