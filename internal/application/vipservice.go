package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// ListOptions control VipService.List. Page is 1-based; PerPage <= 0 falls
// back to 50. ExpiringWithin > 0 restricts the listing to non-permanent
// records whose expiry falls inside that window.
type ListOptions struct {
	Page           int
	PerPage        int
	ExpiringWithin time.Duration
}

// VipService implements the administrative operations: extend, set-permanent,
// remove, and queries. Every membership-affecting mutation also grants or
// revokes the external role (best-effort) and schedules a roster refresh.
type VipService struct {
	vips   driven.VipStore
	roles  driven.RoleSource
	roster RefreshScheduler
}

// NewVipService creates a VipService.
func NewVipService(vips driven.VipStore, roles driven.RoleSource, roster RefreshScheduler) *VipService {
	return &VipService{vips: vips, roles: roles, roster: roster}
}

// Extend adds days to a holder's entitlement, creating the record if absent.
// A permanent record only gets its note and timestamp refreshed. For
// temporary records the new expiry is based on the current expiry when it is
// still in the future, otherwise on now: an expired or brand-new entitlement
// restarts from now rather than stacking onto a past instant. Extending
// always re-arms all future reminders by clearing the alert flags.
func (s *VipService) Extend(ctx context.Context, holderID string, days int, note string) (model.ExtendResult, error) {
	if days <= 0 {
		return model.ExtendResult{}, fmt.Errorf("days must be positive, got %d", days)
	}

	now := time.Now().UTC()

	rec, err := s.vips.Get(ctx, holderID)
	if err != nil {
		return model.ExtendResult{}, fmt.Errorf("get record %q: %w", holderID, err)
	}
	if rec == nil {
		rec = &model.VipRecord{HolderID: holderID}
	}

	if rec.Permanent {
		if note != "" {
			rec.Note = note
		}
		rec.UpdatedAt = now
		if err := s.vips.Upsert(ctx, *rec); err != nil {
			return model.ExtendResult{}, fmt.Errorf("update record %q: %w", holderID, err)
		}
		return model.ExtendResult{Permanent: true}, nil
	}

	base := now
	if rec.ExpiresAt != nil && rec.ExpiresAt.After(now) {
		base = *rec.ExpiresAt
	}
	newExpiry := base.AddDate(0, 0, days)

	rec.ExpiresAt = &newExpiry
	if note != "" {
		rec.Note = note
	}
	rec.Alerts = 0
	rec.UpdatedAt = now

	if err := s.vips.Upsert(ctx, *rec); err != nil {
		return model.ExtendResult{}, fmt.Errorf("upsert record %q: %w", holderID, err)
	}

	s.grantRole(ctx, holderID)
	s.roster.RequestRefresh("vip extend")

	return model.ExtendResult{ExpiresAt: &newExpiry}, nil
}

// SetPermanent makes the holder's entitlement permanent: expiry cleared,
// alert flags reset.
func (s *VipService) SetPermanent(ctx context.Context, holderID string, note string) error {
	rec := model.VipRecord{
		HolderID:  holderID,
		Permanent: true,
		Note:      note,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.vips.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert record %q: %w", holderID, err)
	}

	s.grantRole(ctx, holderID)
	s.roster.RequestRefresh("vip permanent")

	return nil
}

// Remove deletes the record and revokes the external role. Role removal is
// best-effort; the record deletion is what authoritatively ends the
// entitlement.
func (s *VipService) Remove(ctx context.Context, holderID string) error {
	if err := s.roles.RemoveRole(ctx, holderID); err != nil {
		slog.Warn("role removal failed during remove", "holder", holderID, "error", err)
	}

	if err := s.vips.Delete(ctx, holderID); err != nil {
		return fmt.Errorf("delete record %q: %w", holderID, err)
	}

	s.roster.RequestRefresh("vip remove")
	return nil
}

// Get retrieves a single record. Returns nil, nil when the holder has no
// entitlement.
func (s *VipService) Get(ctx context.Context, holderID string) (*model.VipRecord, error) {
	return s.vips.Get(ctx, holderID)
}

// List returns one page of records plus the total count after filtering.
func (s *VipService) List(ctx context.Context, opts ListOptions) ([]model.VipRecord, int, error) {
	records, err := s.vips.ListAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}

	if opts.ExpiringWithin > 0 {
		cutoff := time.Now().UTC().Add(opts.ExpiringWithin)
		filtered := records[:0]
		for _, rec := range records {
			if !rec.Permanent && rec.ExpiresAt != nil && rec.ExpiresAt.Before(cutoff) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	total := len(records)

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * perPage
	if start >= total {
		return []model.VipRecord{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return records[start:end], total, nil
}

// grantRole adds the external role. Best-effort: a holder who left the
// platform or a permission problem must not fail the record mutation.
func (s *VipService) grantRole(ctx context.Context, holderID string) {
	if err := s.roles.AddRole(ctx, holderID); err != nil {
		slog.Warn("role grant failed", "holder", holderID, "error", err)
	}
}
