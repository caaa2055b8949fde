package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjoubert/viproster/internal/application"
	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockVipStore struct {
	records map[string]model.VipRecord
	upserts int
}

func newMockVipStore(records ...model.VipRecord) *mockVipStore {
	m := &mockVipStore{records: make(map[string]model.VipRecord)}
	for _, rec := range records {
		m.records[rec.HolderID] = rec
	}
	return m
}

func (m *mockVipStore) Get(_ context.Context, holderID string) (*model.VipRecord, error) {
	rec, ok := m.records[holderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockVipStore) Upsert(_ context.Context, rec model.VipRecord) error {
	m.records[rec.HolderID] = rec
	m.upserts++
	return nil
}

func (m *mockVipStore) Delete(_ context.Context, holderID string) error {
	if _, ok := m.records[holderID]; !ok {
		return fmt.Errorf("delete vip record %q: %w", holderID, driven.ErrRecordNotFound)
	}
	delete(m.records, holderID)
	return nil
}

func (m *mockVipStore) ListAll(_ context.Context) ([]model.VipRecord, error) {
	var out []model.VipRecord
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockVipStore) ListExpiring(_ context.Context) ([]model.VipRecord, error) {
	var out []model.VipRecord
	for _, rec := range m.records {
		if !rec.Permanent && rec.ExpiresAt != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockRoleSource struct {
	removed   []string
	added     []string
	removeErr error
}

func (m *mockRoleSource) HasRole(_ context.Context, _ string) (bool, error) { return true, nil }

func (m *mockRoleSource) AddRole(_ context.Context, holderID string) error {
	m.added = append(m.added, holderID)
	return nil
}

func (m *mockRoleSource) RemoveRole(_ context.Context, holderID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, holderID)
	return nil
}

func (m *mockRoleSource) ListHolders(_ context.Context) ([]model.Holder, error) {
	return nil, nil
}

type mockNotifier struct {
	sent []string
}

func (m *mockNotifier) Send(_ context.Context, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

type mockScheduler struct {
	reasons []string
}

func (m *mockScheduler) RequestRefresh(reason string) {
	m.reasons = append(m.reasons, reason)
}

// --- ComputeExpiryTransition ---

func tempRecord(expiresAt time.Time, alerts model.AlertFlags) model.VipRecord {
	return model.VipRecord{
		HolderID:  "holder-1",
		ExpiresAt: &expiresAt,
		Alerts:    alerts,
	}
}

func TestComputeExpiryTransition_Sequence(t *testing.T) {
	grace := 3 * 24 * time.Hour
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := created.AddDate(0, 0, 10)

	steps := []struct {
		name string
		at   time.Time
		want model.EffectKind // "" for no effect
		days int
	}{
		{"8 days remaining, nothing due", created.AddDate(0, 0, 2), "", 0},
		{"7 days remaining fires 7d reminder", created.AddDate(0, 0, 3), model.EffectReminderDue, 7},
		{"3 days remaining fires 3d reminder", created.AddDate(0, 0, 7), model.EffectReminderDue, 3},
		{"1 day remaining fires 1d reminder", created.AddDate(0, 0, 9), model.EffectReminderDue, 1},
		{"expiry starts grace window", expiresAt, model.EffectGraceStarted, 0},
		{"inside grace window, nothing due", expiresAt.Add(time.Hour), "", 0},
		{"grace elapsed fires revocation", expiresAt.Add(grace + time.Hour), model.EffectRevoked, 0},
		{"terminal state stays silent", expiresAt.Add(grace + 48*time.Hour), "", 0},
	}

	rec := tempRecord(expiresAt, 0)
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			flags, effect := application.ComputeExpiryTransition(rec, step.at, grace)
			if step.want == "" {
				assert.Nil(t, effect)
			} else {
				require.NotNil(t, effect)
				assert.Equal(t, step.want, effect.Kind)
				assert.Equal(t, step.days, effect.DaysRemaining)
				assert.Equal(t, expiresAt, effect.ExpiresAt)
			}
			rec.Alerts = flags
		})
	}
}

func TestComputeExpiryTransition_OneEffectPerCall(t *testing.T) {
	grace := 3 * 24 * time.Hour
	expiresAt := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

	t.Run("long gap before expiry fires only the lowest due reminder", func(t *testing.T) {
		// First check ever happens with 1 day remaining: the 7d and 3d
		// windows have passed, only the 1d reminder may fire.
		now := expiresAt.Add(-20 * time.Hour)
		flags, effect := application.ComputeExpiryTransition(tempRecord(expiresAt, 0), now, grace)
		require.NotNil(t, effect)
		assert.Equal(t, model.EffectReminderDue, effect.Kind)
		assert.Equal(t, 1, effect.DaysRemaining)
		assert.False(t, flags.Has(model.AlertReminder7d))
		assert.False(t, flags.Has(model.AlertReminder3d))
	})

	t.Run("long gap past grace fires only revocation", func(t *testing.T) {
		now := expiresAt.Add(grace + 10*24*time.Hour)
		flags, effect := application.ComputeExpiryTransition(tempRecord(expiresAt, 0), now, grace)
		require.NotNil(t, effect)
		assert.Equal(t, model.EffectRevoked, effect.Kind)
		assert.True(t, flags.Has(model.AlertRevoked))

		// Re-running with the updated flags yields nothing.
		_, effect = application.ComputeExpiryTransition(tempRecord(expiresAt, flags), now, grace)
		assert.Nil(t, effect)
	})
}

func TestComputeExpiryTransition_SkipsPermanentAndUnassigned(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("permanent record never transitions", func(t *testing.T) {
		past := now.AddDate(0, 0, -30)
		rec := model.VipRecord{HolderID: "perm", Permanent: true, ExpiresAt: &past}
		_, effect := application.ComputeExpiryTransition(rec, now, time.Hour)
		assert.Nil(t, effect)
	})

	t.Run("record without expiry never transitions", func(t *testing.T) {
		rec := model.VipRecord{HolderID: "fresh"}
		_, effect := application.ComputeExpiryTransition(rec, now, time.Hour)
		assert.Nil(t, effect)
	})
}

func TestComputeExpiryTransition_ThresholdBoundaries(t *testing.T) {
	grace := 3 * 24 * time.Hour
	expiresAt := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	t.Run("just over 7 days remaining stays silent", func(t *testing.T) {
		now := expiresAt.Add(-7*24*time.Hour - time.Minute)
		_, effect := application.ComputeExpiryTransition(tempRecord(expiresAt, 0), now, grace)
		assert.Nil(t, effect)
	})

	t.Run("4 days remaining still belongs to the 7d window", func(t *testing.T) {
		now := expiresAt.Add(-4 * 24 * time.Hour)
		_, effect := application.ComputeExpiryTransition(tempRecord(expiresAt, 0), now, grace)
		require.NotNil(t, effect)
		assert.Equal(t, 7, effect.DaysRemaining)
	})

	t.Run("exact expiry instant starts grace, not a reminder", func(t *testing.T) {
		_, effect := application.ComputeExpiryTransition(tempRecord(expiresAt, 0), expiresAt, grace)
		require.NotNil(t, effect)
		assert.Equal(t, model.EffectGraceStarted, effect.Kind)
	})

	t.Run("exact grace boundary revokes", func(t *testing.T) {
		now := expiresAt.Add(grace)
		_, effect := application.ComputeExpiryTransition(tempRecord(expiresAt, 0), now, grace)
		require.NotNil(t, effect)
		assert.Equal(t, model.EffectRevoked, effect.Kind)
	})
}

// --- Advance ---

func TestAdvance_RevokesOnceAndRemovesRole(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newMockVipStore(tempRecord(expiresAt, 0))
	roles := &mockRoleSource{}
	notifier := &mockNotifier{}
	scheduler := &mockScheduler{}
	svc := application.NewExpiryService(store, roles, notifier, scheduler, 0)

	now := expiresAt.AddDate(0, 0, 4)
	effects, err := svc.Advance(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, model.EffectRevoked, effects[0].Kind)
	assert.Equal(t, []string{"holder-1"}, roles.removed)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"expiry check"}, scheduler.reasons)

	// Repeated passes are idempotent: the flag persisted, nothing re-fires.
	for i := 0; i < 3; i++ {
		effects, err = svc.Advance(context.Background(), now.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, effects)
	}
	assert.Len(t, roles.removed, 1)
	assert.Len(t, notifier.sent, 1)
}

func TestAdvance_RoleRemovalFailureDoesNotBlockPass(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	other := expiresAt.AddDate(0, 0, 1)
	rec2 := model.VipRecord{HolderID: "holder-2", ExpiresAt: &other}

	store := newMockVipStore(tempRecord(expiresAt, 0), rec2)
	roles := &mockRoleSource{removeErr: driven.ErrPermissionDenied}
	notifier := &mockNotifier{}
	svc := application.NewExpiryService(store, roles, notifier, &mockScheduler{}, 0)

	now := expiresAt.AddDate(0, 0, 10)
	effects, err := svc.Advance(context.Background(), now)
	require.NoError(t, err)

	// Both records revoke despite the role source failing; the degraded
	// notification is sent for each.
	assert.Len(t, effects, 2)
	assert.Len(t, notifier.sent, 2)
	for _, rec := range store.records {
		assert.True(t, rec.Alerts.Has(model.AlertRevoked))
	}
}

func TestAdvance_NoEffectsSchedulesNoRefresh(t *testing.T) {
	expiresAt := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	store := newMockVipStore(tempRecord(expiresAt, 0))
	scheduler := &mockScheduler{}
	svc := application.NewExpiryService(store, &mockRoleSource{}, &mockNotifier{}, scheduler, 0)

	// 10+ days out: no threshold reached.
	effects, err := svc.Advance(context.Background(), expiresAt.AddDate(0, 0, -12))
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Empty(t, scheduler.reasons)
	assert.Zero(t, store.upserts)
}

func TestAdvance_PersistsFlagsPerRecord(t *testing.T) {
	expiresAt := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := newMockVipStore(tempRecord(expiresAt, 0))
	svc := application.NewExpiryService(store, &mockRoleSource{}, &mockNotifier{}, &mockScheduler{}, 0)

	now := expiresAt.Add(-2 * 24 * time.Hour)
	effects, err := svc.Advance(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, 1, store.upserts)

	stored := store.records["holder-1"]
	assert.True(t, stored.Alerts.Has(model.AlertReminder3d))
	assert.Equal(t, now, stored.UpdatedAt)
}
