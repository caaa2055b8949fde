package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// SettingDisplayID is the settings key under which the roster display object
// ID is persisted once the object has been created.
const SettingDisplayID = "roster_display_id"

// Defaults for the synchronizer's scheduling discipline. The debounce keeps a
// burst of role changes down to a single display write; the margin pads the
// platform-advised wait after a rate-limit rejection.
const (
	DefaultDebounce      = 700 * time.Millisecond
	DefaultBackoffMargin = 1500 * time.Millisecond
	DefaultMaxEntries    = 60
)

// RosterSyncOptions tune the synchronizer. Zero values fall back to the
// defaults above; Locale falls back to French, matching the roster's
// historical collation.
type RosterSyncOptions struct {
	Debounce      time.Duration
	BackoffMargin time.Duration
	MaxEntries    int
	Locale        string
}

// RosterSync owns the single public roster display. Refresh requests are
// coalesced through a debounce timer, at most one rebuild-and-write is in
// flight at a time, and a rate-limited write blocks further attempts until
// the advised wait (plus margin) has elapsed. A refresh that fires while
// blocked is skipped, never queued: the periodic safety refresh is relied
// upon to catch up, so the synchronizer never retries into a live rate limit.
type RosterSync struct {
	roles    driven.RoleSource
	display  driven.DisplayWriter
	settings driven.SettingStore

	debounce time.Duration
	margin   time.Duration
	maxShow  int
	collator *collate.Collator

	now func() time.Time // injectable clock for tests

	mu           sync.Mutex
	timer        *time.Timer
	inFlight     bool
	blockedUntil time.Time
	displayID    string // cached; loaded from settings on first sync
	idLoaded     bool
}

// NewRosterSync creates a RosterSync. It does not perform any I/O; the
// display object ID is loaded lazily on the first sync.
func NewRosterSync(
	roles driven.RoleSource,
	display driven.DisplayWriter,
	settings driven.SettingStore,
	opts RosterSyncOptions,
) *RosterSync {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.BackoffMargin <= 0 {
		opts.BackoffMargin = DefaultBackoffMargin
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Locale == "" {
		opts.Locale = "fr"
	}

	tag, err := language.Parse(opts.Locale)
	if err != nil {
		slog.Warn("invalid roster locale, falling back to French", "locale", opts.Locale, "error", err)
		tag = language.French
	}

	return &RosterSync{
		roles:    roles,
		display:  display,
		settings: settings,
		debounce: opts.Debounce,
		margin:   opts.BackoffMargin,
		maxShow:  opts.MaxEntries,
		collator: collate.New(tag),
		now:      time.Now,
	}
}

// RequestRefresh schedules a display rebuild after the debounce window.
// Every call resets the window, so any burst of requests collapses into one
// write reflecting the state at the last request's firing time.
func (s *RosterSync) RequestRefresh(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(reason) })
}

// Stop cancels any pending debounced refresh. An in-flight write is not
// cancellable and is left to finish.
func (s *RosterSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire is the debounce timer callback: it performs one rebuild-and-write
// unless the synchronizer is blocked by a rate-limit backoff or a write is
// already in flight.
func (s *RosterSync) fire(reason string) {
	s.mu.Lock()
	if s.now().Before(s.blockedUntil) {
		s.mu.Unlock()
		slog.Debug("roster refresh skipped, rate limit backoff active", "reason", reason)
		return
	}
	if s.inFlight {
		// Defer rather than drop: re-arm the timer so the request is
		// retried after another debounce window.
		s.timer = time.AfterFunc(s.debounce, func() { s.fire(reason) })
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	err := s.syncOnce(context.Background())

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	s.report(reason, err)
}

// ForceSync performs one rebuild-and-write synchronously, bypassing the
// debounce window and any active backoff. A rate-limited result still arms
// the backoff for subsequent scheduled refreshes.
func (s *RosterSync) ForceSync(ctx context.Context) error {
	return s.syncOnce(ctx)
}

// report translates a sync outcome into log output: rate limits note the
// armed backoff, access denial is surfaced loudly, anything else is logged
// and left to the next scheduled refresh.
func (s *RosterSync) report(reason string, err error) {
	if err == nil {
		slog.Info("vip roster updated", "reason", reason)
		return
	}

	var rle *driven.RateLimitedError
	switch {
	case errors.As(err, &rle):
		slog.Warn("roster write rate limited",
			"reason", reason,
			"retry_after", rle.RetryAfter,
		)
	case errors.Is(err, driven.ErrPermissionDenied):
		slog.Error("roster display access denied, check channel permissions", "reason", reason)
	default:
		slog.Error("roster update failed", "reason", reason, "error", err)
	}
}

// syncOnce fetches membership, renders the roster, and edits the display
// object, creating a new one when the remembered ID is stale or absent.
func (s *RosterSync) syncOnce(ctx context.Context) error {
	holders, err := s.roles.ListHolders(ctx)
	if err != nil {
		return fmt.Errorf("list role holders: %w", err)
	}

	sort.SliceStable(holders, func(i, j int) bool {
		if c := s.collator.CompareString(holders[i].DisplayName, holders[j].DisplayName); c != 0 {
			return c < 0
		}
		return holders[i].ID < holders[j].ID
	})

	content := RenderRoster(holders, s.maxShow)

	id, err := s.loadDisplayID(ctx)
	if err != nil {
		return err
	}

	if id != "" {
		err = s.display.Edit(ctx, id, content)
		if err == nil {
			return nil
		}
		if !errors.Is(err, driven.ErrNotFound) {
			return s.checkWriteError(err)
		}
		// The display object was deleted externally; fall through and
		// recreate it under a fresh ID. Self-healing, not an error.
		slog.Warn("roster display object gone, recreating", "stale_id", id)
	}

	newID, err := s.display.Create(ctx, content)
	if err != nil {
		return s.checkWriteError(err)
	}

	s.mu.Lock()
	s.displayID = newID
	s.mu.Unlock()

	if err := s.settings.Set(ctx, SettingDisplayID, newID); err != nil {
		// The write itself succeeded; losing the ID only costs one
		// recreation after a restart.
		slog.Error("persist roster display id failed", "error", err)
	}

	return nil
}

// checkWriteError arms the rate-limit backoff when the write was throttled
// and passes every error through unchanged.
func (s *RosterSync) checkWriteError(err error) error {
	var rle *driven.RateLimitedError
	if errors.As(err, &rle) {
		s.mu.Lock()
		s.blockedUntil = s.now().Add(rle.RetryAfter + s.margin)
		s.mu.Unlock()
	}
	return err
}

// loadDisplayID returns the cached display object ID, loading it from the
// settings store on first use.
func (s *RosterSync) loadDisplayID(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.idLoaded {
		id := s.displayID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	id, err := s.settings.Get(ctx, SettingDisplayID)
	if err != nil {
		return "", fmt.Errorf("load roster display id: %w", err)
	}

	s.mu.Lock()
	s.displayID = id
	s.idLoaded = true
	s.mu.Unlock()

	return id, nil
}

// RenderRoster renders the bounded roster listing: a total line, one bullet
// per holder up to maxShow entries, and an overflow suffix for the rest.
// Zero holders render a total of 0 with an empty body.
func RenderRoster(holders []model.Holder, maxShow int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VIP roster (%d total)\n", len(holders))

	shown := holders
	if maxShow > 0 && len(shown) > maxShow {
		shown = shown[:maxShow]
	}
	for _, h := range shown {
		fmt.Fprintf(&b, "\n• %s", h.DisplayName)
	}
	if extra := len(holders) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n… +%d more", extra)
	}

	return b.String()
}
