package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"
	"empty-jar/internal/localstore"
)

// Identity is a signed-in account as handed over by the auth collaborator.
type Identity struct {
	AccountID    string `yaml:"account_id"`
	Email        string `yaml:"email"`
	Token        string `yaml:"token"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
}

// CloudFactory builds the cloud backend for id. online reports the
// session's connectivity state.
type CloudFactory func(id Identity, online func() bool) backend.Backend

type Deps struct {
	Profile     *localstore.Store
	NewCloud    CloudFactory
	Clock       Clock
	Logger      *slog.Logger
	MaxAttempts int
	// Offline starts the session disconnected.
	Offline bool
}

// Session resolves the backend once for an identity and wires the stores,
// the queue and the guest migration around it.
type Session struct {
	deps      Deps
	identity  *Identity
	backend   backend.Backend
	local     *backend.Local
	queue     *PendingQueue
	notes     *NoteStore
	settings  *SettingsStore
	migration *GuestMigration

	mu                sync.Mutex
	online            bool
	reminderDismissed bool
	prompt            []domain.Note
}

// Open starts a session. A nil identity means guest mode on the local
// backend. For an account, queued changes are replayed first and the guest
// notes, if any are still unmigrated, are offered through MigrationPrompt.
func Open(ctx context.Context, deps Deps, identity *Identity) (*Session, error) {
	if deps.Profile == nil {
		return nil, errors.New("session needs a profile store")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Session{
		deps:   deps,
		local:  backend.NewLocal(deps.Profile),
		online: !deps.Offline,
	}
	s.queue = NewPendingQueue(deps.Profile, deps.MaxAttempts, deps.Logger)

	if identity == nil {
		s.backend = s.local
	} else {
		if deps.NewCloud == nil {
			return nil, errors.New("session needs a cloud factory for signed-in identities")
		}
		id := *identity
		s.identity = &id
		s.backend = deps.NewCloud(id, s.isOnline)
		s.migration = NewGuestMigration(deps.Profile, s.local, s.backend, deps.Logger)
	}

	s.notes = NewNoteStore(s.backend, s.queue, deps.Clock, deps.Logger)
	s.settings = NewSettingsStore(s.backend, s.queue, deps.Clock, deps.Logger)

	if s.identity != nil && s.online {
		if _, err := s.queue.Drain(ctx, s.backend, s.identity.AccountID); err != nil {
			return nil, err
		}
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}

	if s.migration != nil {
		candidates, err := s.migration.Candidates(ctx)
		if err != nil {
			return nil, err
		}
		s.prompt = candidates
	}
	return s, nil
}

// reload refreshes notes and settings. Connectivity failures leave the
// stores on their queued view and are only logged.
func (s *Session) reload(ctx context.Context) error {
	if err := s.notes.Reload(ctx); err != nil {
		if !backend.IsTransient(err) {
			return err
		}
		s.deps.Logger.Warn("notes loaded from pending changes only", "error", err)
	}
	if _, err := s.settings.Load(ctx); err != nil {
		if !backend.IsTransient(err) {
			return err
		}
		s.deps.Logger.Warn("settings loaded from pending changes only", "error", err)
	}
	return nil
}

func (s *Session) isOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Session) Kind() backend.Kind { return s.backend.Kind() }

// Identity returns the signed-in account, or nil for a guest.
func (s *Session) Identity() *Identity {
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

func (s *Session) Notes() *NoteStore { return s.notes }

func (s *Session) Settings() *SettingsStore { return s.settings }

func (s *Session) Queue() *PendingQueue { return s.queue }

// SetOnline records a connectivity change. Going from offline to online
// replays the queue and, after a complete pass, reloads from the cloud.
func (s *Session) SetOnline(ctx context.Context, online bool) (DrainReport, error) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	s.mu.Unlock()

	if wasOnline || !online {
		return DrainReport{}, nil
	}
	return s.Sync(ctx)
}

// Sync replays the queue for the signed-in account. Guests have nothing to
// sync.
func (s *Session) Sync(ctx context.Context) (DrainReport, error) {
	if s.identity == nil {
		return DrainReport{}, nil
	}
	report, err := s.queue.Drain(ctx, s.backend, s.identity.AccountID)
	if err != nil {
		return report, err
	}
	if report.Interrupted != nil {
		s.deps.Logger.Info("sync interrupted", "remaining", report.Remaining, "error", report.Interrupted)
		return report, nil
	}
	if !report.Complete() {
		return report, nil
	}
	return report, s.reload(ctx)
}

// SignIn switches to a session for id.
func (s *Session) SignIn(ctx context.Context, id Identity) (*Session, error) {
	deps := s.deps
	deps.Offline = !s.isOnline()
	return Open(ctx, deps, &id)
}

// SignOut switches to a guest session on the same profile.
func (s *Session) SignOut(ctx context.Context) (*Session, error) {
	deps := s.deps
	deps.Offline = !s.isOnline()
	return Open(ctx, deps, nil)
}

// MigrationPrompt returns the guest notes awaiting a sync decision.
func (s *Session) MigrationPrompt() []domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Note(nil), s.prompt...)
}

// SyncGuestNotes copies the guest notes into the account and reloads.
func (s *Session) SyncGuestNotes(ctx context.Context) (MigrationReport, error) {
	if s.migration == nil {
		return MigrationReport{}, errors.New("sign in to sync guest notes")
	}
	report, err := s.migration.Run(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.prompt = nil
	s.mu.Unlock()

	if err := s.notes.Reload(ctx); err != nil {
		return report, fmt.Errorf("guest notes synced but reload failed: %w", err)
	}
	return report, nil
}

// DismissSyncPrompt declines the migration for good.
func (s *Session) DismissSyncPrompt(ctx context.Context) error {
	if s.migration == nil {
		return nil
	}
	if err := s.migration.Decline(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.prompt = nil
	s.mu.Unlock()
	return nil
}

// ShowReminder reports whether the in-app nudge should be visible.
func (s *Session) ShowReminder() bool {
	s.mu.Lock()
	dismissed := s.reminderDismissed
	s.mu.Unlock()
	if dismissed {
		return false
	}

	settings := s.settings.Get()
	return ShouldRemind(
		time.Weekday(settings.ReminderDay),
		settings.ReminderTime,
		s.deps.Clock(),
		s.notes.HasForWeek(s.notes.CurrentWeekKey()),
	)
}

// DismissReminder hides the nudge for the rest of the session.
func (s *Session) DismissReminder() {
	s.mu.Lock()
	s.reminderDismissed = true
	s.mu.Unlock()
}
