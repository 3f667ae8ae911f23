package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"

	"github.com/go-playground/validator/v10"
)

// SettingsStore holds the single settings row of the active account or
// guest profile.
type SettingsStore struct {
	mu        sync.RWMutex
	backend   backend.Backend
	queue     *PendingQueue
	accountID string
	validate  *validator.Validate
	now       Clock
	logger    *slog.Logger
	settings  domain.Settings
}

func NewSettingsStore(b backend.Backend, queue *PendingQueue, now Clock, logger *slog.Logger) *SettingsStore {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		backend:   b,
		queue:     queue,
		accountID: accountOf(b),
		validate:  domain.NewValidator(),
		now:       now,
		logger:    logger,
		settings:  domain.DefaultSettings(),
	}
}

// Load reads the stored settings. The first load of a profile or account
// writes the defaults. When the cloud is unreachable the last queued write,
// or the current value, is kept and the transient error is returned.
func (s *SettingsStore) Load(ctx context.Context) (domain.Settings, error) {
	stored, loadErr := s.backend.LoadSettings(ctx)
	if loadErr != nil && !s.canQueue(loadErr) {
		return domain.Settings{}, fmt.Errorf("failed to load settings: %w", loadErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if loadErr == nil && stored == nil {
		defaults := domain.DefaultSettings()
		defaults.UpdatedAt = s.now()
		if _, err := s.persist(ctx, domain.ChangeCreate, defaults); err != nil {
			return domain.Settings{}, err
		}
		return s.settings, nil
	}

	if s.queue != nil && s.backend.Kind() == backend.KindCloud {
		queued, err := s.queue.OverlaySettings(ctx, s.accountID)
		if err != nil {
			return domain.Settings{}, err
		}
		if queued != nil {
			stored = queued
		}
	}
	if stored != nil {
		s.settings = *stored
	}
	if loadErr != nil {
		return s.settings, fmt.Errorf("failed to load settings: %w", loadErr)
	}
	return s.settings, nil
}

func (s *SettingsStore) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update merges patch into the current settings and persists the result.
func (s *SettingsStore) Update(ctx context.Context, patch domain.UpdateSettingsRequest) (Result, error) {
	if err := s.validate.Struct(patch); err != nil {
		return rejected(&ValidationError{Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	patch.Apply(&next)
	next.UpdatedAt = s.now()
	if err := s.validate.Struct(next); err != nil {
		return rejected(&ValidationError{Err: err})
	}

	status, err := s.persist(ctx, domain.ChangeUpdate, next)
	if err != nil {
		return rejected(err)
	}
	saved := s.settings
	return Result{Status: status, Settings: &saved}, nil
}

// persist writes next through the backend or queues it. A save queued
// earlier must replay first, so while one is pending next is queued too.
// Callers hold mu.
func (s *SettingsStore) persist(ctx context.Context, kind domain.ChangeKind, next domain.Settings) (Status, error) {
	saved, err := s.saveThrough(ctx, next)
	switch {
	case err == nil:
		s.settings = saved
		return Committed, nil
	case s.canQueue(err):
		if _, qerr := s.queue.Enqueue(ctx, s.accountID, kind, domain.CollectionSettings, next); qerr != nil {
			return Rejected, qerr
		}
		s.logger.Info("settings queued for sync", "error", err)
		s.settings = next
		return Queued, nil
	default:
		return Rejected, fmt.Errorf("failed to save settings: %w", err)
	}
}

func (s *SettingsStore) saveThrough(ctx context.Context, next domain.Settings) (domain.Settings, error) {
	if s.queue != nil && s.backend.Kind() == backend.KindCloud {
		pending, err := s.queue.HasPendingSettings(ctx, s.accountID)
		if err != nil {
			return domain.Settings{}, err
		}
		if pending {
			return domain.Settings{}, fmt.Errorf("settings: %w", backend.ErrPendingChanges)
		}
	}
	return s.backend.SaveSettings(ctx, next)
}

func (s *SettingsStore) canQueue(err error) bool {
	return s.queue != nil && backend.IsTransient(err)
}
