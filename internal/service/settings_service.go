package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"empty-jar/internal/domain"
	"empty-jar/internal/repository"

	"github.com/go-playground/validator/v10"
)

// SettingsEvents receives saved settings so other devices can refresh.
type SettingsEvents interface {
	PublishSettingsEvent(userID, deviceID string, settings *domain.Settings) error
}

type SettingsService struct {
	repo     repository.SettingsRepository
	events   SettingsEvents
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

func NewSettingsService(repo repository.SettingsRepository, events SettingsEvents, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{
		repo:     repo,
		events:   events,
		validate: domain.NewValidator(),
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns ErrSettingsNotFound until the account first saves settings;
// clients answer that by saving their defaults.
func (s *SettingsService) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// Replace stores the whole settings row. The reminder marker is owned by the
// server and survives client writes.
func (s *SettingsService) Replace(ctx context.Context, userID, deviceID string, settings *domain.Settings) (*domain.Settings, error) {
	if err := s.validate.Struct(settings); err != nil {
		return nil, &ValidationError{Err: err}
	}

	settings.UserID = userID
	settings.LastReminderSentWeekKey = ""
	existing, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
		settings.LastReminderSentWeekKey = existing.LastReminderSentWeekKey
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	settings.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishSettingsEvent(userID, deviceID, settings); err != nil {
			s.logger.Warn("failed to broadcast settings change", "user", userID, "error", err)
		}
	}
	return settings, nil
}
