package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"
	"empty-jar/internal/localstore"
)

type MigrationReport struct {
	Copied  int
	Skipped int
	// AlreadyMigrated is set when the profile flag was found and nothing ran.
	AlreadyMigrated bool
}

// GuestMigration copies a guest profile's notes into an account once. The
// migrated flag lives under its own key so purging guest notes afterwards
// never re-arms it.
type GuestMigration struct {
	profile *localstore.Store
	local   *backend.Local
	cloud   backend.Backend
	logger  *slog.Logger
}

func NewGuestMigration(profile *localstore.Store, local *backend.Local, cloud backend.Backend, logger *slog.Logger) *GuestMigration {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuestMigration{
		profile: profile,
		local:   local,
		cloud:   cloud,
		logger:  logger,
	}
}

func (m *GuestMigration) Migrated(ctx context.Context) (bool, error) {
	var migrated bool
	if _, err := m.profile.GetJSON(ctx, localstore.KeyGuestMigrated, &migrated); err != nil {
		return false, fmt.Errorf("failed to read migration flag: %w", err)
	}
	return migrated, nil
}

func (m *GuestMigration) markMigrated(ctx context.Context) error {
	if err := m.profile.SetJSON(ctx, localstore.KeyGuestMigrated, true); err != nil {
		return fmt.Errorf("failed to set migration flag: %w", err)
	}
	return nil
}

// Candidates returns the guest notes waiting to be copied, or nothing once
// the profile has been migrated or declined.
func (m *GuestMigration) Candidates(ctx context.Context) ([]domain.Note, error) {
	migrated, err := m.Migrated(ctx)
	if err != nil || migrated {
		return nil, err
	}
	notes, err := m.local.LoadNotes(ctx)
	if err != nil {
		return nil, err
	}
	sortByWeek(notes)
	return notes, nil
}

// Run copies every guest note into the cloud. Notes whose week already
// exists in the account are skipped. Any other failure stops the run with
// the flag unset so it can be resumed. On success the flag is set and the
// guest notes and settings are purged.
func (m *GuestMigration) Run(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	migrated, err := m.Migrated(ctx)
	if err != nil {
		return report, err
	}
	if migrated {
		report.AlreadyMigrated = true
		return report, nil
	}

	notes, err := m.local.LoadNotes(ctx)
	if err != nil {
		return report, err
	}
	sortByWeek(notes)

	for _, note := range notes {
		_, err := m.cloud.CreateNote(ctx, note)
		switch {
		case err == nil:
			report.Copied++
		case errors.Is(err, backend.ErrConflict):
			m.logger.Info("guest note already in account", "week", note.WeekKey)
			report.Skipped++
		default:
			return report, fmt.Errorf("migration stopped at week %s: %w", note.WeekKey, err)
		}
	}

	if err := m.markMigrated(ctx); err != nil {
		return report, err
	}
	if err := m.local.Purge(ctx); err != nil {
		return report, fmt.Errorf("failed to purge guest data: %w", err)
	}
	m.logger.Info("guest notes migrated", "copied", report.Copied, "skipped", report.Skipped)
	return report, nil
}

// Decline abandons the guest notes. They stay on the device but are never
// offered again.
func (m *GuestMigration) Decline(ctx context.Context) error {
	return m.markMigrated(ctx)
}
