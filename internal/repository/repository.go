// Package repository stores accounts, notes and settings for the sync server.
// Two drivers implement the same interfaces: CouchDB through kivik and
// Postgres through pgx. Both enforce one note per user per week at the
// storage layer.
package repository

import (
	"context"
	"errors"
	"slices"

	"empty-jar/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateWeek = errors.New("a note already exists for this week")
	ErrEmailTaken    = errors.New("email already registered")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type NoteRepository interface {
	// ListByUser returns the user's notes ordered by week key.
	ListByUser(ctx context.Context, userID string) ([]domain.Note, error)
	FindByWeek(ctx context.Context, userID, weekKey string) (*domain.Note, error)
	ExistsForWeek(ctx context.Context, userID, weekKey string) (bool, error)
	Create(ctx context.Context, note *domain.Note) error
	Update(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, userID, weekKey string) error
}

type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*domain.Settings, error)
	Upsert(ctx context.Context, settings *domain.Settings) error
	ListEmailEnabled(ctx context.Context) ([]domain.Settings, error)
	MarkReminderSent(ctx context.Context, userID, weekKey string) error
}

// Repositories bundles one driver's implementations.
type Repositories struct {
	Users    UserRepository
	Notes    NoteRepository
	Settings SettingsRepository
	ping     func(ctx context.Context) error
	close    func() error
}

// Ping checks that the backing database answers.
func (r *Repositories) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func sortNotes(notes []domain.Note) {
	slices.SortFunc(notes, func(a, b domain.Note) int {
		switch {
		case a.WeekKey < b.WeekKey:
			return -1
		case a.WeekKey > b.WeekKey:
			return 1
		}
		return 0
	})
}
