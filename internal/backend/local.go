package backend

import (
	"context"
	"fmt"
	"sync"

	"empty-jar/internal/domain"
	"empty-jar/internal/localstore"
)

// Local persists guest notes and settings as JSON documents in the device
// profile. It enforces week uniqueness itself.
type Local struct {
	mu    sync.Mutex
	store *localstore.Store
}

var _ Backend = (*Local)(nil)

func NewLocal(store *localstore.Store) *Local {
	return &Local{store: store}
}

func (l *Local) Kind() Kind { return KindLocal }

func (l *Local) LoadNotes(ctx context.Context) ([]domain.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readNotes(ctx)
}

func (l *Local) readNotes(ctx context.Context) ([]domain.Note, error) {
	var notes []domain.Note
	if _, err := l.store.GetJSON(ctx, localstore.KeyNotes, &notes); err != nil {
		return nil, fmt.Errorf("failed to load local notes: %w", err)
	}
	return notes, nil
}

func (l *Local) CreateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	notes, err := l.readNotes(ctx)
	if err != nil {
		return domain.Note{}, err
	}
	for _, n := range notes {
		if n.WeekKey == note.WeekKey {
			return domain.Note{}, fmt.Errorf("week %s: %w", note.WeekKey, ErrConflict)
		}
	}

	notes = append(notes, note)
	if err := l.store.SetJSON(ctx, localstore.KeyNotes, notes); err != nil {
		return domain.Note{}, fmt.Errorf("failed to save local notes: %w", err)
	}
	return note, nil
}

func (l *Local) UpdateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	notes, err := l.readNotes(ctx)
	if err != nil {
		return domain.Note{}, err
	}
	for i := range notes {
		if notes[i].WeekKey == note.WeekKey {
			notes[i] = note
			if err := l.store.SetJSON(ctx, localstore.KeyNotes, notes); err != nil {
				return domain.Note{}, fmt.Errorf("failed to save local notes: %w", err)
			}
			return note, nil
		}
	}
	return domain.Note{}, fmt.Errorf("week %s: %w", note.WeekKey, ErrNotFound)
}

func (l *Local) DeleteNote(ctx context.Context, weekKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	notes, err := l.readNotes(ctx)
	if err != nil {
		return err
	}
	kept := notes[:0]
	found := false
	for _, n := range notes {
		if n.WeekKey == weekKey {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return fmt.Errorf("week %s: %w", weekKey, ErrNotFound)
	}
	if err := l.store.SetJSON(ctx, localstore.KeyNotes, kept); err != nil {
		return fmt.Errorf("failed to save local notes: %w", err)
	}
	return nil
}

func (l *Local) LoadSettings(ctx context.Context) (*domain.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := domain.DefaultSettings()
	ok, err := l.store.GetJSON(ctx, localstore.KeySettings, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to load local settings: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (l *Local) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.SetJSON(ctx, localstore.KeySettings, settings); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to save local settings: %w", err)
	}
	return settings, nil
}

// Purge removes guest notes and settings. The migration flag and the queue
// live under other keys and are left alone.
func (l *Local) Purge(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, localstore.KeyNotes); err != nil {
		return err
	}
	return l.store.Delete(ctx, localstore.KeySettings)
}
