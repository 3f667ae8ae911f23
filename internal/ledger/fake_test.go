package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"
	"empty-jar/internal/localstore"

	"github.com/stretchr/testify/require"
)

// fakeCloud is an in-memory account store with a switchable network.
type fakeCloud struct {
	mu       sync.Mutex
	account  string
	notes    map[string]domain.Note
	settings *domain.Settings
	offline  bool
	// online mirrors a session's connectivity when set.
	online func() bool
	// failWith is returned by every write while set.
	failWith error
	writes   int
	calls    []string
	nextID   int
}

var _ backend.Backend = (*fakeCloud)(nil)

func newFakeCloud(account string) *fakeCloud {
	return &fakeCloud{account: account, notes: make(map[string]domain.Note)}
}

func (f *fakeCloud) Kind() backend.Kind { return backend.KindCloud }

func (f *fakeCloud) AccountID() string { return f.account }

func (f *fakeCloud) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeCloud) check(call string, write bool) error {
	f.calls = append(f.calls, call)
	if f.offline || (f.online != nil && !f.online()) {
		return fmt.Errorf("%s: %w", call, backend.ErrOffline)
	}
	if write {
		if f.failWith != nil {
			return f.failWith
		}
		f.writes++
	}
	return nil
}

func (f *fakeCloud) LoadNotes(ctx context.Context) ([]domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("load", false); err != nil {
		return nil, err
	}
	out := make([]domain.Note, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, n.Clone())
	}
	sortByWeek(out)
	return out, nil
}

func (f *fakeCloud) CreateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("create "+note.WeekKey, true); err != nil {
		return domain.Note{}, err
	}
	if _, ok := f.notes[note.WeekKey]; ok {
		return domain.Note{}, fmt.Errorf("create %s: %w", note.WeekKey, backend.ErrConflict)
	}
	f.nextID++
	note.ID = fmt.Sprintf("srv-%d", f.nextID)
	note.UserID = f.account
	f.notes[note.WeekKey] = note
	return note.Clone(), nil
}

func (f *fakeCloud) UpdateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("update "+note.WeekKey, true); err != nil {
		return domain.Note{}, err
	}
	existing, ok := f.notes[note.WeekKey]
	if !ok {
		return domain.Note{}, fmt.Errorf("update %s: %w", note.WeekKey, backend.ErrNotFound)
	}
	note.ID = existing.ID
	note.UserID = f.account
	f.notes[note.WeekKey] = note
	return note.Clone(), nil
}

func (f *fakeCloud) DeleteNote(ctx context.Context, weekKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("delete "+weekKey, true); err != nil {
		return err
	}
	if _, ok := f.notes[weekKey]; !ok {
		return fmt.Errorf("delete %s: %w", weekKey, backend.ErrNotFound)
	}
	delete(f.notes, weekKey)
	return nil
}

func (f *fakeCloud) LoadSettings(ctx context.Context) (*domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("load settings", false); err != nil {
		return nil, err
	}
	if f.settings == nil {
		return nil, nil
	}
	s := *f.settings
	return &s, nil
}

func (f *fakeCloud) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("save settings", true); err != nil {
		return domain.Settings{}, err
	}
	settings.UserID = f.account
	f.settings = &settings
	return settings, nil
}

func (f *fakeCloud) noteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

func (f *fakeCloud) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openProfile(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "profile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func noteRequest(weekKey, body string) domain.CreateNoteRequest {
	return domain.CreateNoteRequest{
		WeekKey:    weekKey,
		Body:       body,
		Mood:       4,
		MomentType: domain.MomentSmallWin,
		Tags:       []string{"walk"},
	}
}

// monday3Feb2025 falls on the first day of ISO week 2025-06.
var monday3Feb2025 = time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)
