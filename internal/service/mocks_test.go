package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"empty-jar/internal/domain"
	"empty-jar/internal/email"
	"empty-jar/internal/repository"
	"empty-jar/internal/websocket"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailTaken
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			u := *user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		u := *user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

type mockNoteRepo struct {
	notes map[string]domain.Note
	err   error
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]domain.Note)}
}

func noteKey(userID, weekKey string) string { return userID + "/" + weekKey }

func (m *mockNoteRepo) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	if m.err != nil {
		return nil, m.err
	}
	notes := []domain.Note{}
	for _, n := range m.notes {
		if n.UserID == userID {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (m *mockNoteRepo) FindByWeek(ctx context.Context, userID, weekKey string) (*domain.Note, error) {
	n, ok := m.notes[noteKey(userID, weekKey)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (m *mockNoteRepo) ExistsForWeek(ctx context.Context, userID, weekKey string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.notes[noteKey(userID, weekKey)]
	return ok, nil
}

func (m *mockNoteRepo) Create(ctx context.Context, note *domain.Note) error {
	if _, ok := m.notes[noteKey(note.UserID, note.WeekKey)]; ok {
		return repository.ErrDuplicateWeek
	}
	m.notes[noteKey(note.UserID, note.WeekKey)] = *note
	return nil
}

func (m *mockNoteRepo) Update(ctx context.Context, note *domain.Note) error {
	if _, ok := m.notes[noteKey(note.UserID, note.WeekKey)]; !ok {
		return repository.ErrNotFound
	}
	m.notes[noteKey(note.UserID, note.WeekKey)] = *note
	return nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, userID, weekKey string) error {
	if _, ok := m.notes[noteKey(userID, weekKey)]; !ok {
		return repository.ErrNotFound
	}
	delete(m.notes, noteKey(userID, weekKey))
	return nil
}

type mockSettingsRepo struct {
	rows   map[string]domain.Settings
	marked map[string]string
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{rows: make(map[string]domain.Settings), marked: make(map[string]string)}
}

func (m *mockSettingsRepo) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	s, ok := m.rows[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, s *domain.Settings) error {
	m.rows[s.UserID] = *s
	return nil
}

func (m *mockSettingsRepo) ListEmailEnabled(ctx context.Context) ([]domain.Settings, error) {
	var out []domain.Settings
	for _, s := range m.rows {
		if s.EmailRemindersEnabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSettingsRepo) MarkReminderSent(ctx context.Context, userID, weekKey string) error {
	s, ok := m.rows[userID]
	if !ok {
		return repository.ErrNotFound
	}
	s.LastReminderSentWeekKey = weekKey
	m.rows[userID] = s
	m.marked[userID] = weekKey
	return nil
}

type recordedEvent struct {
	UserID   string
	DeviceID string
	Type     websocket.MessageType
	WeekKey  string
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) PublishNoteEvent(userID, deviceID string, msgType websocket.MessageType, weekKey string, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID, deviceID, msgType, weekKey})
	return nil
}

func (r *recordingEvents) PublishSettingsEvent(userID, deviceID string, settings *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{UserID: userID, DeviceID: deviceID, Type: websocket.TypeSettingsUpdated})
	return nil
}

type fakeSender struct {
	sent []email.Reminder
	err  error
}

func (f *fakeSender) SendReminder(ctx context.Context, r email.Reminder) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, r)
	return nil
}

type fakeLease struct {
	held map[string]bool
}

func (f *fakeLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.held == nil {
		f.held = make(map[string]bool)
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
