// Package ledger enforces the one-note-per-week rules on top of a backend
// and keeps the in-memory view consistent with queued offline writes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"
	"empty-jar/internal/weekkey"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// LocalIDPrefix tags ids assigned to notes that have not reached the cloud.
const LocalIDPrefix = "local-"

// Clock returns the current time in the user's location.
type Clock func() time.Time

// IsLocalID reports whether id was assigned during an offline commit.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

type NoteStore struct {
	mu        sync.RWMutex
	backend   backend.Backend
	queue     *PendingQueue
	accountID string
	validate  *validator.Validate
	now       Clock
	logger    *slog.Logger
	notes     []domain.Note
}

// NewNoteStore builds a store over b. queue may be nil, in which case
// transient failures are rejected instead of queued.
func NewNoteStore(b backend.Backend, queue *PendingQueue, now Clock, logger *slog.Logger) *NoteStore {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteStore{
		backend:   b,
		queue:     queue,
		accountID: accountOf(b),
		validate:  domain.NewValidator(),
		now:       now,
		logger:    logger,
	}
}

func accountOf(b backend.Backend) string {
	if a, ok := b.(interface{ AccountID() string }); ok {
		return a.AccountID()
	}
	return ""
}

// Reload replaces the in-memory collection with the backend's, with any
// queued writes for this account applied on top. If the cloud is
// unreachable the current collection is kept, the queue is still applied,
// and the transient error is returned.
func (s *NoteStore) Reload(ctx context.Context) error {
	notes, loadErr := s.backend.LoadNotes(ctx)
	if loadErr != nil && !s.canQueue(loadErr) {
		return fmt.Errorf("failed to load notes: %w", loadErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if loadErr != nil {
		notes = s.notes
	}
	if s.queue != nil && s.backend.Kind() == backend.KindCloud {
		overlaid, err := s.queue.Overlay(ctx, s.accountID, notes)
		if err != nil {
			return err
		}
		notes = overlaid
	}
	s.notes = notes

	if loadErr != nil {
		return fmt.Errorf("failed to load notes: %w", loadErr)
	}
	return nil
}

func (s *NoteStore) CurrentWeekKey() string {
	return weekkey.Of(s.now())
}

// CanEdit reports whether notes for weekKey are still editable.
func (s *NoteStore) CanEdit(weekKey string) bool {
	return weekKey == s.CurrentWeekKey()
}

func (s *NoteStore) indexOfWeek(weekKey string) int {
	return slices.IndexFunc(s.notes, func(n domain.Note) bool { return n.WeekKey == weekKey })
}

func (s *NoteStore) indexOfID(id string) int {
	return slices.IndexFunc(s.notes, func(n domain.Note) bool { return n.ID == id })
}

func (s *NoteStore) GetForWeek(weekKey string) (domain.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOfWeek(weekKey); i >= 0 {
		return s.notes[i].Clone(), true
	}
	return domain.Note{}, false
}

func (s *NoteStore) HasForWeek(weekKey string) bool {
	_, ok := s.GetForWeek(weekKey)
	return ok
}

func (s *NoteStore) Get(id string) (domain.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOfID(id); i >= 0 {
		return s.notes[i].Clone(), true
	}
	return domain.Note{}, false
}

func (s *NoteStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// CanReplay reports whether enough notes exist to unlock the year replay.
func (s *NoteStore) CanReplay() bool {
	return s.Count() >= domain.ReplayThreshold
}

// Sorted returns a copy of every note ordered by week key.
func (s *NoteStore) Sorted() []domain.Note {
	s.mu.RLock()
	out := make([]domain.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.Clone())
	}
	s.mu.RUnlock()

	sortByWeek(out)
	return out
}

func sortByWeek(notes []domain.Note) {
	slices.SortFunc(notes, func(a, b domain.Note) int {
		return strings.Compare(a.WeekKey, b.WeekKey)
	})
}

// Weeks returns the timeline for year against the current collection.
func (s *NoteStore) Weeks(year int) []domain.WeekInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WeeksOf(year, s.notes, s.now())
}

// WeeksOf lays out every ISO week of year, 52 or 53 entries, flagging the
// weeks that hold a note and where each sits relative to now.
func WeeksOf(year int, notes []domain.Note, now time.Time) []domain.WeekInfo {
	current := weekkey.Of(now)
	byWeek := make(map[string]domain.Note, len(notes))
	for _, n := range notes {
		byWeek[n.WeekKey] = n
	}

	count := weekkey.WeeksInYear(year)
	weeks := make([]domain.WeekInfo, 0, count)
	for w := 1; w <= count; w++ {
		key := weekkey.Format(year, w)
		start := weekkey.WeekStart(w, year, now.Location())
		info := domain.WeekInfo{
			WeekKey:    key,
			WeekNumber: w,
			Year:       year,
			StartDate:  start,
			EndDate:    weekkey.WeekEnd(start),
			IsCurrent:  key == current,
			IsPast:     key < current,
			IsFuture:   key > current,
		}
		if n, ok := byWeek[key]; ok {
			n = n.Clone()
			info.HasNote = true
			info.Note = &n
		}
		weeks = append(weeks, info)
	}
	return weeks
}

// Add creates the note for req.WeekKey. A week that already holds a note is
// rejected with ErrDuplicateWeek. When the backend is unreachable the note is
// kept in memory under a local id and the create is queued.
func (s *NoteStore) Add(ctx context.Context, req domain.CreateNoteRequest) (Result, error) {
	if err := weekkey.Validate(req.WeekKey); err != nil {
		return rejected(err)
	}
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return rejected(&ValidationError{Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if thisWeek := weekkey.Of(now); req.WeekKey > thisWeek {
		return rejected(fmt.Errorf("week %s, current week %s: %w", req.WeekKey, thisWeek, ErrFutureWeek))
	}
	if s.indexOfWeek(req.WeekKey) >= 0 {
		return rejected(fmt.Errorf("week %s: %w", req.WeekKey, ErrDuplicateWeek))
	}

	note := domain.Note{
		ID:         uuid.NewString(),
		WeekKey:    req.WeekKey,
		Title:      req.Title,
		Body:       req.Body,
		Mood:       req.Mood,
		MomentType: req.MomentType,
		Tags:       req.Tags,
		IsBackfill: req.WeekKey < weekkey.Of(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.writeThrough(ctx, note.WeekKey, func() error {
		saved, err := s.backend.CreateNote(ctx, note)
		if err == nil {
			note = saved
		}
		return err
	})
	switch {
	case err == nil:
		s.notes = append(s.notes, note)
		return committedNote(note), nil
	case errors.Is(err, backend.ErrConflict):
		return rejected(fmt.Errorf("week %s: %w", req.WeekKey, ErrDuplicateWeek))
	case s.canQueue(err):
		note.ID = LocalIDPrefix + uuid.NewString()
		if qerr := s.enqueue(ctx, domain.ChangeCreate, note, err); qerr != nil {
			return rejected(qerr)
		}
		s.notes = append(s.notes, note)
		return queuedNote(note), nil
	default:
		return rejected(err)
	}
}

// Update applies patch to the note with id. Only notes of the current week
// can be edited.
func (s *NoteStore) Update(ctx context.Context, id string, patch domain.UpdateNoteRequest) (Result, error) {
	patch.Normalize()
	if err := s.validate.Struct(patch); err != nil {
		return rejected(&ValidationError{Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfID(id)
	if i < 0 {
		return rejected(fmt.Errorf("note %s: %w", id, ErrNoteNotFound))
	}
	current := s.notes[i]
	now := s.now()
	if thisWeek := weekkey.Of(now); current.WeekKey != thisWeek {
		return rejected(fmt.Errorf("note for %s, current week %s: %w", current.WeekKey, thisWeek, ErrEditWindow))
	}

	updated := current.Clone()
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Body != nil {
		updated.Body = *patch.Body
	}
	if patch.Mood != nil {
		updated.Mood = *patch.Mood
	}
	if patch.MomentType != nil {
		updated.MomentType = *patch.MomentType
	}
	if patch.Tags != nil {
		updated.Tags = domain.NormalizeTags(*patch.Tags)
	}
	updated.UpdatedAt = now

	err := s.writeThrough(ctx, updated.WeekKey, func() error {
		saved, err := s.backend.UpdateNote(ctx, updated)
		if err == nil {
			updated = saved
		}
		return err
	})
	switch {
	case err == nil:
		s.notes[i] = updated
		return committedNote(updated), nil
	case errors.Is(err, backend.ErrNotFound):
		return rejected(fmt.Errorf("note %s: %w", id, ErrNoteNotFound))
	case s.canQueue(err):
		if qerr := s.enqueue(ctx, domain.ChangeUpdate, updated, err); qerr != nil {
			return rejected(qerr)
		}
		s.notes[i] = updated
		return queuedNote(updated), nil
	default:
		return rejected(err)
	}
}

// Delete removes the note with id regardless of its week.
func (s *NoteStore) Delete(ctx context.Context, id string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfID(id)
	if i < 0 {
		return rejected(fmt.Errorf("note %s: %w", id, ErrNoteNotFound))
	}
	note := s.notes[i]

	err := s.writeThrough(ctx, note.WeekKey, func() error {
		return s.backend.DeleteNote(ctx, note.WeekKey)
	})
	switch {
	case err == nil || errors.Is(err, backend.ErrNotFound):
		s.notes = slices.Delete(s.notes, i, i+1)
		return committedNote(note), nil
	case s.canQueue(err):
		if qerr := s.enqueue(ctx, domain.ChangeDelete, note, err); qerr != nil {
			return rejected(qerr)
		}
		s.notes = slices.Delete(s.notes, i, i+1)
		return queuedNote(note), nil
	default:
		return rejected(err)
	}
}

func (s *NoteStore) canQueue(err error) bool {
	return s.queue != nil && backend.IsTransient(err)
}

// writeThrough runs write against the backend unless earlier changes for
// weekKey are still queued. Those must replay first, so the write is
// reported as ErrPendingChanges and joins the queue behind them.
func (s *NoteStore) writeThrough(ctx context.Context, weekKey string, write func() error) error {
	if s.queue != nil && s.backend.Kind() == backend.KindCloud {
		pending, err := s.queue.HasPendingNote(ctx, s.accountID, weekKey)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("week %s: %w", weekKey, backend.ErrPendingChanges)
		}
	}
	return write()
}

func (s *NoteStore) enqueue(ctx context.Context, kind domain.ChangeKind, note domain.Note, cause error) error {
	if _, err := s.queue.Enqueue(ctx, s.accountID, kind, domain.CollectionNotes, note); err != nil {
		return err
	}
	s.logger.Info("note change queued for sync", "type", kind, "week", note.WeekKey, "id", note.ID, "error", cause)
	return nil
}
