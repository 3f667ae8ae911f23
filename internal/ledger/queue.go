package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"
	"empty-jar/internal/localstore"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 5

var errMalformedChange = errors.New("malformed pending change")

type queueDoc struct {
	Pending    []domain.PendingChange `json:"pending"`
	DeadLetter []domain.PendingChange `json:"dead_letter"`
}

// PendingQueue is the durable FIFO of cloud writes that could not reach the
// server. Entries are stored under their own profile key.
type PendingQueue struct {
	mu          sync.Mutex
	store       *localstore.Store
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

func NewPendingQueue(store *localstore.Store, maxAttempts int, logger *slog.Logger) *PendingQueue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingQueue{
		store:       store,
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      logger,
	}
}

func (q *PendingQueue) load(ctx context.Context) (queueDoc, error) {
	var doc queueDoc
	if _, err := q.store.GetJSON(ctx, localstore.KeyPendingSync, &doc); err != nil {
		return queueDoc{}, fmt.Errorf("failed to load pending changes: %w", err)
	}
	return doc, nil
}

func (q *PendingQueue) save(ctx context.Context, doc queueDoc) error {
	if err := q.store.SetJSON(ctx, localstore.KeyPendingSync, doc); err != nil {
		return fmt.Errorf("failed to save pending changes: %w", err)
	}
	return nil
}

// Enqueue records a write of payload for accountID at the tail of the queue.
func (q *PendingQueue) Enqueue(ctx context.Context, accountID string, kind domain.ChangeKind, coll domain.Collection, payload any) (domain.PendingChange, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.PendingChange{}, fmt.Errorf("failed to encode pending change: %w", err)
	}
	change := domain.PendingChange{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Kind:       kind,
		Collection: coll,
		Payload:    data,
		Timestamp:  q.now(),
	}
	return change, q.Append(ctx, change)
}

func (q *PendingQueue) Append(ctx context.Context, change domain.PendingChange) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	doc, err := q.load(ctx)
	if err != nil {
		return err
	}
	doc.Pending = append(doc.Pending, change)
	return q.save(ctx, doc)
}

// Entries returns the pending changes in replay order.
func (q *PendingQueue) Entries(ctx context.Context) ([]domain.PendingChange, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	doc, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Pending, nil
}

// DeadLetters returns the changes that exhausted their attempts.
func (q *PendingQueue) DeadLetters(ctx context.Context) ([]domain.PendingChange, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	doc, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.DeadLetter, nil
}

// Len counts the pending changes queued for accountID.
func (q *PendingQueue) Len(ctx context.Context, accountID string) (int, error) {
	entries, err := q.Entries(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

type DrainReport struct {
	Applied      int
	Benign       int
	Failed       int
	DeadLettered int
	Remaining    int
	// Interrupted is the transient error that stopped the pass, if any.
	Interrupted error
}

// Complete reports whether the pass left nothing behind for the account.
func (r DrainReport) Complete() bool {
	return r.Interrupted == nil && r.Remaining == 0
}

// Drain replays the entries queued for accountID against cloud in FIFO
// order. Each applied entry is removed and the queue persisted before the
// next one is sent. A transient failure stops the pass with the entry still
// at the head. Other failures count an attempt and the pass moves on; an
// entry that reaches the attempt cap is moved to the dead letter list.
func (q *PendingQueue) Drain(ctx context.Context, cloud backend.Backend, accountID string) (DrainReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var report DrainReport
	doc, err := q.load(ctx)
	if err != nil {
		return report, err
	}

	i := 0
loop:
	for i < len(doc.Pending) {
		entry := doc.Pending[i]
		if entry.AccountID != accountID {
			i++
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Interrupted = err
			break
		}

		err := replay(ctx, cloud, entry)
		switch {
		case err == nil:
			report.Applied++
			doc.Pending = slices.Delete(doc.Pending, i, i+1)
		case backend.IsBenignReplay(entry.Kind, err):
			q.logger.Info("pending change already applied",
				"id", entry.ID, "type", entry.Kind, "table", entry.Collection, "error", err)
			report.Benign++
			doc.Pending = slices.Delete(doc.Pending, i, i+1)
		case backend.IsTransient(err):
			report.Interrupted = err
			break loop
		default:
			entry.Attempts++
			entry.LastError = err.Error()
			if entry.Attempts >= q.maxAttempts || errors.Is(err, errMalformedChange) {
				q.logger.Warn("pending change moved to dead letter",
					"id", entry.ID, "attempts", entry.Attempts, "error", err)
				doc.DeadLetter = append(doc.DeadLetter, entry)
				doc.Pending = slices.Delete(doc.Pending, i, i+1)
				report.DeadLettered++
			} else {
				q.logger.Warn("pending change failed",
					"id", entry.ID, "attempts", entry.Attempts, "error", err)
				doc.Pending[i] = entry
				report.Failed++
				i++
			}
		}

		if err := q.save(ctx, doc); err != nil {
			return report, err
		}
	}

	for _, e := range doc.Pending {
		if e.AccountID == accountID {
			report.Remaining++
		}
	}
	return report, nil
}

func replay(ctx context.Context, cloud backend.Backend, entry domain.PendingChange) error {
	switch entry.Collection {
	case domain.CollectionNotes:
		var note domain.Note
		if err := json.Unmarshal(entry.Payload, &note); err != nil {
			return fmt.Errorf("%w: %v", errMalformedChange, err)
		}
		switch entry.Kind {
		case domain.ChangeCreate:
			_, err := cloud.CreateNote(ctx, note)
			return err
		case domain.ChangeUpdate:
			_, err := cloud.UpdateNote(ctx, note)
			return err
		case domain.ChangeDelete:
			return cloud.DeleteNote(ctx, note.WeekKey)
		}
	case domain.CollectionSettings:
		var settings domain.Settings
		if err := json.Unmarshal(entry.Payload, &settings); err != nil {
			return fmt.Errorf("%w: %v", errMalformedChange, err)
		}
		_, err := cloud.SaveSettings(ctx, settings)
		return err
	}
	return fmt.Errorf("%w: %s on %s", errMalformedChange, entry.Kind, entry.Collection)
}

// HasPendingNote reports whether note changes for weekKey are queued for
// accountID.
func (q *PendingQueue) HasPendingNote(ctx context.Context, accountID, weekKey string) (bool, error) {
	return q.hasPending(ctx, accountID, domain.CollectionNotes, func(payload json.RawMessage) bool {
		var target struct {
			WeekKey string `json:"week_key"`
		}
		return json.Unmarshal(payload, &target) == nil && target.WeekKey == weekKey
	})
}

// HasPendingSettings reports whether a settings save is queued for accountID.
func (q *PendingQueue) HasPendingSettings(ctx context.Context, accountID string) (bool, error) {
	return q.hasPending(ctx, accountID, domain.CollectionSettings, nil)
}

func (q *PendingQueue) hasPending(ctx context.Context, accountID string, collection domain.Collection, match func(json.RawMessage) bool) (bool, error) {
	entries, err := q.Entries(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.AccountID != accountID || e.Collection != collection {
			continue
		}
		if match == nil || match(e.Payload) {
			return true, nil
		}
	}
	return false, nil
}

// Overlay applies the note changes queued for accountID on top of notes, so
// a freshly loaded collection still shows writes that have not synced yet.
func (q *PendingQueue) Overlay(ctx context.Context, accountID string, notes []domain.Note) ([]domain.Note, error) {
	entries, err := q.Entries(ctx)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(notes)
	for _, e := range entries {
		if e.AccountID != accountID || e.Collection != domain.CollectionNotes {
			continue
		}
		var note domain.Note
		if err := json.Unmarshal(e.Payload, &note); err != nil {
			continue
		}
		idx := slices.IndexFunc(out, func(n domain.Note) bool { return n.WeekKey == note.WeekKey })
		switch e.Kind {
		case domain.ChangeCreate:
			if idx < 0 {
				out = append(out, note)
			}
		case domain.ChangeUpdate:
			if idx >= 0 {
				out[idx] = note
			}
		case domain.ChangeDelete:
			if idx >= 0 {
				out = slices.Delete(out, idx, idx+1)
			}
		}
	}
	return out, nil
}

// OverlaySettings returns the most recent queued settings write for
// accountID, if there is one.
func (q *PendingQueue) OverlaySettings(ctx context.Context, accountID string) (*domain.Settings, error) {
	entries, err := q.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var latest *domain.Settings
	for _, e := range entries {
		if e.AccountID != accountID || e.Collection != domain.CollectionSettings {
			continue
		}
		var s domain.Settings
		if err := json.Unmarshal(e.Payload, &s); err != nil {
			continue
		}
		latest = &s
	}
	return latest, nil
}
