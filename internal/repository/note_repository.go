package repository

import (
	"context"
	"fmt"

	"empty-jar/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type noteDoc struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Note
}

type noteRepository struct {
	db *kivik.DB
}

func NewNoteRepository(client *kivik.Client, dbName string) NoteRepository {
	return &noteRepository{db: client.DB(dbName)}
}

func (r *noteRepository) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": docTypeNote,
			"user_id":  userID,
		},
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		var doc noteDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, doc.Note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	sortNotes(notes)
	return notes, nil
}

func (r *noteRepository) get(ctx context.Context, userID, weekKey string) (*noteDoc, error) {
	var doc noteDoc
	if err := r.db.Get(ctx, noteDocID(userID, weekKey)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return &doc, nil
}

func (r *noteRepository) FindByWeek(ctx context.Context, userID, weekKey string) (*domain.Note, error) {
	doc, err := r.get(ctx, userID, weekKey)
	if err != nil {
		return nil, err
	}
	note := doc.Note
	return &note, nil
}

func (r *noteRepository) ExistsForWeek(ctx context.Context, userID, weekKey string) (bool, error) {
	_, err := r.get(ctx, userID, weekKey)
	switch {
	case err == nil:
		return true, nil
	case err == ErrNotFound:
		return false, nil
	}
	return false, err
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	doc := noteDoc{
		ID:      noteDocID(note.UserID, note.WeekKey),
		DocType: docTypeNote,
		Note:    *note,
	}
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if isConflict(err) {
			return ErrDuplicateWeek
		}
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (r *noteRepository) Update(ctx context.Context, note *domain.Note) error {
	existing, err := r.get(ctx, note.UserID, note.WeekKey)
	if err != nil {
		return err
	}

	doc := noteDoc{
		ID:      existing.ID,
		Rev:     existing.Rev,
		DocType: docTypeNote,
		Note:    *note,
	}
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, userID, weekKey string) error {
	existing, err := r.get(ctx, userID, weekKey)
	if err != nil {
		return err
	}
	if _, err := r.db.Delete(ctx, existing.ID, existing.Rev); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}
