package repository

import (
	"context"
	"fmt"

	"empty-jar/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type settingsDoc struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Settings
}

type settingsRepository struct {
	db *kivik.DB
}

func NewSettingsRepository(client *kivik.Client, dbName string) SettingsRepository {
	return &settingsRepository{db: client.DB(dbName)}
}

func (r *settingsRepository) get(ctx context.Context, userID string) (*settingsDoc, error) {
	var doc settingsDoc
	if err := r.db.Get(ctx, settingsDocID(userID)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &doc, nil
}

func (r *settingsRepository) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	doc, err := r.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings := doc.Settings
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.Settings) error {
	doc := settingsDoc{
		ID:       settingsDocID(settings.UserID),
		DocType:  docTypeSettings,
		Settings: *settings,
	}

	existing, err := r.get(ctx, settings.UserID)
	switch {
	case err == nil:
		doc.Rev = existing.Rev
	case err != ErrNotFound:
		return err
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (r *settingsRepository) ListEmailEnabled(ctx context.Context) ([]domain.Settings, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type":                docTypeSettings,
			"email_reminders_enabled": true,
		},
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reminder settings: %w", err)
	}
	defer rows.Close()

	var out []domain.Settings
	for rows.Next() {
		var doc settingsDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		out = append(out, doc.Settings)
	}
	return out, rows.Err()
}

func (r *settingsRepository) MarkReminderSent(ctx context.Context, userID, weekKey string) error {
	doc, err := r.get(ctx, userID)
	if err != nil {
		return err
	}
	doc.LastReminderSentWeekKey = weekKey
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
