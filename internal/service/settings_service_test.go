package service

import (
	"context"
	"errors"
	"testing"

	"empty-jar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_GetMissing(t *testing.T) {
	svc := NewSettingsService(newMockSettingsRepo(), nil, discardLogger())
	_, err := svc.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestSettingsService_ReplaceKeepsReminderMarker(t *testing.T) {
	ctx := context.Background()
	repo := newMockSettingsRepo()
	events := &recordingEvents{}
	svc := NewSettingsService(repo, events, discardLogger())
	svc.now = fixedClock(wednesdayWeek6)

	existing := domain.DefaultSettings()
	existing.UserID = "user-1"
	existing.LastReminderSentWeekKey = "2025-05"
	repo.rows["user-1"] = existing

	in := domain.DefaultSettings()
	in.HideNotes = true
	in.LastReminderSentWeekKey = "1999-01"

	saved, err := svc.Replace(ctx, "user-1", "tablet", &in)
	require.NoError(t, err)
	assert.True(t, saved.HideNotes)
	assert.Equal(t, "2025-05", saved.LastReminderSentWeekKey)
	assert.Equal(t, wednesdayWeek6, saved.UpdatedAt)
	assert.Equal(t, "2025-05", repo.rows["user-1"].LastReminderSentWeekKey)
	assert.Len(t, events.events, 1)
}

func TestSettingsService_ReplaceValidates(t *testing.T) {
	svc := NewSettingsService(newMockSettingsRepo(), nil, discardLogger())

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"reminder day", func(s *domain.Settings) { s.ReminderDay = 7 }},
		{"reminder time", func(s *domain.Settings) { s.ReminderTime = "25:00" }},
		{"theme", func(s *domain.Settings) { s.ThemeMode = "sepia" }},
		{"timezone", func(s *domain.Settings) { s.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.DefaultSettings()
			tt.mutate(&s)
			_, err := svc.Replace(context.Background(), "user-1", "", &s)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}
