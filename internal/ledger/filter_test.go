package ledger

import (
	"context"
	"testing"

	"empty-jar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteStore_Filter(t *testing.T) {
	ctx := context.Background()
	s := newLocalNoteStore(t, newTestClock(monday3Feb2025))

	add := func(week, title, body string, mood int, moment domain.MomentType, tags ...string) {
		_, err := s.Add(ctx, domain.CreateNoteRequest{
			WeekKey: week, Title: title, Body: body, Mood: mood, MomentType: moment, Tags: tags,
		})
		require.NoError(t, err)
	}
	add("2024-50", "Snow Day", "Built a snowman", 5, domain.MomentSmallWin, "Winter")
	add("2025-02", "", "Finished the STRASSE project", 4, domain.MomentWork, "career")
	add("2025-04", "Long jog", "Half marathon", 3, domain.MomentHealth, "running", "winter")

	tests := []struct {
		name   string
		filter NoteFilter
		want   []string
	}{
		{"everything", NoteFilter{}, []string{"2024-50", "2025-02", "2025-04"}},
		{"query matches title case-insensitively", NoteFilter{Query: "snow day"}, []string{"2024-50"}},
		{"query folds body", NoteFilter{Query: "straße"}, []string{"2025-02"}},
		{"query matches tags", NoteFilter{Query: "run"}, []string{"2025-04"}},
		{"tag filter folds case", NoteFilter{Tag: "WINTER"}, []string{"2024-50", "2025-04"}},
		{"mood", NoteFilter{Mood: 4}, []string{"2025-02"}},
		{"moment", NoteFilter{MomentType: domain.MomentHealth}, []string{"2025-04"}},
		{"year", NoteFilter{Year: 2024}, []string{"2024-50"}},
		{"no match", NoteFilter{Query: "holiday"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, n := range s.Filter(tt.filter) {
				got = append(got, n.WeekKey)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []string{"Winter", "career", "running", "winter"}, s.AllTags())
}
