package ledger

import (
	"time"

	"empty-jar/internal/domain"
)

// ShouldRemind reports whether the in-app nudge is due: today is
// reminderDay, the local time of day has reached reminderTime, and the
// current week has no note yet. An unparseable reminderTime never fires.
func ShouldRemind(reminderDay time.Weekday, reminderTime string, now time.Time, hasNoteForCurrentWeek bool) bool {
	if hasNoteForCurrentWeek || now.Weekday() != reminderDay {
		return false
	}
	h, m, ok := domain.ParseClock(reminderTime)
	if !ok {
		return false
	}
	return now.Hour()*60+now.Minute() >= h*60+m
}
