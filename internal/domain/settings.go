package domain

import "time"

type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

// Settings is the per-account (or per-guest-profile) preferences row. The
// email fields are read by the server reminder sweep.
type Settings struct {
	UserID        string    `json:"user_id,omitempty"`
	ReminderDay   int       `json:"reminder_day" validate:"min=0,max=6"`
	ReminderTime  string    `json:"reminder_time" validate:"required,hhmm"`
	ThemeMode     ThemeMode `json:"theme_mode" validate:"required,oneof=light dark system"`
	ReducedMotion bool      `json:"reduced_motion"`
	HideNotes     bool      `json:"hide_notes"`

	EmailRemindersEnabled   bool   `json:"email_reminders_enabled"`
	EmailReminderDay        int    `json:"email_reminder_day" validate:"min=0,max=6"`
	EmailReminderTime       string `json:"email_reminder_time" validate:"required,hhmm"`
	Timezone                string `json:"timezone" validate:"required,timezone"`
	LastReminderSentWeekKey string `json:"last_reminder_sent_week_key,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultSettings() Settings {
	return Settings{
		ReminderDay:       int(time.Sunday),
		ReminderTime:      "18:00",
		ThemeMode:         ThemeLight,
		EmailReminderDay:  int(time.Sunday),
		EmailReminderTime: "19:00",
		Timezone:          "America/New_York",
	}
}

type UpdateSettingsRequest struct {
	ReminderDay           *int       `json:"reminder_day" validate:"omitempty,min=0,max=6"`
	ReminderTime          *string    `json:"reminder_time" validate:"omitempty,hhmm"`
	ThemeMode             *ThemeMode `json:"theme_mode" validate:"omitempty,oneof=light dark system"`
	ReducedMotion         *bool      `json:"reduced_motion"`
	HideNotes             *bool      `json:"hide_notes"`
	EmailRemindersEnabled *bool      `json:"email_reminders_enabled"`
	EmailReminderDay      *int       `json:"email_reminder_day" validate:"omitempty,min=0,max=6"`
	EmailReminderTime     *string    `json:"email_reminder_time" validate:"omitempty,hhmm"`
	Timezone              *string    `json:"timezone" validate:"omitempty,timezone"`
}

// Apply copies every non-nil field of req onto s.
func (req *UpdateSettingsRequest) Apply(s *Settings) {
	if req.ReminderDay != nil {
		s.ReminderDay = *req.ReminderDay
	}
	if req.ReminderTime != nil {
		s.ReminderTime = *req.ReminderTime
	}
	if req.ThemeMode != nil {
		s.ThemeMode = *req.ThemeMode
	}
	if req.ReducedMotion != nil {
		s.ReducedMotion = *req.ReducedMotion
	}
	if req.HideNotes != nil {
		s.HideNotes = *req.HideNotes
	}
	if req.EmailRemindersEnabled != nil {
		s.EmailRemindersEnabled = *req.EmailRemindersEnabled
	}
	if req.EmailReminderDay != nil {
		s.EmailReminderDay = *req.EmailReminderDay
	}
	if req.EmailReminderTime != nil {
		s.EmailReminderTime = *req.EmailReminderTime
	}
	if req.Timezone != nil {
		s.Timezone = *req.Timezone
	}
}
