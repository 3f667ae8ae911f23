package cli

import (
	"fmt"
	"strings"
	"time"

	"empty-jar/internal/domain"

	"github.com/spf13/cobra"
)

func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change reminder and display settings",
	}
	cmd.AddCommand(newSettingsGetCommand(opts))
	cmd.AddCommand(newSettingsSetCommand(opts))
	return cmd
}

func newSettingsGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			s := a.session.Settings().Get()
			if a.opts.JSON {
				return a.printJSON(s)
			}
			a.printf("reminder:        %s %s\n", time.Weekday(s.ReminderDay), s.ReminderTime)
			a.printf("theme:           %s\n", s.ThemeMode)
			a.printf("reduced motion:  %t\n", s.ReducedMotion)
			a.printf("hide notes:      %t\n", s.HideNotes)
			a.printf("email reminders: %t (%s %s, %s)\n", s.EmailRemindersEnabled,
				time.Weekday(s.EmailReminderDay), s.EmailReminderTime, s.Timezone)
			return nil
		}),
	}
}

// parseWeekday accepts a day name or its number, Sunday being 0.
func parseWeekday(s string) (int, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return int(d), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("invalid day %q", s)
	}
	return n, nil
}

func newSettingsSetCommand(opts *RootOptions) *cobra.Command {
	var (
		reminderDay, reminderTime      string
		theme                          string
		reducedMotion, hideNotes       bool
		emailEnabled                   bool
		emailDay, emailTime, emailZone string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var patch domain.UpdateSettingsRequest
			changed := cmd.Flags().Changed

			if changed("reminder-day") {
				d, err := parseWeekday(reminderDay)
				if err != nil {
					return err
				}
				patch.ReminderDay = &d
			}
			if changed("reminder-time") {
				patch.ReminderTime = &reminderTime
			}
			if changed("theme") {
				m := domain.ThemeMode(theme)
				patch.ThemeMode = &m
			}
			if changed("reduced-motion") {
				patch.ReducedMotion = &reducedMotion
			}
			if changed("hide-notes") {
				patch.HideNotes = &hideNotes
			}
			if changed("email-reminders") {
				patch.EmailRemindersEnabled = &emailEnabled
			}
			if changed("email-day") {
				d, err := parseWeekday(emailDay)
				if err != nil {
					return err
				}
				patch.EmailReminderDay = &d
			}
			if changed("email-time") {
				patch.EmailReminderTime = &emailTime
			}
			if changed("timezone") {
				patch.Timezone = &emailZone
			}

			res, err := a.session.Settings().Update(cmd.Context(), patch)
			return a.reportResult("settings", res, err)
		}),
	}

	f := cmd.Flags()
	f.StringVar(&reminderDay, "reminder-day", "", "day of the in-app reminder")
	f.StringVar(&reminderTime, "reminder-time", "", "time of the in-app reminder, HH:MM")
	f.StringVar(&theme, "theme", "", "light, dark or system")
	f.BoolVar(&reducedMotion, "reduced-motion", false, "reduce animations")
	f.BoolVar(&hideNotes, "hide-notes", false, "hide note bodies in lists")
	f.BoolVar(&emailEnabled, "email-reminders", false, "send a weekly reminder email")
	f.StringVar(&emailDay, "email-day", "", "day of the reminder email")
	f.StringVar(&emailTime, "email-time", "", "time of the reminder email, HH:MM")
	f.StringVar(&emailZone, "timezone", "", "IANA timezone for the reminder email")
	return cmd
}

func NewReminderCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reminder",
		Short: "Print the weekly nudge if this week's note is still missing",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if !a.session.ShowReminder() {
				return nil
			}
			week := a.session.Notes().CurrentWeekKey()
			a.printf("Nothing in the jar for %s yet. Run `jar add` to write this week's note.\n", week)
			a.session.DismissReminder()
			return nil
		}),
	}
}
