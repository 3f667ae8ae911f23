package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"empty-jar/internal/domain"
	"empty-jar/internal/email"
	"empty-jar/internal/repository"
	"empty-jar/internal/weekkey"
)

const fallbackTimezone = "America/New_York"

type ReminderSender interface {
	SendReminder(ctx context.Context, r email.Reminder) error
}

// Lease grants one holder per key until ttl passes.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type SweepReport struct {
	Sent    int
	Skipped int
	Failed  int
	// Leased is false when another instance owns this hour's sweep.
	Leased bool
}

// ReminderService mails a weekly nudge to accounts that have not written
// this week's note yet.
type ReminderService struct {
	settings repository.SettingsRepository
	notes    repository.NoteRepository
	users    repository.UserRepository
	sender   ReminderSender
	lease    Lease
	appURL   string
	now      func() time.Time
	logger   *slog.Logger
}

func NewReminderService(repos *repository.Repositories, sender ReminderSender, lease Lease, appURL string, logger *slog.Logger) *ReminderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderService{
		settings: repos.Settings,
		notes:    repos.Notes,
		users:    repos.Users,
		sender:   sender,
		lease:    lease,
		appURL:   appURL,
		now:      time.Now,
		logger:   logger,
	}
}

// Sweep evaluates every account with email reminders on. Failures for one
// account are logged and do not stop the others. With a lease configured,
// only the first caller in each UTC hour does any work.
func (s *ReminderService) Sweep(ctx context.Context) (SweepReport, error) {
	now := s.now()
	report := SweepReport{Leased: true}

	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, "reminders:"+now.UTC().Format("2006010215"), time.Hour)
		if err != nil {
			return report, err
		}
		if !ok {
			report.Leased = false
			return report, nil
		}
	}

	rows, err := s.settings.ListEmailEnabled(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list reminder settings: %w", err)
	}
	s.logger.Info("reminder sweep started", "accounts", len(rows))

	for _, row := range rows {
		sent, err := s.remind(ctx, row, now)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("reminder failed", "user", row.UserID, "error", err)
		case sent:
			report.Sent++
		default:
			report.Skipped++
		}
	}

	s.logger.Info("reminder sweep finished", "sent", report.Sent, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (s *ReminderService) remind(ctx context.Context, row domain.Settings, now time.Time) (bool, error) {
	loc := loadLocation(row.Timezone)
	current := weekkey.InLocation(now, loc)

	if !Due(row, now, loc) {
		return false, nil
	}

	exists, err := s.notes.ExistsForWeek(ctx, row.UserID, current)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	user, err := s.users.FindByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	key, err := weekkey.Parse(current)
	if err != nil {
		return false, err
	}

	err = s.sender.SendReminder(ctx, email.Reminder{
		To:      user.Email,
		Name:    user.DisplayName,
		Subject: email.SubjectForWeek(key.Week),
		AppURL:  s.appURL,
	})
	if err != nil {
		return false, fmt.Errorf("send: %w", err)
	}

	if err := s.settings.MarkReminderSent(ctx, row.UserID, current); err != nil {
		return true, fmt.Errorf("mark sent: %w", err)
	}
	return true, nil
}

// Due reports whether row's email reminder should go out at now: the local
// weekday and hour match and nothing was sent yet for the local week.
func Due(row domain.Settings, now time.Time, loc *time.Location) bool {
	if row.LastReminderSentWeekKey == weekkey.InLocation(now, loc) {
		return false
	}
	local := now.In(loc)
	if int(local.Weekday()) != row.EmailReminderDay {
		return false
	}
	hour, _, ok := domain.ParseClock(row.EmailReminderTime)
	return ok && local.Hour() == hour
}

func loadLocation(name string) *time.Location {
	if name == "" {
		name = fallbackTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
