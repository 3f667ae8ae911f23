package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"empty-jar/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// OpenPostgres connects through the pgx stdlib driver, applies migrations and
// returns the Postgres-backed repositories.
func OpenPostgres(ctx context.Context, databaseURL string, migrations fs.FS) (*Repositories, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := ApplyMigrations(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresRepositories(db), nil
}

func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Users:    &pgUserRepository{db: db},
		Notes:    &pgNoteRepository{db: db},
		Settings: &pgSettingsRepository{db: db},
		ping:     db.PingContext,
		close:    db.Close,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type pgUserRepository struct {
	db *sql.DB
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
	`, user.ID, user.Email, user.DisplayName, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, email, display_name, password_hash, created_at, updated_at FROM users`

func (r *pgUserRepository) scan(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Password, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, selectUser+` WHERE email = LOWER($1)`, email))
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
}

type pgNoteRepository struct {
	db *sql.DB
}

const selectNote = `
	SELECT id, user_id, week_key, title, body, mood, moment_type, tags, is_backfill, created_at, updated_at
	FROM notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (domain.Note, error) {
	var (
		n    domain.Note
		tags []byte
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.WeekKey, &n.Title, &n.Body, &n.Mood, &n.MomentType, &tags, &n.IsBackfill, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return domain.Note{}, err
	}
	if err := json.Unmarshal(tags, &n.Tags); err != nil {
		return domain.Note{}, fmt.Errorf("decode tags: %w", err)
	}
	return n, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func (r *pgNoteRepository) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, selectNote+` WHERE user_id = $1 ORDER BY week_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *pgNoteRepository) FindByWeek(ctx context.Context, userID, weekKey string) (*domain.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx, selectNote+` WHERE user_id = $1 AND week_key = $2`, userID, weekKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}
	return &n, nil
}

func (r *pgNoteRepository) ExistsForWeek(ctx context.Context, userID, weekKey string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM notes WHERE user_id = $1 AND week_key = $2)`, userID, weekKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check note: %w", err)
	}
	return exists, nil
}

func (r *pgNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, week_key, title, body, mood, moment_type, tags, is_backfill, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, note.ID, note.UserID, note.WeekKey, note.Title, note.Body, note.Mood, note.MomentType, tags, note.IsBackfill, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateWeek
		}
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *pgNoteRepository) Update(ctx context.Context, note *domain.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes
		SET title = $3, body = $4, mood = $5, moment_type = $6, tags = $7, updated_at = $8
		WHERE user_id = $1 AND week_key = $2
	`, note.UserID, note.WeekKey, note.Title, note.Body, note.Mood, note.MomentType, tags, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return expectOne(res)
}

func (r *pgNoteRepository) Delete(ctx context.Context, userID, weekKey string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE user_id = $1 AND week_key = $2`, userID, weekKey)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type pgSettingsRepository struct {
	db *sql.DB
}

const selectSettings = `
	SELECT user_id, reminder_day, reminder_time, theme_mode, reduced_motion, hide_notes,
	       email_reminders_enabled, email_reminder_day, email_reminder_time, timezone,
	       last_reminder_sent_week_key, updated_at
	FROM settings`

func scanSettings(row rowScanner) (domain.Settings, error) {
	var s domain.Settings
	err := row.Scan(&s.UserID, &s.ReminderDay, &s.ReminderTime, &s.ThemeMode, &s.ReducedMotion, &s.HideNotes,
		&s.EmailRemindersEnabled, &s.EmailReminderDay, &s.EmailReminderTime, &s.Timezone,
		&s.LastReminderSentWeekKey, &s.UpdatedAt)
	return s, err
}

func (r *pgSettingsRepository) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, selectSettings+` WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

func (r *pgSettingsRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, reminder_day, reminder_time, theme_mode, reduced_motion, hide_notes,
		                      email_reminders_enabled, email_reminder_day, email_reminder_time, timezone,
		                      last_reminder_sent_week_key, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			reminder_day = EXCLUDED.reminder_day,
			reminder_time = EXCLUDED.reminder_time,
			theme_mode = EXCLUDED.theme_mode,
			reduced_motion = EXCLUDED.reduced_motion,
			hide_notes = EXCLUDED.hide_notes,
			email_reminders_enabled = EXCLUDED.email_reminders_enabled,
			email_reminder_day = EXCLUDED.email_reminder_day,
			email_reminder_time = EXCLUDED.email_reminder_time,
			timezone = EXCLUDED.timezone,
			last_reminder_sent_week_key = EXCLUDED.last_reminder_sent_week_key,
			updated_at = EXCLUDED.updated_at
	`, s.UserID, s.ReminderDay, s.ReminderTime, s.ThemeMode, s.ReducedMotion, s.HideNotes,
		s.EmailRemindersEnabled, s.EmailReminderDay, s.EmailReminderTime, s.Timezone,
		s.LastReminderSentWeekKey, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (r *pgSettingsRepository) ListEmailEnabled(ctx context.Context) ([]domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, selectSettings+` WHERE email_reminders_enabled`)
	if err != nil {
		return nil, fmt.Errorf("list reminder settings: %w", err)
	}
	defer rows.Close()

	var out []domain.Settings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgSettingsRepository) MarkReminderSent(ctx context.Context, userID, weekKey string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE settings SET last_reminder_sent_week_key = $2 WHERE user_id = $1`, userID, weekKey)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return expectOne(res)
}
