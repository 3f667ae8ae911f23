package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"empty-jar/internal/domain"
	"empty-jar/internal/repository"
	"empty-jar/internal/websocket"
	"empty-jar/internal/weekkey"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// NoteEvents receives every committed note change. The websocket manager
// implements it.
type NoteEvents interface {
	PublishNoteEvent(userID, deviceID string, msgType websocket.MessageType, weekKey string, note *domain.Note) error
}

type NoteService struct {
	noteRepo repository.NoteRepository
	events   NoteEvents
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

func NewNoteService(noteRepo repository.NoteRepository, events NoteEvents, logger *slog.Logger) *NoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteService{
		noteRepo: noteRepo,
		events:   events,
		validate: domain.NewValidator(),
		now:      time.Now,
		logger:   logger,
	}
}

func (s *NoteService) List(ctx context.Context, userID string) ([]domain.Note, error) {
	notes, err := s.noteRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Get(ctx context.Context, userID, weekKey string) (*domain.Note, error) {
	if err := weekkey.Validate(weekKey); err != nil {
		return nil, &ValidationError{Err: err}
	}
	note, err := s.noteRepo.FindByWeek(ctx, userID, weekKey)
	if err != nil {
		return nil, mapNoteErr(err)
	}
	return note, nil
}

// Create stores the user's note for req.WeekKey. A second note for the same
// week fails with ErrDuplicateWeek, decided by the storage layer.
func (s *NoteService) Create(ctx context.Context, userID, deviceID string, req *domain.CreateNoteRequest) (*domain.Note, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	// A replayed create carries the device's timestamp and backfill flag,
	// both decided when the note was written. The server clock may already
	// be in a later week.
	now := s.now()
	createdAt := now
	isBackfill := req.IsBackfill || req.WeekKey < weekkey.Of(now)
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = *req.CreatedAt
		isBackfill = req.IsBackfill
	}

	note := &domain.Note{
		ID:         uuid.New().String(),
		UserID:     userID,
		WeekKey:    req.WeekKey,
		Title:      req.Title,
		Body:       req.Body,
		Mood:       req.Mood,
		MomentType: req.MomentType,
		Tags:       req.Tags,
		IsBackfill: isBackfill,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, mapNoteErr(err)
	}

	s.publish(userID, deviceID, websocket.TypeNoteCreated, note.WeekKey, note)
	return note, nil
}

// Update applies req to the user's note for weekKey. The edit window is a
// client rule; replayed offline edits may arrive after the week has closed.
func (s *NoteService) Update(ctx context.Context, userID, deviceID, weekKey string, req *domain.UpdateNoteRequest) (*domain.Note, error) {
	if err := weekkey.Validate(weekKey); err != nil {
		return nil, &ValidationError{Err: err}
	}
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	note, err := s.noteRepo.FindByWeek(ctx, userID, weekKey)
	if err != nil {
		return nil, mapNoteErr(err)
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Body != nil {
		note.Body = *req.Body
	}
	if req.Mood != nil {
		note.Mood = *req.Mood
	}
	if req.MomentType != nil {
		note.MomentType = *req.MomentType
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	note.UpdatedAt = s.now()

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, mapNoteErr(err)
	}

	s.publish(userID, deviceID, websocket.TypeNoteUpdated, weekKey, note)
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, deviceID, weekKey string) error {
	if err := weekkey.Validate(weekKey); err != nil {
		return &ValidationError{Err: err}
	}
	if err := s.noteRepo.Delete(ctx, userID, weekKey); err != nil {
		return mapNoteErr(err)
	}

	s.publish(userID, deviceID, websocket.TypeNoteDeleted, weekKey, nil)
	return nil
}

func (s *NoteService) publish(userID, deviceID string, msgType websocket.MessageType, weekKey string, note *domain.Note) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishNoteEvent(userID, deviceID, msgType, weekKey, note); err != nil {
		s.logger.Warn("failed to broadcast note change", "user", userID, "week", weekKey, "error", err)
	}
}

func mapNoteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNoteNotFound
	case errors.Is(err, repository.ErrDuplicateWeek):
		return ErrDuplicateWeek
	}
	return fmt.Errorf("note storage: %w", err)
}
