// Package backend holds the two interchangeable persistence implementations
// for notes and settings: Local (device profile, guest mode) and Cloud
// (account-scoped remote API).
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"empty-jar/internal/domain"
)

type Kind string

const (
	KindLocal Kind = "local"
	KindCloud Kind = "cloud"
)

var (
	// ErrConflict means the target week already holds a note.
	ErrConflict = errors.New("note already exists for week")
	// ErrNotFound means the addressed note or row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is an authentication or authorization rejection.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOffline is returned by Cloud when the connectivity collaborator
	// reports no network, without attempting the round-trip.
	ErrOffline = errors.New("network offline")
	// ErrPendingChanges means earlier changes to the same document are still
	// queued, so a new write must wait behind them.
	ErrPendingChanges = errors.New("earlier changes are still pending")
)

// Backend is the persistence contract shared by Local and Cloud. Notes are
// addressed by week key, the natural key of the one-note-per-week invariant.
type Backend interface {
	Kind() Kind
	LoadNotes(ctx context.Context) ([]domain.Note, error)
	CreateNote(ctx context.Context, note domain.Note) (domain.Note, error)
	UpdateNote(ctx context.Context, note domain.Note) (domain.Note, error)
	DeleteNote(ctx context.Context, weekKey string) error
	// LoadSettings returns nil, nil when nothing has been stored yet.
	LoadSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// StatusError is a non-2xx response that is neither a conflict, a missing
// resource nor an auth failure. It is permanent.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cloud request failed: status %d", e.Status)
	}
	return fmt.Sprintf("cloud request failed: status %d: %s", e.Status, e.Message)
}

// IsTransient reports whether err is a connectivity failure that should be
// degraded to an optimistic commit plus a queued replay.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOffline) || errors.Is(err, ErrPendingChanges) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsBenignReplay reports whether err means the replayed write already took
// effect: a duplicate create or an update/delete of a row that is gone.
func IsBenignReplay(kind domain.ChangeKind, err error) bool {
	switch kind {
	case domain.ChangeCreate:
		return errors.Is(err, ErrConflict)
	case domain.ChangeDelete:
		return errors.Is(err, ErrNotFound)
	}
	return false
}
