package ledger

import "empty-jar/internal/domain"

// Status is the outcome of a mutation.
type Status int

const (
	// Committed means the active backend accepted the write.
	Committed Status = iota
	// Queued means the write was applied in memory and is waiting in the
	// pending change queue for connectivity.
	Queued
	// Rejected means nothing changed. Result.Reason holds the cause.
	Rejected
)

func (s Status) String() string {
	switch s {
	case Committed:
		return "committed"
	case Queued:
		return "queued"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

type Result struct {
	Status   Status
	Note     *domain.Note
	Settings *domain.Settings
	Reason   error
}

func committedNote(n domain.Note) Result {
	return Result{Status: Committed, Note: &n}
}

func queuedNote(n domain.Note) Result {
	return Result{Status: Queued, Note: &n}
}

func rejected(err error) (Result, error) {
	return Result{Status: Rejected, Reason: err}, err
}
