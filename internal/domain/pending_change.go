package domain

import (
	"encoding/json"
	"time"
)

type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

type Collection string

const (
	CollectionNotes    Collection = "notes"
	CollectionSettings Collection = "settings"
)

// PendingChange is a cloud write that failed while offline and waits to be
// replayed. Payload holds the full Note or Settings document.
type PendingChange struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Kind       ChangeKind      `json:"type"`
	Collection Collection      `json:"table"`
	Payload    json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	Attempts   int             `json:"attempts,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
}
