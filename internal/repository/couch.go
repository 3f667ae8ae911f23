package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
)

const (
	docTypeUser     = "user"
	docTypeEmail    = "email"
	docTypeNote     = "note"
	docTypeSettings = "settings"
)

// OpenCouch connects to CouchDB, creates dbName when missing and returns the
// kivik-backed repositories.
func OpenCouch(ctx context.Context, url, dbName string) (*Repositories, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("connect to couchdb: %w", err)
	}

	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("check database: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil {
			return nil, fmt.Errorf("create database: %w", err)
		}
	}

	return &Repositories{
		Users:    NewUserRepository(client, dbName),
		Notes:    NewNoteRepository(client, dbName),
		Settings: NewSettingsRepository(client, dbName),
		ping: func(ctx context.Context) error {
			up, err := client.Ping(ctx)
			if err != nil {
				return err
			}
			if !up {
				return errors.New("couchdb is not ready")
			}
			return nil
		},
		close: client.Close,
	}, nil
}

func userDocID(id string) string { return "user:" + id }

func emailDocID(email string) string { return "email:" + strings.ToLower(email) }

// noteDocID makes the week part of the document id, so CouchDB itself
// refuses a second note for the same week with 409.
func noteDocID(userID, weekKey string) string {
	return fmt.Sprintf("note:%s:%s", userID, weekKey)
}

func settingsDocID(userID string) string { return "settings:" + userID }

func isStatus(err error, status int) bool {
	return err != nil && kivik.HTTPStatus(err) == status
}

func isNotFound(err error) bool { return isStatus(err, http.StatusNotFound) }

func isConflict(err error) bool { return isStatus(err, http.StatusConflict) }
