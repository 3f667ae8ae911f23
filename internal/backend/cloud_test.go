package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"empty-jar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": status < 400,
		"data":    data,
		"error":   errMsg,
	})
}

func TestCloud_CreateNoteSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/notes", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req domain.CreateNoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		writeEnvelope(w, http.StatusCreated, domain.Note{
			ID:         "server-id",
			WeekKey:    req.WeekKey,
			Body:       req.Body,
			Mood:       req.Mood,
			MomentType: req.MomentType,
		}, "")
	}))
	defer srv.Close()

	c := NewCloud(CloudConfig{BaseURL: srv.URL, Token: "tok", AccountID: "acct"})
	got, err := c.CreateNote(context.Background(), sampleNote("2025-05"))
	require.NoError(t, err)
	assert.Equal(t, "server-id", got.ID)
	assert.Equal(t, "2025-05", got.WeekKey)
	assert.Equal(t, "acct", c.AccountID())
	assert.Equal(t, KindCloud, c.Kind())
}

func TestCloud_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"conflict", http.StatusConflict, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrConflict) }},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) }},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) }},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, http.StatusInternalServerError, se.Status)
			assert.Equal(t, "boom", se.Message)
			assert.False(t, IsTransient(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, nil, "boom")
			}))
			defer srv.Close()

			c := NewCloud(CloudConfig{BaseURL: srv.URL})
			_, err := c.UpdateNote(context.Background(), sampleNote("2025-05"))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCloud_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewCloud(CloudConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.LoadNotes(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err), "expected transient error, got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCloud_OfflineShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewCloud(CloudConfig{BaseURL: srv.URL, Online: func() bool { return false }})
	err := c.DeleteNote(context.Background(), "2025-05")
	assert.ErrorIs(t, err, ErrOffline)
	assert.True(t, IsTransient(err))
	assert.False(t, called)
}

func TestCloud_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewCloud(CloudConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.SaveSettings(context.Background(), domain.DefaultSettings())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCloud_LoadSettingsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil, "settings not found")
	}))
	defer srv.Close()

	c := NewCloud(CloudConfig{BaseURL: srv.URL})
	s, err := c.LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestIsBenignReplay(t *testing.T) {
	assert.True(t, IsBenignReplay(domain.ChangeCreate, ErrConflict))
	assert.True(t, IsBenignReplay(domain.ChangeDelete, ErrNotFound))
	assert.False(t, IsBenignReplay(domain.ChangeUpdate, ErrNotFound))
	assert.False(t, IsBenignReplay(domain.ChangeCreate, ErrUnauthorized))
}

func TestCloud_LoginWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req domain.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret123" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "invalid credentials")
			return
		}
		writeEnvelope(w, http.StatusOK, domain.LoginResponse{
			User:         &domain.User{ID: "u1", Email: req.Email},
			AccessToken:  "access",
			RefreshToken: "refresh",
		}, "")
	}))
	defer srv.Close()

	c := NewCloud(CloudConfig{BaseURL: srv.URL})
	resp, err := c.Login(context.Background(), "a@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "access", resp.AccessToken)

	_, err = c.Login(context.Background(), "a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
