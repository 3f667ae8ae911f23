package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"empty-jar/internal/config"
	"empty-jar/internal/domain"
	"empty-jar/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday3Feb2025 falls on the first day of ISO week 2025-06.
var monday3Feb2025 = time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	dir string
	cfg config.ClientConfig
}

func newTestEnv(t *testing.T, apiURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir: dir,
		cfg: config.ClientConfig{
			APIURL:         apiURL,
			RequestTimeout: 2 * time.Second,
			ProfileDir:     dir,
			MaxAttempts:    5,
			LogLevel:       "error",
		},
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(e.cfg, func() time.Time { return monday3Feb2025 })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

// fakeAPI serves the auth, notes and settings endpoints for one account.
type fakeAPI struct {
	mu       sync.Mutex
	notes    map[string]domain.Note
	settings *domain.Settings
	nextID   int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{notes: make(map[string]domain.Note)}
	srv := httptest.NewServer(api.routes())
	t.Cleanup(srv.Close)
	return api, srv
}

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": status < 400,
		"data":    data,
		"error":   errMsg,
	})
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret123" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "invalid credentials")
			return
		}
		writeEnvelope(w, http.StatusOK, domain.LoginResponse{
			User:         &domain.User{ID: "acct-1", Email: req.Email},
			AccessToken:  "access",
			RefreshToken: "refresh",
		}, "")
	})
	mux.HandleFunc("GET /api/v1/notes", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]domain.Note, 0, len(f.notes))
		for _, n := range f.notes {
			out = append(out, n)
		}
		writeEnvelope(w, http.StatusOK, out, "")
	})
	mux.HandleFunc("POST /api/v1/notes", func(w http.ResponseWriter, r *http.Request) {
		var req domain.CreateNoteRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.notes[req.WeekKey]; ok {
			writeEnvelope(w, http.StatusConflict, nil, "a note already exists for this week")
			return
		}
		f.nextID++
		n := domain.Note{
			ID: fmt.Sprintf("srv-%d", f.nextID), UserID: "acct-1", WeekKey: req.WeekKey,
			Title: req.Title, Body: req.Body, Mood: req.Mood, MomentType: req.MomentType,
			Tags: req.Tags, IsBackfill: req.IsBackfill,
		}
		f.notes[req.WeekKey] = n
		writeEnvelope(w, http.StatusCreated, n, "")
	})
	mux.HandleFunc("GET /api/v1/settings", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.settings == nil {
			writeEnvelope(w, http.StatusNotFound, nil, "settings not found")
			return
		}
		writeEnvelope(w, http.StatusOK, f.settings, "")
	})
	mux.HandleFunc("PUT /api/v1/settings", func(w http.ResponseWriter, r *http.Request) {
		var s domain.Settings
		json.NewDecoder(r.Body).Decode(&s)
		f.mu.Lock()
		f.settings = &s
		f.mu.Unlock()
		writeEnvelope(w, http.StatusOK, s, "")
	})
	return mux
}

func (f *fakeAPI) noteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

func TestGuestNoteLifecycle(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")

	out := env.mustRun(t, "add", "-b", "Walked to the lake.", "-m", "4", "--moment", "small-win", "-t", "walk", "--title", "Lake")
	assert.Contains(t, out, "note for 2025-06 saved")

	_, err := env.run(t, "add", "current", "-b", "again", "-m", "3")
	assert.ErrorIs(t, err, ledger.ErrDuplicateWeek)

	out = env.mustRun(t, "show")
	assert.Contains(t, out, "2025-06  Good   Lake  #walk")
	assert.Contains(t, out, "Walked to the lake.")

	env.mustRun(t, "edit", "--title", "The lake")
	out = env.mustRun(t, "--json", "show", "2025-06")
	var note domain.Note
	require.NoError(t, json.Unmarshal([]byte(out), &note))
	assert.Equal(t, "The lake", note.Title)
	assert.Equal(t, "Walked to the lake.", note.Body)

	out = env.mustRun(t, "add", "2025-04", "-b", "late entry", "-m", "2")
	assert.Contains(t, out, "saved")
	_, err = env.run(t, "edit", "2025-04", "--title", "too late")
	assert.ErrorIs(t, err, ledger.ErrEditWindow)

	out = env.mustRun(t, "list", "-q", "LAKE")
	assert.Contains(t, out, "2025-06")
	assert.NotContains(t, out, "2025-04")

	env.mustRun(t, "delete", "2025-04")
	_, err = env.run(t, "show", "2025-04")
	assert.ErrorIs(t, err, ledger.ErrNoteNotFound)
}

func TestAddValidation(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")

	_, err := env.run(t, "add", "2025-6", "-b", "x", "-m", "3")
	assert.Error(t, err)

	_, err = env.run(t, "add", "-b", "x", "-m", "9")
	var verr *ledger.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestWeeksMarksFilledAndCurrent(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	env.mustRun(t, "add", "2025-02", "-b", "x", "-m", "3")

	out := env.mustRun(t, "weeks")
	assert.Contains(t, out, "* 2025-02")
	assert.Contains(t, out, "> 2025-06")
	assert.Contains(t, out, ". 2025-07")
	assert.Contains(t, out, "1 of 52 weeks filled")
}

func TestSettingsSetAndGet(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")

	env.mustRun(t, "settings", "set", "--reminder-day", "monday", "--reminder-time", "08:30", "--theme", "dark", "--hide-notes")
	out := env.mustRun(t, "--json", "settings", "get")

	var s domain.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, int(time.Monday), s.ReminderDay)
	assert.Equal(t, "08:30", s.ReminderTime)
	assert.Equal(t, domain.ThemeDark, s.ThemeMode)
	assert.True(t, s.HideNotes)

	_, err := env.run(t, "settings", "set", "--reminder-time", "25:00")
	assert.Error(t, err)
	_, err = env.run(t, "settings", "set", "--email-day", "someday")
	assert.Error(t, err)
}

func TestListHidesBodies(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	env.mustRun(t, "add", "-b", "private words", "-m", "5")
	env.mustRun(t, "settings", "set", "--hide-notes")

	assert.NotContains(t, env.mustRun(t, "list"), "private words")
	assert.Contains(t, env.mustRun(t, "list", "--reveal"), "private words")
}

func TestReminderNudge(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	// Remind on Mondays from 08:00; the clock says Monday 09:00.
	env.mustRun(t, "settings", "set", "--reminder-day", "1", "--reminder-time", "08:00")

	assert.Contains(t, env.mustRun(t, "reminder"), "Nothing in the jar for 2025-06")

	env.mustRun(t, "add", "-b", "done", "-m", "3")
	assert.Empty(t, env.mustRun(t, "reminder"))
}

func TestExportMarkdownFile(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	env.mustRun(t, "add", "-b", "Body text", "-m", "4", "--title", "Good one")

	path := filepath.Join(t.TempDir(), "jar.md")
	out := env.mustRun(t, "export", "-o", path)
	assert.Contains(t, out, "exported 1 notes")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "---\n"))
	assert.Contains(t, string(raw), "# Week 2025-06 (Feb 3 to Feb 9, 2025): Good one")

	out = env.mustRun(t, "export", "--format", "json")
	assert.Contains(t, out, `"count": 1`)

	_, err = env.run(t, "export", "--format", "csv")
	assert.Error(t, err)
}

func TestSignInMigrateAndOfflineSync(t *testing.T) {
	api, srv := newFakeAPI(t)
	env := newTestEnv(t, srv.URL)

	env.mustRun(t, "add", "-b", "guest note", "-m", "3")

	_, err := env.run(t, "login", "-e", "a@example.com", "-p", "wrong")
	assert.Error(t, err)

	out := env.mustRun(t, "login", "-e", "a@example.com", "-p", "secret123")
	assert.Contains(t, out, "signed in as a@example.com")
	assert.Contains(t, out, "1 notes written as a guest")

	profile, err := loadProfileFile(env.dir)
	require.NoError(t, err)
	require.NotNil(t, profile.Identity)
	assert.Equal(t, "acct-1", profile.Identity.AccountID)
	assert.NotEmpty(t, profile.DeviceID)

	out = env.mustRun(t, "migrate", "accept")
	assert.Contains(t, out, "copied 1 guest notes")
	assert.Equal(t, 1, api.noteCount())

	out = env.mustRun(t, "--offline", "add", "2025-05", "-b", "on a plane", "-m", "4")
	assert.Contains(t, out, "will sync when online")
	assert.Equal(t, 1, api.noteCount())

	out = env.mustRun(t, "--offline", "--json", "status")
	var st statusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "cloud", st.Backend)
	assert.Equal(t, 1, st.Pending)
	// Offline, only the queued notes are known.
	assert.Equal(t, 1, st.Notes)

	// Opening online replays the queue before the command runs.
	env.mustRun(t, "sync")
	assert.Equal(t, 2, api.noteCount())

	out = env.mustRun(t, "--json", "status")
	st = statusJSON{}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Zero(t, st.Pending)
	assert.Zero(t, st.GuestPending)

	out = env.mustRun(t, "logout")
	assert.Contains(t, out, "signed out of a@example.com")

	out = env.mustRun(t, "--json", "status")
	st = statusJSON{}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "local", st.Backend)
	assert.Zero(t, st.Notes)
}

func TestMigrateNeedsAccount(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	_, err := env.run(t, "migrate", "accept")
	assert.ErrorIs(t, err, errSignedOut)
}
