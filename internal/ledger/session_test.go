package ledger

import (
	"context"
	"testing"
	"time"

	"empty-jar/internal/backend"
	"empty-jar/internal/domain"
	"empty-jar/internal/localstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	profile *localstore.Store
	clock   *testClock
	clouds  map[string]*fakeCloud
	deps    Deps
}

func newSessionFixture(t *testing.T, now time.Time) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		profile: openProfile(t),
		clock:   newTestClock(now),
		clouds:  make(map[string]*fakeCloud),
	}
	f.deps = Deps{
		Profile: f.profile,
		Clock:   f.clock.Now,
		Logger:  discardLogger(),
		NewCloud: func(id Identity, online func() bool) backend.Backend {
			c, ok := f.clouds[id.AccountID]
			if !ok {
				c = newFakeCloud(id.AccountID)
				f.clouds[id.AccountID] = c
			}
			c.online = online
			return c
		},
	}
	return f
}

func TestSession_GuestUsesLocal(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, monday3Feb2025)

	s, err := Open(ctx, f.deps, nil)
	require.NoError(t, err)
	assert.Equal(t, backend.KindLocal, s.Kind())
	assert.Nil(t, s.Identity())

	_, err = s.Notes().Add(ctx, noteRequest("2025-06", "guest"))
	require.NoError(t, err)

	reopened, err := Open(ctx, f.deps, nil)
	require.NoError(t, err)
	assert.True(t, reopened.Notes().HasForWeek("2025-06"))
	assert.Equal(t, "18:00", reopened.Settings().Get().ReminderTime)
}

func TestSession_OfflineAddThenReconnect(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, monday3Feb2025)
	f.deps.Offline = true

	s, err := Open(ctx, f.deps, &Identity{AccountID: "acct-1", Token: "t"})
	require.NoError(t, err)
	cloud := f.clouds["acct-1"]

	res, err := s.Notes().Add(ctx, domain.CreateNoteRequest{
		WeekKey: "2025-05", Body: "x", Mood: 3, MomentType: domain.MomentOther,
	})
	require.NoError(t, err)
	assert.Equal(t, Queued, res.Status)
	assert.True(t, IsLocalID(res.Note.ID))

	n, err := s.Queue().Len(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	report, err := s.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.Complete())

	n, err = s.Queue().Len(ctx, "acct-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, cloud.noteCount())

	note, ok := s.Notes().GetForWeek("2025-05")
	require.True(t, ok)
	assert.False(t, IsLocalID(note.ID))

	// A second reconnect has nothing left to send.
	_, err = s.SetOnline(ctx, false)
	require.NoError(t, err)
	report, err = s.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied)
	assert.Equal(t, 1, cloud.noteCount())
}

func TestSession_QueuedWritesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, monday3Feb2025)
	f.deps.Offline = true
	id := &Identity{AccountID: "acct-1"}

	s, err := Open(ctx, f.deps, id)
	require.NoError(t, err)
	_, err = s.Notes().Add(ctx, noteRequest("2025-06", "offline"))
	require.NoError(t, err)

	restarted, err := Open(ctx, f.deps, id)
	require.NoError(t, err)
	assert.True(t, restarted.Notes().HasForWeek("2025-06"))

	f.deps.Offline = false
	online, err := Open(ctx, f.deps, id)
	require.NoError(t, err)
	assert.Equal(t, 1, f.clouds["acct-1"].noteCount())
	assert.True(t, online.Notes().HasForWeek("2025-06"))
}

func TestSession_SignInOffersGuestNotesOnce(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, monday3Feb2025)

	guest, err := Open(ctx, f.deps, nil)
	require.NoError(t, err)
	for _, key := range []string{"2025-04", "2025-05"} {
		_, err := guest.Notes().Add(ctx, noteRequest(key, "guest "+key))
		require.NoError(t, err)
	}

	s, err := guest.SignIn(ctx, Identity{AccountID: "acct-1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, backend.KindCloud, s.Kind())
	require.Len(t, s.MigrationPrompt(), 2)

	report, err := s.SyncGuestNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Copied)
	assert.Empty(t, s.MigrationPrompt())
	assert.Equal(t, 2, s.Notes().Count())

	writes := f.clouds["acct-1"].writeCount()
	again, err := s.SignIn(ctx, Identity{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Empty(t, again.MigrationPrompt())
	report, err = again.SyncGuestNotes(ctx)
	require.NoError(t, err)
	assert.True(t, report.AlreadyMigrated)
	assert.Equal(t, writes, f.clouds["acct-1"].writeCount())

	out, err := again.SignOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.KindLocal, out.Kind())
	assert.Zero(t, out.Notes().Count())
}

func TestSession_DismissSyncPrompt(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, monday3Feb2025)

	guest, err := Open(ctx, f.deps, nil)
	require.NoError(t, err)
	_, err = guest.Notes().Add(ctx, noteRequest("2025-06", "guest"))
	require.NoError(t, err)

	s, err := guest.SignIn(ctx, Identity{AccountID: "acct-1"})
	require.NoError(t, err)
	require.Len(t, s.MigrationPrompt(), 1)

	require.NoError(t, s.DismissSyncPrompt(ctx))
	assert.Empty(t, s.MigrationPrompt())

	again, err := s.SignIn(ctx, Identity{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Empty(t, again.MigrationPrompt())
	assert.Zero(t, f.clouds["acct-1"].noteCount())
}

func TestSession_Reminder(t *testing.T) {
	ctx := context.Background()
	sundayEvening := time.Date(2025, time.February, 9, 19, 0, 0, 0, time.UTC)
	f := newSessionFixture(t, sundayEvening)

	s, err := Open(ctx, f.deps, nil)
	require.NoError(t, err)
	assert.True(t, s.ShowReminder())

	s.DismissReminder()
	assert.False(t, s.ShowReminder())

	fresh, err := Open(ctx, f.deps, nil)
	require.NoError(t, err)
	assert.True(t, fresh.ShowReminder())

	_, err = fresh.Notes().Add(ctx, noteRequest(fresh.Notes().CurrentWeekKey(), "done"))
	require.NoError(t, err)
	assert.False(t, fresh.ShowReminder())
}
