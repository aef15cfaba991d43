package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenibako/runsheet-golang/runsheet"
	"github.com/zenibako/runsheet-golang/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func input(at, title string) runsheet.CueInput {
	return runsheet.CueInput{
		ScheduledTime:   runsheet.MustClockTime(at),
		DurationMinutes: 10,
		Title:           title,
		CueType:         runsheet.CueTypeLighting,
	}
}

func TestSQLiteStore_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "gala", input("19:30", "Blackout"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, runsheet.StatusUpcoming, first.Status)

	second, err := s.Create(ctx, "gala", input("19:00", "Preset"))
	require.NoError(t, err)

	cues, err := s.List(ctx, "gala")
	require.NoError(t, err)
	require.Len(t, cues, 2)
	// creation order, not scheduled order
	assert.Equal(t, first.ID, cues[0].ID)
	assert.Equal(t, second.ID, cues[1].ID)
	assert.Equal(t, runsheet.MustClockTime("19:30"), cues[0].ScheduledTime)
	assert.Equal(t, runsheet.CueTypeLighting, cues[0].CueType)
}

func TestSQLiteStore_CreateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	in := input("10:00", "Zero")
	in.DurationMinutes = 0

	_, err := s.Create(context.Background(), "gala", in)
	assert.True(t, runsheet.IsValidation(err))
}

func TestSQLiteStore_UpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cue, err := s.Create(ctx, "gala", input("19:00", "Preset"))
	require.NoError(t, err)

	got, err := s.UpdateStatus(ctx, "gala", cue.ID, runsheet.StatusUpcoming, runsheet.StatusLive)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusLive, got.Status)
	assert.Equal(t, "Preset", got.Title)

	_, err = s.UpdateStatus(ctx, "gala", "missing", runsheet.StatusUpcoming, runsheet.StatusLive)
	assert.True(t, runsheet.IsNotFound(err))

	_, err = s.UpdateStatus(ctx, "gala", cue.ID, runsheet.StatusLive, runsheet.Status("paused"))
	assert.Error(t, err)

	// the write only lands while the stored status matches
	_, err = s.UpdateStatus(ctx, "gala", cue.ID, runsheet.StatusUpcoming, runsheet.StatusSkipped)
	var conflict *runsheet.StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, runsheet.StatusLive, conflict.Actual)

	stored, err := s.Get(ctx, "gala", cue.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusLive, stored.Status)
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cue, err := s.Create(ctx, "gala", input("19:00", "Preset"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "gala", cue.ID))
	assert.True(t, runsheet.IsNotFound(s.Delete(ctx, "gala", cue.ID)))

	cues, err := s.List(ctx, "gala")
	require.NoError(t, err)
	assert.Empty(t, cues)
}

func TestSQLiteStore_RunIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, err := s.Create(ctx, "run-a", input("09:00", "A"))
	require.NoError(t, err)
	_, err = s.Create(ctx, "run-b", input("09:00", "B"))
	require.NoError(t, err)

	// a cue id is only reachable through its own run
	assert.True(t, runsheet.IsNotFound(s.Delete(ctx, "run-b", a.ID)))

	require.NoError(t, s.ResetAll(ctx, "run-b"))
	ids, err := s.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids)
}

func TestSQLiteStore_ResetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, err := s.Create(ctx, "gala", input("09:00", "A"))
	require.NoError(t, err)
	b, err := s.Create(ctx, "gala", input("09:10", "B"))
	require.NoError(t, err)
	other, err := s.Create(ctx, "other", input("09:10", "C"))
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, "gala", a.ID, runsheet.StatusUpcoming, runsheet.StatusLive)
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, "gala", a.ID, runsheet.StatusLive, runsheet.StatusCompleted)
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, "gala", b.ID, runsheet.StatusUpcoming, runsheet.StatusSkipped)
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, "other", other.ID, runsheet.StatusUpcoming, runsheet.StatusLive)
	require.NoError(t, err)

	require.NoError(t, s.ResetAll(ctx, "gala"))

	cues, err := s.List(ctx, "gala")
	require.NoError(t, err)
	for _, c := range cues {
		assert.Equal(t, runsheet.StatusUpcoming, c.Status, c.Title)
	}
	got, err := s.Get(ctx, "other", other.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusLive, got.Status)
}

func TestSQLiteStore_Technicians(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTechnician(ctx, store.Technician{ID: "a1", Name: "Sam", Role: "A1"}))
	require.NoError(t, s.PutTechnician(ctx, store.Technician{ID: "ld", Name: "Alex"}))
	assert.Equal(t, "Sam", s.NameOf("a1"))
	assert.Equal(t, "", s.NameOf("nobody"))

	require.NoError(t, s.PutTechnician(ctx, store.Technician{ID: "a1", Name: "Sam R.", Role: "A1"}))
	assert.Equal(t, "Sam R.", s.NameOf("a1"))

	techs, err := s.ListTechnicians(ctx)
	require.NoError(t, err)
	require.Len(t, techs, 2)
	assert.Equal(t, "Alex", techs[0].Name)

	require.NoError(t, s.DeleteTechnician(ctx, "ld"))
	assert.Error(t, s.DeleteTechnician(ctx, "ld"))
	assert.Error(t, s.PutTechnician(ctx, store.Technician{ID: " ", Name: "x"}))
}

func TestSQLiteStore_ControllerResumesAfterRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runsheet.db")
	ctx := context.Background()

	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutTechnician(ctx, store.Technician{ID: "a1", Name: "Sam"}))

	c, err := runsheet.NewController(ctx, "gala", s, runsheet.WithDirectory(s))
	require.NoError(t, err)
	in := input("19:00", "Walk-in Music")
	in.TechnicianID = "a1"
	walkIn, err := c.CreateCue(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "Sam", walkIn.TechnicianName)
	speech, err := c.CreateCue(ctx, input("19:00", "Speech"))
	require.NoError(t, err)
	_, err = c.StartCue(ctx, walkIn.ID)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	c2, err := runsheet.NewController(ctx, "gala", reopened, runsheet.WithDirectory(reopened))
	require.NoError(t, err)
	list := c2.List()
	require.Len(t, list, 2)
	assert.Equal(t, walkIn.ID, list[0].ID, "ties keep creation order")
	assert.Equal(t, speech.ID, list[1].ID)
	assert.Equal(t, runsheet.StatusLive, list[0].Status)
	assert.Equal(t, "Sam", list[0].TechnicianName)

	_, err = c2.CompleteCue(ctx, walkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.Stats{Total: 2, Upcoming: 1, Completed: 1}, c2.Stats())
}

// A serving process and a CLI invocation each hold a controller over the same file.
func TestSQLiteStore_TwoControllersKeepTerminalStates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runsheet.db")
	ctx := context.Background()

	serverDB, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { serverDB.Close() })
	cliDB, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { cliDB.Close() })

	server, err := runsheet.NewController(ctx, "gala", serverDB)
	require.NoError(t, err)
	cue, err := server.CreateCue(ctx, input("19:00", "Pyro"))
	require.NoError(t, err)

	cli, err := runsheet.NewController(ctx, "gala", cliDB)
	require.NoError(t, err)
	_, err = cli.SkipCue(ctx, cue.ID)
	require.NoError(t, err)

	_, err = server.StartCue(ctx, cue.ID)
	var invalid *runsheet.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, runsheet.StatusSkipped, invalid.Status)

	persisted, err := serverDB.Get(ctx, "gala", cue.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusSkipped, persisted.Status)

	refreshed, err := server.Get(cue.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusSkipped, refreshed.Status)
}
