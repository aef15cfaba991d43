package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenibako/runsheet-golang/httpapi"
	"github.com/zenibako/runsheet-golang/oscctl"
	"github.com/zenibako/runsheet-golang/runsheet"
	"github.com/zenibako/runsheet-golang/store"
	"github.com/zenibako/runsheet-golang/templates"
)

const runID = "conference"

// showTime is 15 minutes into the default template's first cue.
var showTime = time.Date(2026, 10, 16, 8, 45, 0, 0, time.UTC)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func newRuns(db *store.SQLiteStore) *runsheet.Runs {
	return runsheet.NewRuns(db,
		runsheet.WithDirectory(db),
		runsheet.WithClock(runsheet.NewScheduleClock(runsheet.FixedTime(showTime), time.UTC)),
	)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// TestRunAcrossSurfaces drives one run over HTTP and OSC against a sqlite store,
// then reopens the store and checks the run comes back as it was left.
func TestRunAcrossSurfaces(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runsheet.db")

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.PutTechnician(ctx, store.Technician{ID: "sam", Name: "Sam Rivera", Role: "audio"}))

	runs := newRuns(db)

	api := httpapi.NewServer(runs, templates.NewLoader(""), "127.0.0.1:0")
	web := httptest.NewServer(api.Handler())
	defer web.Close()
	base := web.URL + "/api/v1/runs/" + runID

	port := freeUDPPort(t)
	replyPort := freeUDPPort(t)
	oscServer := oscctl.NewServer(runs, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), "127.0.0.1", replyPort)
	require.NoError(t, oscServer.Start())
	defer func() { _ = oscServer.Stop() }()

	client := oscctl.NewClient("127.0.0.1", port, runID)
	client.SetReplyPort("127.0.0.1", replyPort)
	client.SetTimeout(2 * time.Second)
	require.NoError(t, client.Listen())
	defer func() { _ = client.Close() }()

	// Seed over HTTP.
	resp := postJSON(t, base+"/template", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var seeded httpapi.SeedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&seeded))
	resp.Body.Close()
	require.Len(t, seeded.Created, 8)
	doors := seeded.Created[0]
	assert.Equal(t, "Doors Open", doors.Title)

	// Add a cue with a technician over OSC; the name comes from the team table.
	checked, err := client.CreateCue(runsheet.CueInput{
		ScheduledTime:   runsheet.MustClockTime("08:40"),
		DurationMinutes: 10,
		Title:           "Radio Check",
		CueType:         runsheet.CueTypeAudio,
		TechnicianID:    "sam",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam Rivera", checked.TechnicianName)

	// OSC and HTTP see the same board.
	board, err := client.Board()
	require.NoError(t, err)
	require.Len(t, board, 9)
	assert.Equal(t, "Doors Open", board[0].Title)
	assert.Equal(t, runsheet.DueNow, board[0].Due.Kind)
	assert.Equal(t, "Radio Check", board[1].Title)
	assert.Equal(t, runsheet.DueNow, board[1].Due.Kind)
	assert.Equal(t, runsheet.DueOnTime, board[2].Due.Kind)

	var httpBoard []runsheet.BoardEntry
	getJSON(t, base+"/board", &httpBoard)
	require.Len(t, httpBoard, 9)
	assert.Equal(t, board[1].ID, httpBoard[1].ID)

	// Start over OSC, complete over HTTP.
	live, err := client.Command(doors.ID, runsheet.CommandStart)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusLive, live.Status)

	resp = postJSON(t, base+"/cues/"+doors.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Completing again is rejected on both surfaces.
	resp = postJSON(t, base+"/cues/"+doors.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
	_, err = client.Command(doors.ID, runsheet.CommandComplete)
	var replyErr *oscctl.ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, runsheet.CodeInvalidTransition, replyErr.Code)

	_, err = client.Command(checked.ID, runsheet.CommandSkip)
	require.NoError(t, err)

	stats, err := client.Stats()
	require.NoError(t, err)
	assert.Equal(t, runsheet.Stats{Total: 9, Upcoming: 7, Completed: 1, Skipped: 1}, stats)

	// Restart: a fresh run set over a reopened store hydrates the same state.
	require.NoError(t, oscServer.Stop())
	require.NoError(t, db.Close())

	reopened, err := store.Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	ids, err := reopened.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{runID}, ids)

	c, err := newRuns(reopened).Controller(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, stats, c.Stats())

	restored, err := c.Get(doors.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusCompleted, restored.Status)

	restored, err = c.Get(checked.ID)
	require.NoError(t, err)
	assert.Equal(t, runsheet.StatusSkipped, restored.Status)
	assert.Equal(t, "Sam Rivera", restored.TechnicianName)

	// Reset goes through the reopened store.
	require.NoError(t, c.ResetAll(ctx))
	assert.Equal(t, runsheet.Stats{Total: 9, Upcoming: 9}, c.Stats())

	persisted, err := reopened.List(ctx, runID)
	require.NoError(t, err)
	for _, cue := range persisted {
		assert.Equal(t, runsheet.StatusUpcoming, cue.Status, cue.Title)
	}
}
