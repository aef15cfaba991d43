// Package watch periodically reports cues that have become due or overdue.
// It only reads: a cue's status is never changed by the clock.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// DefaultSchedule is the sweep interval used when none is configured.
const DefaultSchedule = "@every 5s"

// Alert reports a cue entering the due-now or overdue state.
type Alert struct {
	RunID string
	Cue   runsheet.Cue
	Due   runsheet.DueState
}

func (a Alert) String() string {
	return fmt.Sprintf("%s/%s %q %s", a.RunID, a.Cue.ID, a.Cue.Title, a.Due)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLocation sets the zone cron specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(w *Watcher) {
		if loc != nil {
			w.location = loc
		}
	}
}

// WithAlertHandler is called for every alert in addition to logging.
func WithAlertHandler(fn func(Alert)) Option {
	return func(w *Watcher) { w.onAlert = fn }
}

// Watcher sweeps every loaded run on a cron schedule.
type Watcher struct {
	runs     *runsheet.Runs
	schedule string
	location *time.Location
	onAlert  func(Alert)

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	last    map[string]runsheet.DueKind // run/cue -> kind seen on the previous sweep
}

// New validates schedule and prepares a stopped watcher.
func New(runs *runsheet.Runs, schedule string, opts ...Option) (*Watcher, error) {
	if runs == nil {
		return nil, errors.New("watch: runs must not be nil")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	w := &Watcher{
		runs:     runs,
		schedule: schedule,
		location: time.Local,
		last:     make(map[string]runsheet.DueKind),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(w.location),
		cron.WithLogger(cron.PrintfLogger(log.Default())),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := w.cron.AddFunc(schedule, func() { w.Sweep() }); err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Schedule returns the cron spec in use.
func (w *Watcher) Schedule() string {
	return w.schedule
}

// Start begins sweeping in the background.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}
	w.cron.Start()
	w.running = true
	log.Info("Due watcher started", "schedule", w.schedule)
	return nil
}

// Stop halts the schedule. The returned context is done once a sweep in
// progress has finished.
func (w *Watcher) Stop() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	w.running = false
	log.Info("Due watcher stopped")
	return w.cron.Stop()
}

// Sweep computes the due state of every cue in every loaded run and returns
// the alerts raised by this sweep. A cue alerts once per state it enters.
func (w *Watcher) Sweep() []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool)
	var alerts []Alert
	for _, c := range w.runs.Loaded() {
		for _, entry := range c.Board() {
			key := c.RunID() + "/" + entry.ID
			seen[key] = true

			prev, known := w.last[key]
			w.last[key] = entry.Due.Kind
			if known && prev == entry.Due.Kind {
				continue
			}
			if entry.Due.Kind != runsheet.DueNow && entry.Due.Kind != runsheet.DueOverdue {
				continue
			}

			alert := Alert{RunID: c.RunID(), Cue: entry.Cue, Due: entry.Due}
			alerts = append(alerts, alert)
			w.report(alert)
		}
	}

	for key := range w.last {
		if !seen[key] {
			delete(w.last, key)
		}
	}
	return alerts
}

func (w *Watcher) report(a Alert) {
	switch a.Due.Kind {
	case runsheet.DueOverdue:
		log.Warn("Cue overdue", "run", a.RunID, "cue", a.Cue.ID, "title", a.Cue.Title, "status", a.Cue.Status, "by", a.Due.Overdue)
	default:
		log.Info("Cue due now", "run", a.RunID, "cue", a.Cue.ID, "title", a.Cue.Title, "at", a.Cue.ScheduledTime)
	}
	if w.onAlert != nil {
		w.onAlert(a)
	}
}
