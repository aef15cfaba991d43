package runsheet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Option configures a Controller.
type Option func(*Controller)

// WithDirectory resolves technician names on every returned cue.
func WithDirectory(d Directory) Option {
	return func(c *Controller) { c.directory = d }
}

// WithClock sets the clock used by Board.
func WithClock(clock *ScheduleClock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithExclusiveLive rejects start and resume while another cue of the run is live.
// Off by default: several cues may be live at once.
func WithExclusiveLive(exclusive bool) Option {
	return func(c *Controller) { c.exclusiveLive = exclusive }
}

// Controller is the single entry point for operator commands against one run.
type Controller struct {
	runID         string
	store         Store
	registry      *Registry
	directory     Directory
	clock         *ScheduleClock
	exclusiveLive bool
	startMu       sync.Mutex // serializes starts when exclusiveLive is set
}

// BoardEntry pairs a cue with its advisory due state.
type BoardEntry struct {
	Cue
	Due DueState `json:"due"`
}

// NewController loads the run's persisted cues and returns a controller for it.
func NewController(ctx context.Context, runID string, store Store, opts ...Option) (*Controller, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id must not be empty")
	}
	if store == nil {
		return nil, fmt.Errorf("cue store must not be nil")
	}
	c := &Controller{
		runID:    runID,
		store:    store,
		registry: NewRegistry(),
		clock:    NewScheduleClock(nil, nil),
	}
	for _, opt := range opts {
		opt(c)
	}

	cues, err := store.List(ctx, runID)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	for _, cue := range cues {
		if !cue.Status.Valid() {
			return nil, fmt.Errorf("load cue %s: unknown status %q", cue.ID, cue.Status)
		}
		if err := c.registry.insert(cue); err != nil {
			return nil, fmt.Errorf("load cue %s: %w", cue.ID, err)
		}
	}
	log.Debug("Loaded run", "run", runID, "cues", len(cues), "exclusive_live", c.exclusiveLive)
	return c, nil
}

// RunID returns the run key this controller owns.
func (c *Controller) RunID() string {
	return c.runID
}

// Clock returns the clock used for due states.
func (c *Controller) Clock() *ScheduleClock {
	return c.clock
}

// CreateCue validates in, persists it and registers the new upcoming cue.
func (c *Controller) CreateCue(ctx context.Context, in CueInput) (Cue, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		log.Warn("Rejected cue", "run", c.runID, "title", in.Title, "error", err)
		return Cue{}, err
	}

	stored, err := c.store.Create(ctx, c.runID, in)
	if err != nil {
		return Cue{}, c.persistenceFailure("create", "", err)
	}
	if stored.ID == "" {
		return Cue{}, c.persistenceFailure("create", "", fmt.Errorf("store returned a cue without id"))
	}
	cue, err := c.registry.Add(stored)
	if err != nil {
		return Cue{}, err
	}

	log.Info("Cue created", "run", c.runID, "cue", cue.ID, "at", cue.ScheduledTime, "title", cue.Title)
	return c.view(cue), nil
}

// DeleteCue removes a cue in any status.
func (c *Controller) DeleteCue(ctx context.Context, id string) error {
	c.registry.mu.RLock()
	e, err := c.registry.lookup(id)
	c.registry.mu.RUnlock()
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	err = c.store.Delete(ctx, c.runID, id)
	if err != nil && !IsNotFound(err) {
		e.mu.Unlock()
		return c.persistenceFailure("delete", id, err)
	}
	// commands queued on the entry see it as gone from here on
	e.removed = true
	e.mu.Unlock()

	if rmErr := c.registry.Remove(id); rmErr != nil && !IsNotFound(rmErr) {
		return rmErr
	}
	if err != nil {
		log.Warn("Cue was already deleted from the store", "run", c.runID, "cue", id)
		return err
	}
	log.Info("Cue deleted", "run", c.runID, "cue", id)
	return nil
}

// StartCue moves an upcoming cue to live, or resumes a delayed one.
func (c *Controller) StartCue(ctx context.Context, id string) (Cue, error) {
	return c.Apply(ctx, id, CommandStart)
}

// CompleteCue moves a live cue to completed.
func (c *Controller) CompleteCue(ctx context.Context, id string) (Cue, error) {
	return c.Apply(ctx, id, CommandComplete)
}

// SkipCue moves an upcoming cue to skipped.
func (c *Controller) SkipCue(ctx context.Context, id string) (Cue, error) {
	return c.Apply(ctx, id, CommandSkip)
}

// DelayCue moves a live cue to delayed.
func (c *Controller) DelayCue(ctx context.Context, id string) (Cue, error) {
	return c.Apply(ctx, id, CommandDelay)
}

// Apply runs cmd against the cue with the given id. The check against the transition
// table, the store write and the in-memory update happen under the cue's lock, so two
// concurrent commands on one cue cannot both pass the check. The store write is
// conditional on the status seen in memory; when another writer sharing the store got
// there first, the entry is refreshed and the command fails as an invalid transition.
// On any error the cue's status is what the store holds.
func (c *Controller) Apply(ctx context.Context, id string, cmd Command) (Cue, error) {
	cue, gone, err := c.apply(ctx, id, cmd)
	if gone {
		_ = c.registry.Remove(id)
	}
	return cue, err
}

func (c *Controller) apply(ctx context.Context, id string, cmd Command) (Cue, bool, error) {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	e, err := c.registry.lookup(id)
	if err != nil {
		return Cue{}, false, err
	}

	if c.exclusiveLive && cmd == CommandStart {
		c.startMu.Lock()
		defer c.startMu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Cue{}, false, &NotFoundError{ID: id}
	}

	from := e.cue.Status
	next, err := ApplyTransition(from, cmd)
	if err != nil {
		log.Warn("Rejected cue command", "run", c.runID, "cue", id, "command", cmd, "status", from)
		return Cue{}, false, err
	}
	if c.exclusiveLive && next == StatusLive {
		if other := c.liveCueExcept(id); other != "" {
			log.Warn("Rejected cue command", "run", c.runID, "cue", id, "command", cmd, "live", other)
			return Cue{}, false, &InvalidTransitionError{
				Command: cmd,
				Status:  from,
				Reason:  fmt.Sprintf("cue %s is already live", other),
			}
		}
	}

	if _, err := c.store.UpdateStatus(ctx, c.runID, id, from, next); err != nil {
		var conflict *StatusConflictError
		switch {
		case errors.As(err, &conflict) && conflict.Actual.Valid():
			e.cue.Status = conflict.Actual
			log.Warn("Cue changed by another writer", "run", c.runID, "cue", id, "command", cmd, "expected", from, "stored", conflict.Actual)
			return Cue{}, false, &InvalidTransitionError{
				Command: cmd,
				Status:  conflict.Actual,
				Reason:  fmt.Sprintf("status changed from %s to %s by another writer", from, conflict.Actual),
			}
		case IsNotFound(err):
			e.removed = true
			log.Warn("Cue deleted by another writer", "run", c.runID, "cue", id, "command", cmd)
			return Cue{}, true, &NotFoundError{ID: id}
		}
		return Cue{}, false, c.persistenceFailure("update status", id, err)
	}
	e.cue.Status = next

	log.Info("Cue transitioned", "run", c.runID, "cue", id, "command", cmd, "from", from, "to", next)
	return c.view(e.cue), false, nil
}

// liveCueExcept returns the id of a live cue other than id, or "".
// Caller holds registry.mu (read), startMu and the entry lock of id.
func (c *Controller) liveCueExcept(id string) string {
	for otherID, other := range c.registry.entries {
		if otherID == id {
			continue
		}
		other.mu.Lock()
		live := !other.removed && other.cue.Status == StatusLive
		other.mu.Unlock()
		if live {
			return otherID
		}
	}
	return ""
}

// ResetAll forces every cue of the run back to upcoming. It is an administrative
// override and deliberately bypasses the transition table.
func (c *Controller) ResetAll(ctx context.Context) error {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if err := c.store.ResetAll(ctx, c.runID); err != nil {
		return c.persistenceFailure("reset all", "", err)
	}
	for _, e := range c.registry.entries {
		e.mu.Lock()
		e.cue.Status = StatusUpcoming
		e.mu.Unlock()
	}

	log.Info("Run reset", "run", c.runID, "cues", len(c.registry.entries))
	return nil
}

// Stats recomputes the run summary from the registry.
func (c *Controller) Stats() Stats {
	return ComputeStats(c.registry.List())
}

// List returns the run's cues in scheduled order.
func (c *Controller) List() []Cue {
	cues := c.registry.List()
	for i := range cues {
		cues[i] = c.view(cues[i])
	}
	return cues
}

// Get returns one cue.
func (c *Controller) Get(id string) (Cue, error) {
	cue, err := c.registry.Get(id)
	if err != nil {
		return Cue{}, err
	}
	return c.view(cue), nil
}

// Board returns the listed cues with due states computed against a single reading
// of the clock.
func (c *Controller) Board() []BoardEntry {
	now := c.clock.Now()
	cues := c.List()
	board := make([]BoardEntry, len(cues))
	for i, cue := range cues {
		board[i] = BoardEntry{Cue: cue, Due: c.clock.DueStateAt(now, cue)}
	}
	return board
}

// SeedTemplate creates every cue the loader supplies through CreateCue. Cues created
// before a failure are kept and returned with the error.
func (c *Controller) SeedTemplate(ctx context.Context, loader TemplateLoader) ([]Cue, error) {
	inputs, err := loader.LoadDefaultTemplate(ctx, c.runID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	created := make([]Cue, 0, len(inputs))
	for i, in := range inputs {
		cue, err := c.CreateCue(ctx, in)
		if err != nil {
			return created, fmt.Errorf("template cue %d (%q): %w", i+1, in.Title, err)
		}
		created = append(created, cue)
	}
	log.Info("Seeded run from template", "run", c.runID, "cues", len(created))
	return created, nil
}

func (c *Controller) view(cue Cue) Cue {
	if c.directory != nil && cue.TechnicianID != "" {
		cue.TechnicianName = c.directory.NameOf(cue.TechnicianID)
	}
	return cue
}

func (c *Controller) persistenceFailure(op, id string, err error) error {
	log.Error("Cue store failed", "run", c.runID, "op", op, "cue", id, "error", err)
	return &PersistenceError{Op: op, Err: err}
}
