package runsheet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Runs owns one Controller per run key. Controllers are created on first use and
// hydrated from the shared Store; runs share no in-memory state.
type Runs struct {
	mu          sync.Mutex
	store       Store
	opts        []Option
	controllers map[string]*Controller
}

func NewRuns(store Store, opts ...Option) *Runs {
	return &Runs{
		store:       store,
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the controller for runID, loading it from the store if needed.
func (r *Runs) Controller(ctx context.Context, runID string) (*Controller, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[runID]; ok {
		return c, nil
	}
	c, err := NewController(ctx, runID, r.store, r.opts...)
	if err != nil {
		return nil, err
	}
	r.controllers[runID] = c
	return c, nil
}

// Existing returns the controller for runID without creating a run. A run
// unknown to this process is loaded only when the store holds cues for it;
// otherwise a *RunNotFoundError is returned and nothing is cached.
func (r *Runs) Existing(ctx context.Context, runID string) (*Controller, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[runID]; ok {
		return c, nil
	}
	c, err := NewController(ctx, runID, r.store, r.opts...)
	if err != nil {
		return nil, err
	}
	if c.Stats().Total == 0 {
		return nil, &RunNotFoundError{RunID: runID}
	}
	r.controllers[runID] = c
	return c, nil
}

// Loaded returns the controllers created so far, ordered by run id.
func (r *Runs) Loaded() []*Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].runID < out[j].runID })
	return out
}
