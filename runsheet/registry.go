package runsheet

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry holds the cues of one run and lists them in scheduled order.
// Ties on scheduled time keep creation order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
}

// entry guards one cue. Transitions lock the entry, not the registry,
// so commands against different cues do not serialize.
type entry struct {
	mu      sync.Mutex
	cue     Cue
	seq     uint64
	removed bool
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Add validates cue, assigns an id when it has none and registers it as upcoming.
func (r *Registry) Add(cue Cue) (Cue, error) {
	in := cue.Input().Normalize()
	if err := in.Validate(); err != nil {
		return Cue{}, err
	}
	id := cue.ID
	if id == "" {
		id = uuid.NewString()
	}
	added := in.NewCue(id)
	if err := r.insert(added); err != nil {
		return Cue{}, err
	}
	return added, nil
}

// insert registers cue as given, status included. Used for hydration from a store.
func (r *Registry) insert(cue Cue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[cue.ID]; exists {
		return &ValidationError{Field: "id", Reason: "duplicate cue id " + cue.ID}
	}
	r.nextSeq++
	r.entries[cue.ID] = &entry{cue: cue, seq: r.nextSeq}
	return nil
}

// Remove drops the cue with the given id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// Get returns a copy of the cue with the given id.
func (r *Registry) Get(id string) (Cue, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Cue{}, &NotFoundError{ID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cue, nil
}

// Len returns the number of cues.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns a snapshot sorted by scheduled time, then creation order.
func (r *Registry) List() []Cue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

// listLocked requires r.mu to be held in either mode.
func (r *Registry) listLocked() []Cue {
	type row struct {
		cue Cue
		seq uint64
	}
	rows := make([]row, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		rows = append(rows, row{cue: e.cue, seq: e.seq})
		e.mu.Unlock()
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].cue.ScheduledTime.Minutes(), rows[j].cue.ScheduledTime.Minutes()
		if a != b {
			return a < b
		}
		return rows[i].seq < rows[j].seq
	})
	cues := make([]Cue, len(rows))
	for i := range rows {
		cues[i] = rows[i].cue
	}
	return cues
}

// lookup returns the entry for id. Caller must hold r.mu.
func (r *Registry) lookup(id string) (*entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}
