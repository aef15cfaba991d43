package runsheet

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store persists the cues of every run. The Controller writes through it:
// an in-memory change is applied only after the Store call returns nil.
type Store interface {
	Create(ctx context.Context, runID string, in CueInput) (Cue, error)
	Delete(ctx context.Context, runID, cueID string) error
	// UpdateStatus moves a cue from one status to another. The write only happens
	// while the stored status is still from; otherwise it fails with a
	// *StatusConflictError carrying the stored status, or *NotFoundError.
	UpdateStatus(ctx context.Context, runID, cueID string, from, to Status) (Cue, error)
	// List returns the run's cues in creation order.
	List(ctx context.Context, runID string) ([]Cue, error)
	ResetAll(ctx context.Context, runID string) error
}

// Directory resolves technician ids to display names. It is never used for validation.
type Directory interface {
	NameOf(technicianID string) string
}

// DirectoryMap is a static Directory.
type DirectoryMap map[string]string

func (d DirectoryMap) NameOf(technicianID string) string {
	return d[technicianID]
}

// TemplateLoader supplies the cues of a default run-of-show. Each input is created
// through the ordinary creation path.
type TemplateLoader interface {
	LoadDefaultTemplate(ctx context.Context, runID string) ([]CueInput, error)
}

// MemoryStore is a Store kept entirely in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string][]Cue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]Cue)}
}

func (m *MemoryStore) Create(ctx context.Context, runID string, in CueInput) (Cue, error) {
	if err := ctx.Err(); err != nil {
		return Cue{}, err
	}
	if err := in.Validate(); err != nil {
		return Cue{}, err
	}
	cue := in.NewCue(uuid.NewString())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = append(m.runs[runID], cue)
	return cue, nil
}

func (m *MemoryStore) Delete(ctx context.Context, runID, cueID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cues := m.runs[runID]
	for i := range cues {
		if cues[i].ID == cueID {
			m.runs[runID] = append(cues[:i:i], cues[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{ID: cueID}
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, runID, cueID string, from, to Status) (Cue, error) {
	if err := ctx.Err(); err != nil {
		return Cue{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cues := m.runs[runID]
	for i := range cues {
		if cues[i].ID == cueID {
			if cues[i].Status != from {
				return Cue{}, &StatusConflictError{ID: cueID, Expected: from, Actual: cues[i].Status}
			}
			cues[i].Status = to
			return cues[i], nil
		}
	}
	return Cue{}, &NotFoundError{ID: cueID}
}

func (m *MemoryStore) List(ctx context.Context, runID string) ([]Cue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Cue, len(m.runs[runID]))
	copy(out, m.runs[runID])
	return out, nil
}

func (m *MemoryStore) ResetAll(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs[runID] {
		m.runs[runID][i].Status = StatusUpcoming
	}
	return nil
}

// RunLister is implemented by stores that can enumerate their runs.
type RunLister interface {
	RunIDs(ctx context.Context) ([]string, error)
}

// RunIDs returns the ids of runs holding at least one cue.
func (m *MemoryStore) RunIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.runs))
	for id, cues := range m.runs {
		if len(cues) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
