package runsheet

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeSource supplies the current instant. A zero time means the time is unavailable.
type TimeSource func() time.Time

// DueKind is the advisory schedule classification of a cue.
type DueKind string

const (
	DueUnknown DueKind = "unknown"
	DueOnTime  DueKind = "on-time"
	DueNow     DueKind = "due-now"
	DueOverdue DueKind = "overdue"
)

// DueState is derived from the clock on every read. It is never stored and never
// changes a cue's status.
type DueState struct {
	Kind DueKind `json:"kind"`
	// Overdue is how far behind schedule the cue is. Zero unless Kind is DueOverdue.
	Overdue time.Duration `json:"overdueSeconds"`
}

func (d DueState) String() string {
	if d.Kind == DueOverdue {
		return fmt.Sprintf("overdue-by(%s)", d.Overdue)
	}
	return string(d.Kind)
}

// MarshalJSON renders Overdue in whole seconds.
func (d DueState) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"kind":%q,"overdueSeconds":%d,"label":%q}`,
		d.Kind, int64(d.Overdue/time.Second), d.String())), nil
}

func (d *DueState) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind           DueKind `json:"kind"`
		OverdueSeconds int64   `json:"overdueSeconds"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.Kind = wire.Kind
	d.Overdue = time.Duration(wire.OverdueSeconds) * time.Second
	return nil
}

// ScheduleClock computes due states against an injected time source.
type ScheduleClock struct {
	now      TimeSource
	location *time.Location
}

// NewScheduleClock returns a clock reading now in loc. A nil now uses time.Now;
// a nil loc uses time.Local.
func NewScheduleClock(now TimeSource, loc *time.Location) *ScheduleClock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleClock{now: now, location: loc}
}

// FixedTime returns a TimeSource that always reports t.
func FixedTime(t time.Time) TimeSource {
	return func() time.Time { return t }
}

// Location returns the run-local location scheduled times are interpreted in.
func (c *ScheduleClock) Location() *time.Location {
	return c.location
}

// Now reads the time source in run-local time. The zero time is passed through.
func (c *ScheduleClock) Now() time.Time {
	t := c.now()
	if t.IsZero() {
		return t
	}
	return t.In(c.location)
}

// DueState computes the due state of cue at the current time.
func (c *ScheduleClock) DueState(cue Cue) DueState {
	return c.DueStateAt(c.Now(), cue)
}

// DueStateAt computes the due state of cue at now.
func (c *ScheduleClock) DueStateAt(now time.Time, cue Cue) DueState {
	if now.IsZero() {
		return DueState{Kind: DueUnknown}
	}
	now = now.In(c.location)
	start := cue.StartOn(now)
	end := cue.EndOn(now)

	switch cue.Status {
	case StatusUpcoming:
		switch {
		case now.Before(start):
			return DueState{Kind: DueOnTime}
		case now.Before(end):
			return DueState{Kind: DueNow}
		default:
			return DueState{Kind: DueOverdue, Overdue: now.Sub(start)}
		}
	case StatusLive, StatusDelayed:
		if now.Before(end) {
			return DueState{Kind: DueOnTime}
		}
		return DueState{Kind: DueOverdue, Overdue: now.Sub(end)}
	case StatusCompleted, StatusSkipped:
		return DueState{Kind: DueOnTime}
	}
	return DueState{Kind: DueUnknown}
}
