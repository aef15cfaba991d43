package runsheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the operator-asserted lifecycle state of a Cue.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusLive      Status = "live"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusUpcoming, StatusLive, StatusDelayed, StatusCompleted, StatusSkipped}

// Valid reports whether s is one of the five defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusDelayed, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether no operator command is accepted in s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// ParseStatus converts a stored or transmitted value into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown cue status %q", value)
	}
	return s, nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CueType classifies what department a cue belongs to.
type CueType string

const (
	CueTypeGeneral  CueType = "general"
	CueTypeAudio    CueType = "audio"
	CueTypeVisual   CueType = "visual"
	CueTypeLighting CueType = "lighting"
	CueTypeStage    CueType = "stage"
)

// CueTypes lists every cue type.
var CueTypes = []CueType{CueTypeGeneral, CueTypeAudio, CueTypeVisual, CueTypeLighting, CueTypeStage}

func (t CueType) Valid() bool {
	switch t {
	case CueTypeGeneral, CueTypeAudio, CueTypeVisual, CueTypeLighting, CueTypeStage:
		return true
	}
	return false
}

// ParseCueType converts value into a CueType. An empty value means general.
func ParseCueType(value string) (CueType, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return CueTypeGeneral, nil
	}
	t := CueType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown cue type %q", value)
	}
	return t, nil
}

// ClockTime is a run-local time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" in 24-hour form.
func ParseClockTime(value string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: expected HH:MM", value)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid hour in %q: %w", value, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid minute in %q: %w", value, err)
	}
	ct := ClockTime{Hour: hour, Minute: minute}
	if !ct.Valid() {
		return ClockTime{}, fmt.Errorf("time of day %q out of range", value)
	}
	return ct, nil
}

// MustClockTime is ParseClockTime for literals; it panics on malformed input.
func MustClockTime(value string) ClockTime {
	ct, err := ParseClockTime(value)
	if err != nil {
		panic(err)
	}
	return ct
}

func (c ClockTime) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On returns the instant c falls on during the calendar day of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, c.Hour, c.Minute, 0, 0, day.Location())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Cue is a single timed technical action in a run-of-show.
type Cue struct {
	ID              string    `json:"id"`
	ScheduledTime   ClockTime `json:"scheduledTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	CueType         CueType   `json:"cueType"`
	TechnicianID    string    `json:"technicianId,omitempty"`
	TechnicianName  string    `json:"technicianName,omitempty"` // display only, resolved through a Directory
	Notes           string    `json:"notes,omitempty"`
	Status          Status    `json:"status"`
}

// Duration returns the intended running time.
func (c Cue) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// StartOn returns the scheduled start on the calendar day of day.
func (c Cue) StartOn(day time.Time) time.Time {
	return c.ScheduledTime.On(day)
}

// EndOn returns the scheduled end on the calendar day of day.
func (c Cue) EndOn(day time.Time) time.Time {
	return c.StartOn(day).Add(c.Duration())
}

// CueInput carries the operator-supplied fields of a new cue.
type CueInput struct {
	ScheduledTime   ClockTime `json:"scheduledTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	CueType         CueType   `json:"cueType,omitempty"`
	TechnicianID    string    `json:"technicianId,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// Normalize trims text fields and defaults an empty cue type to general.
func (in CueInput) Normalize() CueInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.TechnicianID = strings.TrimSpace(in.TechnicianID)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.CueType == "" {
		in.CueType = CueTypeGeneral
	}
	return in
}

// Validate checks the creation invariants. The returned error is a *ValidationError.
func (in CueInput) Validate() error {
	in = in.Normalize()
	if in.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.DurationMinutes < 1 {
		return &ValidationError{Field: "durationMinutes", Reason: fmt.Sprintf("must be at least 1, got %d", in.DurationMinutes)}
	}
	if !in.ScheduledTime.Valid() {
		return &ValidationError{Field: "scheduledTime", Reason: fmt.Sprintf("%s is not a time of day", in.ScheduledTime)}
	}
	if !in.CueType.Valid() {
		return &ValidationError{Field: "cueType", Reason: fmt.Sprintf("unknown cue type %q", in.CueType)}
	}
	return nil
}

// NewCue builds an upcoming Cue from a normalized input.
func (in CueInput) NewCue(id string) Cue {
	in = in.Normalize()
	return Cue{
		ID:              id,
		ScheduledTime:   in.ScheduledTime,
		DurationMinutes: in.DurationMinutes,
		Title:           in.Title,
		Description:     in.Description,
		CueType:         in.CueType,
		TechnicianID:    in.TechnicianID,
		Notes:           in.Notes,
		Status:          StatusUpcoming,
	}
}

// Input returns the creation fields of c.
func (c Cue) Input() CueInput {
	return CueInput{
		ScheduledTime:   c.ScheduledTime,
		DurationMinutes: c.DurationMinutes,
		Title:           c.Title,
		Description:     c.Description,
		CueType:         c.CueType,
		TechnicianID:    c.TechnicianID,
		Notes:           c.Notes,
	}
}
