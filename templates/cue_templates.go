package templates

import (
	"fmt"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// CueTemplate is one cue as written in a template file.
type CueTemplate struct {
	Time        string `json:"time" yaml:"time" toml:"time"`                // "HH:MM", run-local
	Duration    int    `json:"duration" yaml:"duration" toml:"duration"` // minutes
	Title       string `json:"title" yaml:"title" toml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Technician  string `json:"technician,omitempty" yaml:"technician,omitempty" toml:"technician,omitempty"`
	Notes       string `json:"notes,omitempty" yaml:"notes,omitempty" toml:"notes,omitempty"`
}

// Template is a named run-of-show that can seed an empty run.
type Template struct {
	Name string        `json:"name" yaml:"name" toml:"name"`
	Cues []CueTemplate `json:"cues" yaml:"cues" toml:"cues"`
}

// Input converts the template entry into a creation input.
func (ct CueTemplate) Input() (runsheet.CueInput, error) {
	at, err := runsheet.ParseClockTime(ct.Time)
	if err != nil {
		return runsheet.CueInput{}, err
	}
	cueType, err := runsheet.ParseCueType(ct.Type)
	if err != nil {
		return runsheet.CueInput{}, err
	}
	return runsheet.CueInput{
		ScheduledTime:   at,
		DurationMinutes: ct.Duration,
		Title:           ct.Title,
		Description:     ct.Description,
		CueType:         cueType,
		TechnicianID:    ct.Technician,
		Notes:           ct.Notes,
	}, nil
}

// Inputs converts every cue of the template, in file order.
func (t Template) Inputs() ([]runsheet.CueInput, error) {
	if len(t.Cues) == 0 {
		return nil, fmt.Errorf("template %q has no cues", t.Name)
	}
	inputs := make([]runsheet.CueInput, 0, len(t.Cues))
	for i, ct := range t.Cues {
		in, err := ct.Input()
		if err != nil {
			return nil, fmt.Errorf("template %q cue %d (%q): %w", t.Name, i+1, ct.Title, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Validate checks every cue against the creation rules without creating anything.
func (t Template) Validate() error {
	inputs, err := t.Inputs()
	if err != nil {
		return err
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("template %q cue %d (%q): %w", t.Name, i+1, t.Cues[i].Title, err)
		}
	}
	return nil
}
