package messages

import (
	"fmt"
	"strings"
)

// OSC message types and address constants for the runsheet control surface.

// Message types
type MessageType string

const (
	// Run messages
	MsgRunNew   MessageType = "run_new"
	MsgRunCues  MessageType = "run_cues"
	MsgRunBoard MessageType = "run_board"
	MsgRunStats MessageType = "run_stats"
	MsgRunReset MessageType = "run_reset"

	// Cue messages
	MsgCueGet      MessageType = "cue_get"
	MsgCueStart    MessageType = "cue_start"
	MsgCueComplete MessageType = "cue_complete"
	MsgCueSkip     MessageType = "cue_skip"
	MsgCueDelay    MessageType = "cue_delay"
	MsgCueDelete   MessageType = "cue_delete"
)

// OSC address patterns
const (
	AddrRoot = "/runsheet"

	// Run level
	AddrRunNew   = "/runsheet/{run}/new"
	AddrRunCues  = "/runsheet/{run}/cues"
	AddrRunBoard = "/runsheet/{run}/board"
	AddrRunStats = "/runsheet/{run}/stats"
	AddrRunReset = "/runsheet/{run}/reset"

	// Cue level (by id)
	AddrCueGet      = "/runsheet/{run}/cue/{cue_id}"
	AddrCueStart    = "/runsheet/{run}/cue/{cue_id}/start"
	AddrCueComplete = "/runsheet/{run}/cue/{cue_id}/complete"
	AddrCueSkip     = "/runsheet/{run}/cue/{cue_id}/skip"
	AddrCueDelay    = "/runsheet/{run}/cue/{cue_id}/delay"
	AddrCueDelete   = "/runsheet/{run}/cue/{cue_id}/delete"

	// ReplyPrefix is prepended to a request address to form its reply address.
	ReplyPrefix = "/reply"
)

// Run-level actions as they appear in the last address segment.
const (
	ActionNew   = "new"
	ActionCues  = "cues"
	ActionBoard = "board"
	ActionStats = "stats"
	ActionReset = "reset"
	ActionGet   = "get"
)

// Cue-level actions as they appear in the last address segment.
const (
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionSkip     = "skip"
	ActionDelay    = "delay"
	ActionDelete   = "delete"
)

var addressByType = map[MessageType]string{
	MsgRunNew:      AddrRunNew,
	MsgRunCues:     AddrRunCues,
	MsgRunBoard:    AddrRunBoard,
	MsgRunStats:    AddrRunStats,
	MsgRunReset:    AddrRunReset,
	MsgCueGet:      AddrCueGet,
	MsgCueStart:    AddrCueStart,
	MsgCueComplete: AddrCueComplete,
	MsgCueSkip:     AddrCueSkip,
	MsgCueDelay:    AddrCueDelay,
	MsgCueDelete:   AddrCueDelete,
}

// CueCommandTypes maps a cue command name to its message type.
var CueCommandTypes = map[string]MessageType{
	ActionStart:    MsgCueStart,
	ActionComplete: MsgCueComplete,
	ActionSkip:     MsgCueSkip,
	ActionDelay:    MsgCueDelay,
	ActionDelete:   MsgCueDelete,
}

// OSCAddressBuilder builds OSC addresses for one run.
type OSCAddressBuilder struct {
	runID string
}

// NewOSCAddressBuilder creates a new address builder
func NewOSCAddressBuilder(runID string) *OSCAddressBuilder {
	return &OSCAddressBuilder{
		runID: runID,
	}
}

// RunID returns the run the builder addresses.
func (b *OSCAddressBuilder) RunID() string {
	return b.runID
}

// BuildAddress builds an OSC address from a message type and parameters.
// Returns "" for an unknown type or when the run id is missing.
func (b *OSCAddressBuilder) BuildAddress(msgType MessageType, params map[string]string) string {
	address, ok := addressByType[msgType]
	if !ok || b.runID == "" {
		return ""
	}

	address = strings.ReplaceAll(address, "{run}", b.runID)

	// Replace other parameters
	for key, value := range params {
		placeholder := fmt.Sprintf("{%s}", key)
		address = strings.ReplaceAll(address, placeholder, value)
	}

	if strings.Contains(address, "{") {
		return ""
	}
	return address
}

// BuildCueAddress builds the address of a command against one cue.
func (b *OSCAddressBuilder) BuildCueAddress(msgType MessageType, cueID string) string {
	return b.BuildAddress(msgType, map[string]string{"cue_id": cueID})
}

// BuildReplyAddress builds a reply address for a given request address
func (b *OSCAddressBuilder) BuildReplyAddress(requestAddress string) string {
	return ReplyPrefix + requestAddress
}

// GetRunPrefix returns the address prefix shared by every message of the run.
func (b *OSCAddressBuilder) GetRunPrefix() string {
	if b.runID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", AddrRoot, b.runID)
}

// Address is a parsed control-surface address.
type Address struct {
	RunID  string
	CueID  string // empty for run-level actions
	Action string // ActionNew, ActionCues, ..., or a cue command name
}

// ReadOnly reports whether the action leaves the run unchanged, so a request
// for it may be sent again after a lost reply.
func (a Address) ReadOnly() bool {
	switch a.Action {
	case ActionCues, ActionBoard, ActionStats, ActionGet:
		return true
	}
	return false
}

// ParseAddress splits an incoming address into run, cue and action.
func ParseAddress(address string) (Address, error) {
	if !strings.HasPrefix(address, AddrRoot+"/") {
		return Address{}, fmt.Errorf("address %q is outside %s", address, AddrRoot)
	}
	parts := strings.Split(strings.TrimPrefix(address, AddrRoot+"/"), "/")
	for _, p := range parts {
		if p == "" {
			return Address{}, fmt.Errorf("address %q has an empty segment", address)
		}
	}

	switch {
	case len(parts) == 2:
		switch parts[1] {
		case ActionNew, ActionCues, ActionBoard, ActionStats, ActionReset:
			return Address{RunID: parts[0], Action: parts[1]}, nil
		}
	case len(parts) == 3 && parts[1] == "cue":
		return Address{RunID: parts[0], CueID: parts[2], Action: ActionGet}, nil
	case len(parts) == 4 && parts[1] == "cue":
		if _, ok := CueCommandTypes[parts[3]]; ok {
			return Address{RunID: parts[0], CueID: parts[2], Action: parts[3]}, nil
		}
	}
	return Address{}, fmt.Errorf("unknown runsheet address %q", address)
}
