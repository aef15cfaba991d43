package runsheet

import "fmt"

// Command is an operator imperative applied to a single cue.
type Command string

const (
	CommandStart    Command = "start"
	CommandComplete Command = "complete"
	CommandSkip     Command = "skip"
	CommandDelay    Command = "delay"
)

// Commands lists every operator command.
var Commands = []Command{CommandStart, CommandComplete, CommandSkip, CommandDelay}

// ParseCommand converts a transport-level command name into a Command.
func ParseCommand(value string) (Command, error) {
	switch c := Command(value); c {
	case CommandStart, CommandComplete, CommandSkip, CommandDelay:
		return c, nil
	}
	return "", fmt.Errorf("unknown cue command %q", value)
}

// transitionTable defines every legal transition.
// Key: current status → command → new status. Completed and skipped have no rows.
var transitionTable = map[Status]map[Command]Status{
	StatusUpcoming: {
		CommandStart: StatusLive,
		CommandSkip:  StatusSkipped,
	},
	StatusLive: {
		CommandComplete: StatusCompleted,
		CommandDelay:    StatusDelayed,
	},
	StatusDelayed: {
		CommandStart: StatusLive,
	},
}

// ApplyTransition returns the status reached by applying cmd to current.
// Any pair outside the table fails with *InvalidTransitionError.
func ApplyTransition(current Status, cmd Command) (Status, error) {
	next, ok := transitionTable[current][cmd]
	if !ok {
		return current, &InvalidTransitionError{Command: cmd, Status: current}
	}
	return next, nil
}

// CanApply reports whether cmd is accepted in status s.
func CanApply(s Status, cmd Command) bool {
	_, ok := transitionTable[s][cmd]
	return ok
}

// AvailableCommands returns the commands accepted in status s, in Commands order.
func AvailableCommands(s Status) []Command {
	var out []Command
	for _, cmd := range Commands {
		if CanApply(s, cmd) {
			out = append(out, cmd)
		}
	}
	return out
}
