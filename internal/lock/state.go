// Package lock tracks the lock mechanism state exchanged with the driver.
package lock

import (
	"fmt"
	"strings"
)

// State is a lock mechanism state code as carried on the bridge socket.
type State int

const (
	StateUnsecured State = 0
	StateSecured   State = 1
	StateJammed    State = 2
	StateUnknown   State = 3
)

func (s State) String() string {
	switch s {
	case StateUnsecured:
		return "unsecured"
	case StateSecured:
		return "secured"
	case StateJammed:
		return "jammed"
	case StateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Known reports whether s is one of the defined mechanism states.
func (s State) Known() bool {
	return s >= StateUnsecured && s <= StateUnknown
}

// ParseDefault maps the configured startup state ("locked" or "unlocked").
func ParseDefault(value string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "locked":
		return StateSecured, nil
	case "unlocked":
		return StateUnsecured, nil
	default:
		return StateUnknown, fmt.Errorf("unknown lock default %q (want locked or unlocked)", value)
	}
}
