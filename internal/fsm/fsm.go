// Package fsm models the bridge supervisor loop lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateAwaitingPeer State = "awaiting_peer"
	StateConnected    State = "connected"
	StateStopped      State = "stopped"
)

const (
	EventAccept     Event = "accept"
	EventDisconnect Event = "disconnect"
	EventStop       Event = "stop"
)

// Transition returns the next supervisor state. StateStopped is terminal.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateAwaitingPeer:
		switch event {
		case EventAccept:
			return StateConnected, nil
		case EventStop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnected:
		switch event {
		case EventDisconnect:
			return StateAwaitingPeer, nil
		case EventStop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
