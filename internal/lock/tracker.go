package lock

import (
	"log/slog"
	"sync"
)

// Sender pushes a target state code to the physical lock.
type Sender interface {
	Send(value int)
}

// Tracker holds the reported and requested lock state for the accessory side.
type Tracker struct {
	sender Sender
	logger *slog.Logger

	mu       sync.Mutex
	current  State
	target   State
	reported bool
	onChange func(State)
}

// NewTracker starts with target as the requested state and an unknown current state.
func NewTracker(target State, sender Sender, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sender:  sender,
		logger:  logger.With("component", "lock"),
		current: StateUnknown,
		target:  target,
	}
}

// OnChange registers a callback for reported current-state changes.
func (t *Tracker) OnChange(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Current returns the last state reported by the driver.
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Target returns the last requested state.
func (t *Tracker) Target() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

// Report records a state code received from the driver.
func (t *Tracker) Report(code int) {
	state := State(code)
	if !state.Known() {
		t.logger.Warn("driver reported unknown lock state", "value", code)
	}

	t.mu.Lock()
	previous := t.current
	first := !t.reported
	t.current = state
	t.reported = true
	onChange := t.onChange
	t.mu.Unlock()

	if !first && previous == state {
		t.logger.Debug("lock state unchanged", "state", state.String())
		return
	}
	t.logger.Info("lock state reported", "state", state.String(), "previous", previous.String())
	if onChange != nil {
		onChange(state)
	}
}

// SetTarget records the requested state and pushes it to the driver. The
// accessory layer that receives lock commands is its caller; serve only resyncs.
func (t *Tracker) SetTarget(state State) {
	t.mu.Lock()
	t.target = state
	t.mu.Unlock()

	t.logger.Info("lock target set", "state", state.String())
	if t.sender != nil {
		t.sender.Send(int(state))
	}
}

// Resync pushes the current target again, e.g. after the driver reconnects.
func (t *Tracker) Resync() {
	target := t.Target()
	t.logger.Info("resyncing lock target", "state", target.String())
	if t.sender != nil {
		t.sender.Send(int(target))
	}
}
