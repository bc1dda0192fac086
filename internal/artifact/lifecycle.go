package artifact

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Lifecycle events.
const (
	EventStart    = "start"
	EventSucceed  = "succeed"
	EventComplete = "complete"
	EventFinalize = "finalize"
	EventFail     = "fail"
)

// events is the full transition table:
//
//	pending -start-> generating -succeed-> ready -finalize-> completed
//	generating -complete-> completed
//	generating -fail-> error
var events = fsm.Events{
	{Name: EventStart, Src: []string{string(StatusPending)}, Dst: string(StatusGenerating)},
	{Name: EventSucceed, Src: []string{string(StatusGenerating)}, Dst: string(StatusReady)},
	{Name: EventComplete, Src: []string{string(StatusGenerating)}, Dst: string(StatusCompleted)},
	{Name: EventFinalize, Src: []string{string(StatusReady)}, Dst: string(StatusCompleted)},
	{Name: EventFail, Src: []string{string(StatusGenerating)}, Dst: string(StatusError)},
}

// TransitionError reports an event that is not allowed from the current
// state.
type TransitionError struct {
	ID    string
	From  Status
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("artifact %s: cannot %s from %s: %v", e.ID, e.Event, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// Machine wraps a looplab FSM positioned at an artifact's current status.
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine returns a machine starting at status.
func NewMachine(status Status) *Machine {
	return &Machine{fsm: fsm.NewFSM(string(status), events, fsm.Callbacks{})}
}

// Current returns the current status.
func (m *Machine) Current() Status {
	return Status(m.fsm.Current())
}

// Fire triggers event.
func (m *Machine) Fire(ctx context.Context, event string) error {
	return m.fsm.Event(ctx, event)
}

// Transition applies event to a, updating a.Status in place. a is unchanged
// when the event is not allowed.
func Transition(ctx context.Context, a *Artifact, event string) error {
	m := NewMachine(a.Status)
	if err := m.Fire(ctx, event); err != nil {
		return &TransitionError{ID: a.ID, From: a.Status, Event: event, Err: err}
	}
	a.Status = m.Current()
	return nil
}
