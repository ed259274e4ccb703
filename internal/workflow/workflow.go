// Package workflow holds the timetable draft approval state machine.
package workflow

import "fmt"

// Status is the lifecycle state of a timetable draft.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Action is a requested transition.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// InvalidStateError is returned for a transition not allowed from From.
type InvalidStateError struct {
	From   Status
	Action Action
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a timetable in status %s", e.Action, e.From)
}

var transitions = map[Action]struct {
	from Status
	to   Status
}{
	ActionSubmit:  {from: StatusDraft, to: StatusPendingApproval},
	ActionApprove: {from: StatusPendingApproval, to: StatusApproved},
	ActionReject:  {from: StatusPendingApproval, to: StatusRejected},
}

// Apply returns the status reached by applying action to from.
func Apply(from Status, action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok || t.from != from {
		return from, &InvalidStateError{From: from, Action: action}
	}
	return t.to, nil
}

// Publishes reports whether action makes the draft the live timetable.
func Publishes(action Action) bool {
	return action == ActionApprove
}
