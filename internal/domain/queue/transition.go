package queue

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned for a status change the workflow does not
// allow.
var ErrInvalidTransition = errors.New("invalid queue transition")

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

var transitions = map[Status]map[Status]bool{
	StatusWaiting:    {StatusInProgress: true, StatusNoShow: true},
	StatusInProgress: {StatusDone: true, StatusNoShow: true},
	StatusDone:       {},
	StatusNoShow:     {},
}

// CanTransition reports whether from -> to is allowed. Staying in the same
// known status is always allowed and changes nothing.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	return next[to]
}

// Transition moves e to status to. Entering in_progress records StartTime and
// entering done records EndTime, each only if not already set. A rejected
// transition leaves e untouched.
func Transition(e *Entry, to Status, now time.Time) error {
	if !CanTransition(e.Status, to) {
		return &TransitionError{From: e.Status, To: to}
	}
	e.Status = to
	switch to {
	case StatusInProgress:
		if e.StartTime == nil {
			t := now
			e.StartTime = &t
		}
	case StatusDone:
		if e.EndTime == nil {
			t := now
			e.EndTime = &t
		}
	}
	return nil
}
