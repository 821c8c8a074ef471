package domain

import (
	"fmt"

	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

// Status is the lifecycle state of a Task. The set is closed: ParseStatus
// rejects anything else.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusStopped Status = "STOPPED"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusStopped},
	StatusRunning: {StatusRunning, StatusSuccess, StatusFailed, StatusStopped},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusStopped:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsActive reports whether the scheduler should look at a task in this state.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to against the transition table.
func Transition(from, to Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", internaltypes.ErrInvalidTransition, from, to)
	}
	return nil
}
