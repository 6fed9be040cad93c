package task

import "fmt"

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled
}

// Next returns the successor of s in the dashboard checklist cycle
// pending -> in_progress -> completed -> pending. Cancelled has no successor.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	case StatusCompleted:
		return StatusPending, true
	default:
		return s, false
	}
}

// CanTransition reports whether from -> to is a declared transition.
// Staying in the same state is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return from.Valid()
	}
	return isAllowedTransition(from, to)
}

func isAllowedTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	case StatusCompleted:
		// Reopen only; completed work is never cancelled.
		return to == StatusPending
	default:
		return false
	}
}

// transition validates from -> to and applies completion bookkeeping to t.
func (t *Task) transition(to Status, actorID string, now Clock) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	from := t.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: task %s: %s -> %s", ErrInvalidTransition, t.ID, from, to)
	}
	if from == to {
		return nil
	}
	t.Status = to
	switch {
	case to == StatusCompleted:
		ts := now()
		t.CompletedAt = &ts
		t.CompletedBy = actorID
	case from == StatusCompleted:
		t.CompletedAt = nil
		t.CompletedBy = ""
	}
	return nil
}
