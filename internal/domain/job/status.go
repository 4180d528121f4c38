// Package job defines analysis job lifecycle types.
package job

import "errors"

// Status represents the lifecycle status of an analysis job.
type Status string

const (
	// Non-terminal states
	StatusPending   Status = "pending"   // Enqueued, not yet picked up
	StatusAnalyzing Status = "analyzing" // Engine call in flight

	// Terminal states (no further transitions allowed)
	StatusCompleted Status = "completed" // Result persisted
	StatusFailed    Status = "failed"    // Error recorded on the job
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive returns true if the status indicates a live job.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAnalyzing
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ValidTransitions defines allowed status transitions. Completion and
// failure are only reachable through analyzing, except that a pending job
// may fail directly on cancellation or watchdog timeout.
var ValidTransitions = map[Status][]Status{
	StatusPending:   {StatusAnalyzing, StatusFailed},
	StatusAnalyzing: {StatusCompleted, StatusFailed},
	// Terminal states have no valid transitions
	StatusCompleted: {},
	StatusFailed:    {},
}

// CanTransitionTo checks if a transition from the current status to the
// target status is valid.
func (s Status) CanTransitionTo(target Status) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns an
// error if the transition is invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}
