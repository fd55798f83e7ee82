// Package nav provides the movement facade for mobile-robot navigation.
//
// The facade normalizes heterogeneous goal descriptions (a prepared goal, a
// pose in message or tuple form, separate position and orientation, or bare
// coordinates) into one navigation goal and drives an external action server
// to completion or timeout. Path planning, obstacle avoidance and
// localization belong to that server; this package only describes where to
// go and tracks the named waypoints it has sent the robot to.
//
// This package follows the Interface Segregation Principle: the two
// collaborator contracts below are small and independent, so callers and
// tests can supply only the side they care about.
package nav

import (
	"time"

	"github.com/brean/robot-api/pkg/pose"
)

// Status is the terminal state of a navigation attempt.
type Status int

const (
	// StatusSucceeded means the robot reached the goal.
	StatusSucceeded Status = iota

	// StatusAborted means the navigation engine gave up on the goal.
	StatusAborted

	// StatusPreempted means the goal was replaced or cancelled before
	// completion.
	StatusPreempted

	// StatusTimedOut means no terminal state arrived within the timeout.
	// Distinct from StatusAborted: the goal may still be active.
	StatusTimedOut
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusAborted:
		return "aborted"
	case StatusPreempted:
		return "preempted"
	case StatusTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Result is the terminal result of a navigation attempt.
type Result struct {
	Status Status `json:"status"`
	Text   string `json:"text,omitempty"`
}

// DoneFunc receives the terminal status of an asynchronously dispatched goal.
// It is invoked exactly once, from the action client's goroutine, so it runs
// concurrently with the caller's subsequent code.
type DoneFunc func(status Status, result *Result)

// ActionClient is the connection to the external navigation action server.
type ActionClient interface {
	// Connect establishes the connection to the named action server.
	// It reports false when the server is unavailable; callers treat that
	// as a configuration problem, not a fatal error.
	Connect(name string) bool

	// SendGoalAndWait dispatches goal and blocks until a terminal result
	// arrives or timeout elapses, in which case the result carries
	// StatusTimedOut.
	SendGoalAndWait(goal *Goal, timeout time.Duration) *Result

	// SendGoalAsync dispatches goal and returns immediately. done fires
	// exactly once with the terminal status.
	SendGoalAsync(goal *Goal, done DoneFunc)
}

// TransformSource resolves the robot's pose in a named reference frame.
// Lookups may fail transiently while the transform tree warms up; such
// failures satisfy errors.Is against ErrLookup or ErrExtrapolation.
type TransformSource interface {
	// LookupTransform returns the pose of robotFrame expressed in
	// referenceFrame. A zero at means "latest available".
	LookupTransform(referenceFrame, robotFrame string, at time.Time) (pose.Pose, error)
}
