package nav

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for goal resolution and transform lookups.
var (
	// ErrNoTarget is returned when none of the accepted goal shapes can be
	// extracted from a move request.
	ErrNoTarget = errors.New("nav: 1. goal, 2. pose, 3. position and orientation, or 4. x, y, and yaw must be specified")

	// ErrPartialTarget is returned when only one of position and
	// orientation is given; a half-specified pose is never inferred.
	ErrPartialTarget = errors.New("nav: both position and orientation must be specified")

	// ErrLookup indicates a transform lookup failed because the frames are
	// not (yet) connected.
	ErrLookup = errors.New("nav: transform lookup failed")

	// ErrExtrapolation indicates a transform lookup failed because the
	// requested time is outside the buffered range.
	ErrExtrapolation = errors.New("nav: transform extrapolation failed")

	// ErrNotConnected indicates the transport has no live connection.
	ErrNotConnected = errors.New("nav: not connected")
)

// PoseUnavailableError is returned by pose queries after the retry budget is
// exhausted. It wraps the first failure's cause.
type PoseUnavailableError struct {
	ReferenceFrame string
	RobotFrame     string
	Timeout        time.Duration
	Cause          error
}

// Error implements the error interface.
func (e *PoseUnavailableError) Error() string {
	return fmt.Sprintf("nav: pose of %s in %s unavailable after %s: %v",
		e.RobotFrame, e.ReferenceFrame, e.Timeout, e.Cause)
}

// Unwrap returns the underlying lookup error.
func (e *PoseUnavailableError) Unwrap() error {
	return e.Cause
}

// isTransient reports whether err is a retryable transform failure.
func isTransient(err error) bool {
	return errors.Is(err, ErrLookup) || errors.Is(err, ErrExtrapolation)
}
