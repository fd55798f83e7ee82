package nav

import (
	"time"

	"github.com/brean/robot-api/pkg/pose"
)

// Goal is an immutable navigation request: a target pose expressed in a
// reference frame, with the timeout it was dispatched under. ID is assigned
// at dispatch when empty.
type Goal struct {
	ID         string        `json:"id"`
	TargetPose pose.Pose     `json:"target_pose"`
	FrameID    string        `json:"frame_id"`
	Timeout    time.Duration `json:"timeout"`
}

// NewGoal builds a goal for p in the given frame.
func NewGoal(p pose.Pose, frameID string) *Goal {
	return &Goal{TargetPose: p, FrameID: frameID}
}

// Target is a tagged union of the accepted goal descriptions. Build one with
// GoalTarget, PoseTarget, PositionOrientation, XYYaw or XYZRPY; the zero
// Target is invalid and fails resolution with ErrNoTarget.
type Target struct {
	goal        *Goal
	pose        *pose.Pose
	position    []float64
	orientation []float64
	coords      []float64
}

// GoalTarget wraps a prepared goal. The goal's own frame wins over any
// WithFrame option.
func GoalTarget(g *Goal) Target {
	return Target{goal: g}
}

// PoseTarget wraps a pose in message form.
func PoseTarget(p pose.Pose) Target {
	return Target{pose: &p}
}

// TuplePoseTarget wraps a pose in tuple form. Shorthand for PoseTarget of the
// converted pose; kept as its own entry point because callers holding tuple
// poses are common.
func TuplePoseTarget(position, orientation []float64) Target {
	p := pose.FromTuple(position, orientation)
	return Target{pose: &p}
}

// PositionOrientation pairs separate position and orientation slices.
// Resolution fails with ErrPartialTarget when exactly one of them is nil.
func PositionOrientation(position, orientation []float64) Target {
	return Target{position: position, orientation: orientation}
}

// XYYaw describes a planar target; z, roll and pitch default to zero.
func XYYaw(x, y, yaw float64) Target {
	return Target{coords: []float64{x, y, 0, 0, 0, yaw}}
}

// XYZRPY describes a full 6-DOF target.
func XYZRPY(x, y, z, roll, pitch, yaw float64) Target {
	return Target{coords: []float64{x, y, z, roll, pitch, yaw}}
}

// resolve normalizes t into a concrete goal. Precedence: goal, then pose,
// then position+orientation, then coordinates.
func (t Target) resolve(frameID string, timeout time.Duration) (*Goal, error) {
	if t.goal != nil {
		return t.goal, nil
	}
	if t.pose != nil {
		g := NewGoal(*t.pose, frameID)
		g.Timeout = timeout
		return g, nil
	}
	if t.position != nil || t.orientation != nil {
		if t.position == nil || t.orientation == nil {
			return nil, ErrPartialTarget
		}
		g := NewGoal(pose.FromTuple(t.position, t.orientation), frameID)
		g.Timeout = timeout
		return g, nil
	}
	if t.coords != nil {
		c := t.coords
		g := NewGoal(pose.FromCoordinates(c[0], c[1], c[2], c[3], c[4], c[5]), frameID)
		g.Timeout = timeout
		return g, nil
	}
	return nil, ErrNoTarget
}

// Movement defaults.
const (
	// DefaultFrame is the reference frame goals are expressed in unless
	// overridden.
	DefaultFrame = "map"

	// DefaultMoveTimeout bounds a blocking movement call.
	DefaultMoveTimeout = 60 * time.Second
)

type moveOptions struct {
	frameID string
	timeout time.Duration
	done    DoneFunc
}

// MoveOption configures a single movement call.
type MoveOption func(*moveOptions)

// WithFrame sets the reference frame the goal pose is expressed in.
func WithFrame(frameID string) MoveOption {
	return func(o *moveOptions) { o.frameID = frameID }
}

// WithTimeout bounds how long a blocking call waits for a terminal result.
func WithTimeout(d time.Duration) MoveOption {
	return func(o *moveOptions) { o.timeout = d }
}

// WithDone makes the call non-blocking: the goal is dispatched and done fires
// exactly once, from the action client's goroutine, with the terminal result.
func WithDone(done DoneFunc) MoveOption {
	return func(o *moveOptions) { o.done = done }
}

func applyMoveOptions(opts []MoveOption) moveOptions {
	o := moveOptions{frameID: DefaultFrame, timeout: DefaultMoveTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
