package nav

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brean/robot-api/internal/log"
	"github.com/brean/robot-api/pkg/pose"
	"github.com/brean/robot-api/pkg/waypoint"
)

// MoveBaseAction is the name of the navigation action server.
const MoveBaseAction = "move_base"

// Pose query defaults.
const (
	// DefaultRobotFrame is the frame attached to the robot base.
	DefaultRobotFrame = "base_footprint"

	// DefaultPoseTimeout bounds the retry budget of a pose query.
	DefaultPoseTimeout = 1 * time.Second

	// DefaultRetryInterval is the pause between pose query retries.
	DefaultRetryInterval = 1 * time.Second
)

// Base is the movement facade for the robot base. It resolves goal
// descriptions, keeps the waypoint store in sync with dispatched goals and
// drives the navigation action server.
//
// Methods are safe for concurrent use. The action server runs its own
// goroutine; completion callbacks execute there, not on the caller's.
type Base struct {
	ns         string
	client     ActionClient
	transforms TransformSource
	store      *waypoint.Store

	// XYTolerance and YawTolerance bound CurrentWaypoint matching.
	XYTolerance  float64
	YawTolerance float64

	// RetryInterval is the pause between pose query retries.
	RetryInterval time.Duration

	mu        sync.Mutex
	connected bool
}

// NewBase creates the facade. A nil store selects the shared default store.
// Namespace is normalized to have leading and trailing slashes; it prefixes
// the robot frame in transform lookups.
func NewBase(namespace string, client ActionClient, transforms TransformSource, store *waypoint.Store) *Base {
	if !strings.HasPrefix(namespace, "/") {
		namespace = "/" + namespace
	}
	if !strings.HasSuffix(namespace, "/") {
		namespace += "/"
	}
	if store == nil {
		store = waypoint.Default()
	}
	return &Base{
		ns:            namespace,
		client:        client,
		transforms:    transforms,
		store:         store,
		XYTolerance:   waypoint.DefaultXYTolerance,
		YawTolerance:  waypoint.DefaultYawTolerance,
		RetryInterval: DefaultRetryInterval,
	}
}

// Namespace returns the normalized robot namespace.
func (b *Base) Namespace() string {
	return b.ns
}

// Store returns the waypoint store this facade registers goals into.
func (b *Base) Store() *waypoint.Store {
	return b.store
}

// connect lazily establishes the action server connection. Success is
// cached; failure is retried on the next call.
func (b *Base) connect() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connected {
		return true
	}
	if b.client == nil || !b.client.Connect(MoveBaseAction) {
		return false
	}
	b.connected = true
	return true
}

// GetPose returns the robot pose in referenceFrame. On transient lookup
// failures it retries every RetryInterval until the elapsed time exceeds
// timeout, returning the first success immediately. When the budget is
// exhausted (or timeout is zero) it returns a *PoseUnavailableError wrapping
// the original cause. Non-transient errors are returned as-is.
func (b *Base) GetPose(referenceFrame, robotFrame string, timeout time.Duration) (pose.Pose, error) {
	frame := b.ns + robotFrame
	p, err := b.transforms.LookupTransform(referenceFrame, frame, time.Time{})
	if err == nil {
		return p, nil
	}
	if !isTransient(err) {
		return pose.Pose{}, err
	}

	cause := err
	start := time.Now()
	for time.Since(start) < timeout {
		time.Sleep(b.RetryInterval)
		p, err = b.transforms.LookupTransform(referenceFrame, frame, time.Time{})
		if err == nil {
			return p, nil
		}
		if !isTransient(err) {
			return pose.Pose{}, err
		}
	}
	return pose.Pose{}, &PoseUnavailableError{
		ReferenceFrame: referenceFrame,
		RobotFrame:     frame,
		Timeout:        timeout,
		Cause:          cause,
	}
}

// Get2DPose returns the robot pose as (x, y, yaw), discarding z, roll and
// pitch.
func (b *Base) Get2DPose(referenceFrame, robotFrame string, timeout time.Duration) (pose.Pose2D, error) {
	p, err := b.GetPose(referenceFrame, robotFrame, timeout)
	if err != nil {
		return pose.Pose2D{}, err
	}
	return p.To2D(), nil
}

// CurrentWaypoint returns the name of the stored waypoint closest to the
// robot within the facade's tolerances. referenceFrame must be the frame the
// waypoints are expressed in, usually DefaultFrame. ok is false when the
// store is empty or no waypoint is in range; only pose query failures are
// errors.
func (b *Base) CurrentWaypoint(referenceFrame string, timeout time.Duration) (name string, ok bool, err error) {
	candidates := b.store.Snapshot()
	if len(candidates) == 0 {
		log.Warn("no waypoints to compare the robot pose to")
		return "", false, nil
	}
	current, err := b.GetPose(referenceFrame, DefaultRobotFrame, timeout)
	if err != nil {
		return "", false, err
	}
	name, ok = waypoint.Closest(current, candidates, b.XYTolerance, b.YawTolerance)
	return name, ok, nil
}

// Move resolves target and dispatches it. This is the single entry point the
// typed MoveTo* helpers feed into.
//
// Resolution failures (ErrNoTarget, ErrPartialTarget) are returned as
// errors. An unavailable navigation server is reported through the log and
// yields a nil result with a nil error; callers check the result. With a
// WithDone callback the call returns (nil, nil) immediately and the callback
// delivers the terminal result.
func (b *Base) Move(target Target, opts ...MoveOption) (*Result, error) {
	o := applyMoveOptions(opts)
	goal, err := target.resolve(o.frameID, o.timeout)
	if err != nil {
		return nil, err
	}
	return b.dispatch(goal, o), nil
}

// MoveToGoal dispatches a prepared goal.
func (b *Base) MoveToGoal(goal *Goal, opts ...MoveOption) (*Result, error) {
	return b.Move(GoalTarget(goal), opts...)
}

// MoveToPose moves the robot to p.
func (b *Base) MoveToPose(p pose.Pose, opts ...MoveOption) (*Result, error) {
	return b.Move(PoseTarget(p), opts...)
}

// MoveToTuple moves the robot to the pose given in tuple form.
func (b *Base) MoveToTuple(position, orientation []float64, opts ...MoveOption) (*Result, error) {
	return b.Move(TuplePoseTarget(position, orientation), opts...)
}

// MoveTo moves the robot to the planar pose (x, y, yaw); z, roll and pitch
// are zero.
func (b *Base) MoveTo(x, y, yaw float64, opts ...MoveOption) (*Result, error) {
	return b.Move(XYYaw(x, y, yaw), opts...)
}

// MoveToCoordinates moves the robot to position (x, y, z) and orientation
// (roll, pitch, yaw).
func (b *Base) MoveToCoordinates(x, y, z, roll, pitch, yaw float64, opts ...MoveOption) (*Result, error) {
	return b.Move(XYZRPY(x, y, z, roll, pitch, yaw), opts...)
}

// MoveToWaypoint moves the robot to the named waypoint. An unknown name is a
// runtime condition, not a programmer error: it is logged together with the
// current waypoint listing and the call returns (nil, nil) without
// dispatching anything.
func (b *Base) MoveToWaypoint(name string, opts ...MoveOption) (*Result, error) {
	p, ok := b.store.Get(name)
	if !ok {
		if b.store.Len() > 0 {
			log.Error("waypoint does not exist", "name", name, "available", "\n"+b.store.String())
		} else {
			log.Error("no waypoints defined yet, so cannot use waypoint", "name", name)
		}
		return nil, nil
	}
	return b.MoveToPose(p, opts...)
}

// dispatch sends goal to the action server, registering its pose as a
// waypoint first so every goal ever sent becomes reusable by name.
func (b *Base) dispatch(goal *Goal, o moveOptions) *Result {
	if !b.connect() {
		log.Error("cannot reach the navigation action server; did you launch the move_base node?",
			"action", MoveBaseAction)
		return nil
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}

	customName, hasCustom := b.store.CustomName(goal.TargetPose)
	name, added := b.store.Register(goal.TargetPose)
	logName := name
	if hasCustom {
		logName = customName
	}
	log.Debug("sending navigation goal",
		"id", goal.ID,
		"waypoint", logName,
		"new", added,
		"frame", goal.FrameID,
		"position", goal.TargetPose.Position,
		"orientation", goal.TargetPose.Orientation)

	if o.done != nil {
		b.client.SendGoalAsync(goal, o.done)
		return nil
	}
	log.Debug("waiting for navigation result", "id", goal.ID, "timeout", o.timeout)
	return b.client.SendGoalAndWait(goal, o.timeout)
}
