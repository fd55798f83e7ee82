package nav

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brean/robot-api/pkg/pose"
	"github.com/brean/robot-api/pkg/waypoint"
)

func newTestBase(t *testing.T) (*Base, *MockActionClient, *MockTransformSource) {
	t.Helper()
	client := NewMockActionClient()
	transforms := &MockTransformSource{}
	base := NewBase("/", client, transforms, waypoint.New())
	base.RetryInterval = 10 * time.Millisecond
	return base, client, transforms
}

func TestNamespaceNormalization(t *testing.T) {
	client := NewMockActionClient()
	assert.Equal(t, "/robot/", NewBase("robot", client, nil, waypoint.New()).Namespace())
	assert.Equal(t, "/robot/", NewBase("/robot", client, nil, waypoint.New()).Namespace())
	assert.Equal(t, "/robot/", NewBase("/robot/", client, nil, waypoint.New()).Namespace())
	assert.Equal(t, "/", NewBase("/", client, nil, waypoint.New()).Namespace())
}

func TestNilStoreFallsBackToDefault(t *testing.T) {
	base := NewBase("/", NewMockActionClient(), nil, nil)
	assert.Same(t, waypoint.Default(), base.Store())
}

func TestMoveRegistersNovelPoseOnce(t *testing.T) {
	base, client, _ := newTestBase(t)

	res, err := base.Move(XYYaw(1, 2, 0.5))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, 1, base.Store().Len(), "dispatching a novel pose adds exactly one waypoint")

	snap := base.Store().Snapshot()
	want, werr := XYYaw(1, 2, 0.5).resolve(DefaultFrame, DefaultMoveTimeout)
	require.NoError(t, werr)
	assert.Equal(t, want.TargetPose, snap[0].Pose)

	// Same pose again: no duplicate entry, but it is still dispatched.
	_, err = base.MoveTo(1, 2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, base.Store().Len())
	assert.Equal(t, 2, client.SendCount())
}

func TestMoveKeepsCustomWaypointName(t *testing.T) {
	base, _, _ := newTestBase(t)
	p := pose.FromCoordinates(1, 2, 0, 0, 0, 0)
	base.Store().Add("dock", p)

	_, err := base.MoveToPose(p)
	require.NoError(t, err)
	assert.Equal(t, 1, base.Store().Len(), "a pose already stored under a custom name is not re-registered")
}

func TestMoveOrientationOnlyIsRejected(t *testing.T) {
	base, client, _ := newTestBase(t)

	_, err := base.Move(PositionOrientation(nil, []float64{0, 0, 0, 1}))
	assert.ErrorIs(t, err, ErrPartialTarget)
	assert.Zero(t, client.SendCount())
}

func TestMoveEmptyTargetIsRejected(t *testing.T) {
	base, client, _ := newTestBase(t)

	_, err := base.Move(Target{})
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Zero(t, client.SendCount())
	assert.Zero(t, base.Store().Len())
}

func TestMoveWithUnavailableServer(t *testing.T) {
	base, client, _ := newTestBase(t)
	client.ConnectFunc = func(name string) bool { return false }

	// Missing backend is an environment condition: logged, nil result, no
	// error, nothing registered.
	res, err := base.Move(XYYaw(1, 0, 0))
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, client.SendCount())
	assert.Zero(t, base.Store().Len())
}

func TestConnectSuccessIsCached(t *testing.T) {
	base, client, _ := newTestBase(t)
	connects := 0
	client.ConnectFunc = func(name string) bool {
		connects++
		return true
	}

	_, err := base.Move(XYYaw(1, 0, 0))
	require.NoError(t, err)
	_, err = base.Move(XYYaw(2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, connects)
}

func TestConnectFailureIsRetried(t *testing.T) {
	base, client, _ := newTestBase(t)
	connects := 0
	client.ConnectFunc = func(name string) bool {
		connects++
		return connects > 1
	}

	res, _ := base.Move(XYYaw(1, 0, 0))
	assert.Nil(t, res)

	res, err := base.Move(XYYaw(1, 0, 0))
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, 2, connects)
}

func TestMoveAssignsGoalID(t *testing.T) {
	base, client, _ := newTestBase(t)

	_, err := base.Move(XYYaw(1, 0, 0))
	require.NoError(t, err)

	calls := client.Calls()
	last := calls[len(calls)-1]
	assert.NotEmpty(t, last.Goal.ID)
}

func TestMoveAsyncCallbackFires(t *testing.T) {
	base, client, _ := newTestBase(t)
	client.SendAsyncFunc = func(goal *Goal, done DoneFunc) {
		go done(StatusPreempted, &Result{Status: StatusPreempted, Text: "replaced"})
	}

	got := make(chan Status, 1)
	res, err := base.Move(XYYaw(1, 0, 0), WithDone(func(status Status, result *Result) {
		got <- status
	}))
	require.NoError(t, err)
	assert.Nil(t, res, "async dispatch returns no synchronous result")

	select {
	case status := <-got:
		assert.Equal(t, StatusPreempted, status)
	case <-time.After(time.Second):
		t.Fatal("completion callback never fired")
	}
	assert.Equal(t, 1, base.Store().Len(), "async goals are registered before dispatch")
}

func TestMoveTimeoutResultIsDistinct(t *testing.T) {
	base, client, _ := newTestBase(t)
	client.SendAndWaitFunc = func(goal *Goal, timeout time.Duration) *Result {
		return &Result{Status: StatusTimedOut}
	}

	res, err := base.Move(XYYaw(1, 0, 0), WithTimeout(time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StatusTimedOut, res.Status)
	assert.NotEqual(t, StatusAborted, res.Status)
}

func TestMoveToWaypoint(t *testing.T) {
	base, client, _ := newTestBase(t)
	p := pose.FromCoordinates(3, 3, 0, 0, 0, 1)
	base.Store().Add("kitchen", p)

	res, err := base.MoveToWaypoint("kitchen")
	require.NoError(t, err)
	require.NotNil(t, res)

	calls := client.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, p, last.Goal.TargetPose)
}

func TestMoveToWaypointUnknownEmptyStore(t *testing.T) {
	base, client, _ := newTestBase(t)

	res, err := base.MoveToWaypoint("nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, client.SendCount(), "unknown waypoint must not reach the action server")
}

func TestMoveToWaypointUnknownNonEmptyStore(t *testing.T) {
	base, client, _ := newTestBase(t)
	base.Store().Add("dock", pose.FromCoordinates(1, 1, 0, 0, 0, 0))

	res, err := base.MoveToWaypoint("nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, client.SendCount())
}

func TestMoveWithFrame(t *testing.T) {
	base, client, _ := newTestBase(t)

	_, err := base.Move(XYYaw(1, 0, 0), WithFrame("odom"))
	require.NoError(t, err)

	calls := client.Calls()
	assert.Equal(t, "odom", calls[len(calls)-1].Goal.FrameID)
}

func TestGetPoseFirstTrySucceeds(t *testing.T) {
	base, _, transforms := newTestBase(t)
	want := pose.FromCoordinates(1, 2, 0, 0, 0, 0.5)
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return want, nil
	}

	got, err := base.GetPose("map", "base_footprint", time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, transforms.Lookups())
}

func TestGetPosePrefixesNamespace(t *testing.T) {
	client := NewMockActionClient()
	transforms := &MockTransformSource{}
	var gotFrame string
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		gotFrame = robot
		return pose.Identity(), nil
	}
	base := NewBase("robot", client, transforms, waypoint.New())

	_, err := base.GetPose("map", "base_footprint", 0)
	require.NoError(t, err)
	assert.Equal(t, "/robot/base_footprint", gotFrame)
}

func TestGetPoseRetriesUntilSuccess(t *testing.T) {
	base, _, transforms := newTestBase(t)
	want := pose.FromCoordinates(5, 5, 0, 0, 0, 0)
	attempts := 0
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		attempts++
		if attempts < 3 {
			return pose.Pose{}, fmt.Errorf("%w: tree not ready", ErrLookup)
		}
		return want, nil
	}

	got, err := base.GetPose("map", "base_footprint", time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 3, attempts)
}

func TestGetPoseTimeoutBound(t *testing.T) {
	base, _, transforms := newTestBase(t)
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.Pose{}, fmt.Errorf("%w: tree not ready", ErrLookup)
	}

	start := time.Now()
	_, err := base.GetPose("map", "base_footprint", 100*time.Millisecond)
	elapsed := time.Since(start)

	var unavailable *PoseUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, ErrLookup, "the original cause stays reachable through Unwrap")
	// The loop stops once elapsed time exceeds the budget, not a full retry
	// cycle later.
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestGetPoseZeroTimeoutFailsImmediately(t *testing.T) {
	base, _, transforms := newTestBase(t)
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.Pose{}, fmt.Errorf("%w: tree not ready", ErrLookup)
	}

	_, err := base.GetPose("map", "base_footprint", 0)
	var unavailable *PoseUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 1, transforms.Lookups())
}

func TestGetPoseNonTransientErrorSurfaces(t *testing.T) {
	base, _, transforms := newTestBase(t)
	boom := errors.New("transform backend exploded")
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.Pose{}, boom
	}

	_, err := base.GetPose("map", "base_footprint", time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, transforms.Lookups(), "non-transient failures are not retried")
}

func TestGet2DPose(t *testing.T) {
	base, _, transforms := newTestBase(t)
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.FromCoordinates(1, 2, 7, 0, 0, 0.5), nil
	}

	got, err := base.Get2DPose("map", "base_footprint", time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 1, got.X, 1e-9)
	assert.InDelta(t, 2, got.Y, 1e-9)
	assert.InDelta(t, 0.5, got.Yaw, 1e-9)
}

func TestCurrentWaypoint(t *testing.T) {
	base, _, transforms := newTestBase(t)
	base.Store().Add("A", pose.FromCoordinates(0, 0, 0, 0, 0, 0))
	base.Store().Add("B", pose.FromCoordinates(1, 0, 0, 0, 0, 0))
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.FromCoordinates(0.1, 0, 0, 0, 0, 0), nil
	}

	name, ok, err := base.CurrentWaypoint(DefaultFrame, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", name)
}

func TestCurrentWaypointUsesGivenFrame(t *testing.T) {
	base, _, transforms := newTestBase(t)
	base.Store().Add("A", pose.FromCoordinates(0, 0, 0, 0, 0, 0))
	var gotFrame string
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		gotFrame = ref
		return pose.Identity(), nil
	}

	_, ok, err := base.CurrentWaypoint("odom", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "odom", gotFrame, "matching must query the pose in the caller's frame")
}

func TestCurrentWaypointEmptyStore(t *testing.T) {
	base, _, transforms := newTestBase(t)

	name, ok, err := base.CurrentWaypoint(DefaultFrame, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Zero(t, transforms.Lookups(), "no pose query when there is nothing to match")
}

func TestCurrentWaypointOutOfRange(t *testing.T) {
	base, _, transforms := newTestBase(t)
	base.Store().Add("A", pose.FromCoordinates(0, 0, 0, 0, 0, 0))
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.FromCoordinates(5, 5, 0, 0, 0, 0), nil
	}

	_, ok, err := base.CurrentWaypoint(DefaultFrame, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCurrentWaypointPoseQueryFails(t *testing.T) {
	base, _, transforms := newTestBase(t)
	base.Store().Add("A", pose.FromCoordinates(0, 0, 0, 0, 0, 0))
	transforms.LookupFunc = func(ref, robot string, at time.Time) (pose.Pose, error) {
		return pose.Pose{}, fmt.Errorf("%w: tree not ready", ErrLookup)
	}

	_, _, err := base.CurrentWaypoint(DefaultFrame, 20*time.Millisecond)
	var unavailable *PoseUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}
