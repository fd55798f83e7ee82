package nav

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brean/robot-api/pkg/pose"
)

func TestResolveGoalTarget(t *testing.T) {
	prepared := NewGoal(pose.FromCoordinates(1, 2, 0, 0, 0, 0), "odom")
	prepared.Timeout = 5 * time.Second

	goal, err := GoalTarget(prepared).resolve("map", time.Minute)
	require.NoError(t, err)

	// A prepared goal is passed through untouched; its frame and timeout win.
	assert.Same(t, prepared, goal)
	assert.Equal(t, "odom", goal.FrameID)
	assert.Equal(t, 5*time.Second, goal.Timeout)
}

func TestResolvePoseTarget(t *testing.T) {
	p := pose.FromCoordinates(1, 2, 0, 0, 0, 0.5)

	goal, err := PoseTarget(p).resolve("map", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, p, goal.TargetPose)
	assert.Equal(t, "map", goal.FrameID)
	assert.Equal(t, time.Minute, goal.Timeout)
}

func TestResolveTuplePoseTarget(t *testing.T) {
	goal, err := TuplePoseTarget([]float64{1, 2, 0}, []float64{0, 0, 0, 1}).resolve("map", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, pose.FromTuple([]float64{1, 2, 0}, []float64{0, 0, 0, 1}), goal.TargetPose)
}

func TestResolvePositionOrientation(t *testing.T) {
	goal, err := PositionOrientation([]float64{3, 4, 0}, []float64{0, 0, 0, 1}).resolve("map", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{3, 4, 0}, goal.TargetPose.Position)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, goal.TargetPose.Orientation)
}

func TestResolvePartialPositionOrientation(t *testing.T) {
	_, err := PositionOrientation(nil, []float64{0, 0, 0, 1}).resolve("map", time.Minute)
	assert.ErrorIs(t, err, ErrPartialTarget)

	_, err = PositionOrientation([]float64{1, 2, 0}, nil).resolve("map", time.Minute)
	assert.ErrorIs(t, err, ErrPartialTarget)
}

func TestResolveXYYaw(t *testing.T) {
	goal, err := XYYaw(1, 2, math.Pi/2).resolve("map", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 0}, goal.TargetPose.Position)
	assert.InDelta(t, math.Pi/2, goal.TargetPose.Yaw(), 1e-9)
}

func TestResolveXYZRPY(t *testing.T) {
	goal, err := XYZRPY(1, 2, 3, 0, 0, -1).resolve("map", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, goal.TargetPose.Position)
	assert.InDelta(t, -1, goal.TargetPose.Yaw(), 1e-9)
}

func TestResolveEmptyTarget(t *testing.T) {
	_, err := Target{}.resolve("map", time.Minute)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "succeeded", StatusSucceeded.String())
	assert.Equal(t, "aborted", StatusAborted.String())
	assert.Equal(t, "preempted", StatusPreempted.String())
	assert.Equal(t, "timed out", StatusTimedOut.String())
}
