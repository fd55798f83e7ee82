package waypoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brean/robot-api/pkg/pose"
)

func candidates() []Named {
	return []Named{
		{Name: "A", Pose: pose.FromCoordinates(0, 0, 0, 0, 0, 0)},
		{Name: "B", Pose: pose.FromCoordinates(1, 0, 0, 0, 0, 0)},
	}
}

func TestClosestPicksNearestEligible(t *testing.T) {
	current := pose.FromCoordinates(0.1, 0, 0, 0, 0, 0)

	name, ok := Closest(current, candidates(), 0.2, 0.1)
	require.True(t, ok)
	assert.Equal(t, "A", name)
}

func TestClosestEmptyCandidates(t *testing.T) {
	current := pose.FromCoordinates(0, 0, 0, 0, 0, 0)
	_, ok := Closest(current, nil, 0.2, 0.1)
	assert.False(t, ok)
}

func TestClosestNoneInRange(t *testing.T) {
	current := pose.FromCoordinates(5, 5, 0, 0, 0, 0)
	_, ok := Closest(current, candidates(), 0.2, 0.1)
	assert.False(t, ok)
}

func TestClosestYawOutOfTolerance(t *testing.T) {
	// On top of A but facing the wrong way.
	current := pose.FromCoordinates(0, 0, 0, 0, 0, 1.0)
	_, ok := Closest(current, candidates(), 0.2, 0.1)
	assert.False(t, ok)
}

func TestClosestYawWrapsAroundPi(t *testing.T) {
	cands := []Named{
		{Name: "turn", Pose: pose.FromCoordinates(0, 0, 0, 0, 0, 3.1)},
	}
	// -3.1 rad and 3.1 rad are ~0.08 rad apart across the wrap.
	current := pose.FromCoordinates(0, 0, 0, 0, 0, -3.1)

	name, ok := Closest(current, cands, 0.2, 0.1)
	require.True(t, ok)
	assert.Equal(t, "turn", name)
}

func TestClosestTieBreaksOnOrder(t *testing.T) {
	cands := []Named{
		{Name: "first", Pose: pose.FromCoordinates(0.1, 0, 0, 0, 0, 0)},
		{Name: "second", Pose: pose.FromCoordinates(-0.1, 0, 0, 0, 0, 0)},
	}
	current := pose.FromCoordinates(0, 0, 0, 0, 0, 0)

	name, ok := Closest(current, cands, 0.2, 0.1)
	require.True(t, ok)
	assert.Equal(t, "first", name)
}

func TestClosestPrefersSmallerDistance(t *testing.T) {
	cands := []Named{
		{Name: "far", Pose: pose.FromCoordinates(0.15, 0, 0, 0, 0, 0)},
		{Name: "near", Pose: pose.FromCoordinates(0.05, 0, 0, 0, 0, 0)},
	}
	current := pose.FromCoordinates(0, 0, 0, 0, 0, 0)

	name, ok := Closest(current, cands, 0.2, 0.1)
	require.True(t, ok)
	assert.Equal(t, "near", name)
}

func TestClosestBoundaryIsInclusive(t *testing.T) {
	cands := []Named{
		{Name: "edge", Pose: pose.FromCoordinates(0.2, 0, 0, 0, 0, 0)},
	}
	current := pose.FromCoordinates(0, 0, 0, 0, 0, 0)

	name, ok := Closest(current, cands, 0.2, 0.1)
	require.True(t, ok)
	assert.Equal(t, "edge", name)
}
