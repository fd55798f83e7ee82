package waypoint

import "github.com/brean/robot-api/pkg/pose"

// Default matching tolerances. The navigation engine does not guarantee its
// own goal thresholds, so arrival is judged here instead.
const (
	DefaultXYTolerance  = 0.2 // meters
	DefaultYawTolerance = 0.1 // radians
)

// Closest returns the name of the candidate nearest to current that lies
// within both tolerances: planar distance at most xyTol and absolute yaw
// difference at most yawTol. Ties go to the earlier candidate. The second
// return is false when no candidate qualifies, which is a normal outcome,
// not an error.
func Closest(current pose.Pose, candidates []Named, xyTol, yawTol float64) (string, bool) {
	best := ""
	bestDist := 0.0
	found := false
	for _, c := range candidates {
		dist := pose.PlanarDistance(current, c.Pose)
		if dist > xyTol {
			continue
		}
		yawDiff := pose.YawBetween(current, c.Pose)
		if yawDiff < 0 {
			yawDiff = -yawDiff
		}
		if yawDiff > yawTol {
			continue
		}
		if !found || dist < bestDist {
			best = c.Name
			bestDist = dist
			found = true
		}
	}
	return best, found
}
