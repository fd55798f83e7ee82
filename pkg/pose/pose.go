// Package pose provides the canonical pose representation shared by the
// navigation facade and the waypoint store.
//
// A pose exists in two equivalent forms: the structured message form (Pose)
// used when talking to the navigation and transform services, and the plain
// tuple form (two float slices) that callers tend to build by hand. The two
// convert losslessly in both directions.
package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Pose is a 3D position with a quaternion orientation (x, y, z, w).
// Orientation is assumed to be a unit quaternion; this package does not
// validate normalization.
type Pose struct {
	Position    [3]float64 `json:"position" yaml:"position,flow"`
	Orientation [4]float64 `json:"orientation" yaml:"orientation,flow"`
}

// Pose2D is the planar projection of a Pose.
type Pose2D struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// Identity returns a pose at the origin with the identity orientation.
func Identity() Pose {
	return Pose{Orientation: [4]float64{0, 0, 0, 1}}
}

// FromTuple builds a Pose from the tuple form. Missing trailing elements are
// left zero so partially built slices do not panic.
func FromTuple(position, orientation []float64) Pose {
	var p Pose
	copy(p.Position[:], position)
	copy(p.Orientation[:], orientation)
	return p
}

// Tuple returns the tuple form of p. The returned slices are fresh copies so
// callers may reuse and modify them.
func (p Pose) Tuple() (position, orientation []float64) {
	position = make([]float64, 3)
	orientation = make([]float64, 4)
	copy(position, p.Position[:])
	copy(orientation, p.Orientation[:])
	return position, orientation
}

// FromCoordinates builds a Pose from x, y, z and roll, pitch, yaw in radians.
func FromCoordinates(x, y, z, roll, pitch, yaw float64) Pose {
	return Pose{
		Position:    [3]float64{x, y, z},
		Orientation: FromEuler(roll, pitch, yaw),
	}
}

// FromEuler converts roll, pitch, yaw (radians) to a quaternion (x, y, z, w).
func FromEuler(roll, pitch, yaw float64) [4]float64 {
	qr := quat.Number{Real: math.Cos(roll / 2), Imag: math.Sin(roll / 2)}
	qp := quat.Number{Real: math.Cos(pitch / 2), Jmag: math.Sin(pitch / 2)}
	qy := quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
	q := quat.Mul(qy, quat.Mul(qp, qr))
	return [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// Yaw returns the planar heading of p, discarding roll and pitch.
func (p Pose) Yaw() float64 {
	x, y, z, w := p.Orientation[0], p.Orientation[1], p.Orientation[2], p.Orientation[3]
	siny := 2 * (w*z + x*y)
	cosy := 1 - 2*(y*y+z*z)
	return math.Atan2(siny, cosy)
}

// To2D projects p onto the plane.
func (p Pose) To2D() Pose2D {
	return Pose2D{X: p.Position[0], Y: p.Position[1], Yaw: p.Yaw()}
}

// PlanarDistance returns the Euclidean distance between a and b over x and y.
// z is ignored; navigation goals live on the ground plane.
func PlanarDistance(a, b Pose) float64 {
	return math.Hypot(a.Position[0]-b.Position[0], a.Position[1]-b.Position[1])
}

// YawBetween returns the yaw difference between a and b wrapped to [-pi, pi].
func YawBetween(a, b Pose) float64 {
	d := a.Yaw() - b.Yaw()
	return math.Atan2(math.Sin(d), math.Cos(d))
}
