// Package geom holds the poses and segment math shared by the planner packages.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a position plus an orientation quaternion. Phi is an extra fixed rotation
// carried alongside the orientation and is not applied by Compose.
type Pose struct {
	Position    r3.Vector
	Orientation quat.Number
	Phi         float64
}

// Identity is the unit orientation.
var Identity = quat.Number{Real: 1}

// NewPose returns a pose at position p facing yaw radians about +Z.
func NewPose(p r3.Vector, yaw float64) Pose {
	return Pose{Position: p, Orientation: YawQuat(yaw)}
}

// YawQuat returns the unit quaternion for a rotation of yaw radians about +Z.
func YawQuat(yaw float64) quat.Number {
	return quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
}

// PitchQuat returns the unit quaternion for a rotation of pitch radians about +Y.
func PitchQuat(pitch float64) quat.Number {
	return quat.Number{Real: math.Cos(pitch / 2), Jmag: math.Sin(pitch / 2)}
}

// Mul composes two rotations, applying b first.
func Mul(a, b quat.Number) quat.Number {
	return normalize(quat.Mul(a, b))
}

// Yaw extracts the heading about +Z from the pose orientation.
func (p Pose) Yaw() float64 {
	q := normalize(p.Orientation)
	return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}

// Distance calculates the Euclidean distance between the positions of two poses.
func (p Pose) Distance(other Pose) float64 {
	return p.Position.Distance(other.Position)
}

// Compose applies offset, expressed in the frame of p, and returns the resulting pose.
func (p Pose) Compose(offset Pose) Pose {
	q := normalize(p.Orientation)
	return Pose{
		Position:    p.Position.Add(Rotate(q, offset.Position)),
		Orientation: normalize(quat.Mul(q, normalize(offset.Orientation))),
		Phi:         p.Phi,
	}
}

// Rotate rotates v by the unit quaternion q.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	pv := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, pv), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Segment represents a straight line segment between two points
type Segment struct {
	P1, P2 r3.Vector
}

// Length of the segment.
func (s Segment) Length() float64 {
	return s.P1.Distance(s.P2)
}

// DistanceToPoint returns the shortest distance from q to any point of the segment.
func (s Segment) DistanceToPoint(q r3.Vector) float64 {
	d := s.P2.Sub(s.P1)
	l2 := d.Norm2()
	if l2 == 0 {
		return q.Distance(s.P1)
	}
	t := q.Sub(s.P1).Dot(d) / l2
	t = math.Max(0, math.Min(1, t))
	return q.Distance(s.P1.Add(d.Mul(t)))
}

// Bounds returns the axis aligned min and max corners of the segment grown by margin.
func (s Segment) Bounds(margin float64) (r3.Vector, r3.Vector) {
	lo := r3.Vector{X: math.Min(s.P1.X, s.P2.X), Y: math.Min(s.P1.Y, s.P2.Y), Z: math.Min(s.P1.Z, s.P2.Z)}
	hi := r3.Vector{X: math.Max(s.P1.X, s.P2.X), Y: math.Max(s.P1.Y, s.P2.Y), Z: math.Max(s.P1.Z, s.P2.Z)}
	m := r3.Vector{X: margin, Y: margin, Z: margin}
	return lo.Sub(m), hi.Add(m)
}
