// Package spatialmath contains the orientation and geodesy math used to turn
// protocol inputs into pointing angles.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles are three angles (in radians) used to represent the rotation of an object in 3D Euclidean space
// The Tait-Bryan angle formalism is used, with rotation order Z-Y'-X''.
type EulerAngles struct {
	Roll  float64 // rotation about the body x axis
	Pitch float64 // rotation about the body y axis
	Yaw   float64 // rotation about the body z axis
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{Roll: 0, Pitch: 0, Yaw: 0}
}

// EulerAnglesFromQuaternion decomposes a unit quaternion into its Tait-Bryan angles.
func EulerAnglesFromQuaternion(q quat.Number) *EulerAngles {
	angles := EulerAngles{}
	angles.Roll = math.Atan2(2*(q.Real*q.Imag+q.Jmag*q.Kmag), 1-2*(q.Imag*q.Imag+q.Jmag*q.Jmag))

	sinPitch := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	if math.Abs(sinPitch) >= 1 {
		// gimbal lock
		angles.Pitch = math.Copysign(math.Pi/2, sinPitch)
	} else {
		angles.Pitch = math.Asin(sinPitch)
	}

	angles.Yaw = math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
	return &angles
}

// Quaternion returns the quaternion representation of the euler angles.
func (ea *EulerAngles) Quaternion() quat.Number {
	cy := math.Cos(ea.Yaw / 2)
	sy := math.Sin(ea.Yaw / 2)
	cp := math.Cos(ea.Pitch / 2)
	sp := math.Sin(ea.Pitch / 2)
	cr := math.Cos(ea.Roll / 2)
	sr := math.Sin(ea.Roll / 2)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}
