// Package control defines the normalized mount command every protocol
// adapter writes into and the downstream actuation layer consumes.
package control

import (
	"math"
)

// Kind selects which payload of a Command is meaningful. The payloads of
// inactive kinds hold stale data and must not be read downstream.
type Kind uint8

// The supported command kinds.
const (
	KindNeutral Kind = iota
	KindAngle
	KindGeo
)

func (k Kind) String() string {
	switch k {
	case KindNeutral:
		return "neutral"
	case KindAngle:
		return "angle"
	case KindGeo:
		return "geo"
	}
	return "unknown"
}

// Frame describes how a single axis value of the angle payload is to be
// interpreted.
type Frame uint8

// The per-axis frames.
const (
	FrameBodyRelative Frame = iota
	FrameAngularRate
	FrameAbsolute
)

// Axis indices into the per-axis arrays.
const (
	AxisRoll  = 0
	AxisPitch = 1
	AxisYaw   = 2
)

// PitchUnset marks the geo payload's fixed pitch as not supplied. Any value
// below -pi means "compute the pitch from the target altitude instead".
const PitchUnset = -2 * math.Pi

// AngleData is the payload of KindAngle: an angle (rad) or rate (rad/s) per
// axis, with an independent frame per axis.
type AngleData struct {
	Frames [3]Frame
	Angles [3]float64
}

// GeoData is the payload of KindGeo: a geographic target plus corrections
// applied after the bearing computation.
type GeoData struct {
	Lon float64
	Lat float64
	Alt float64

	// PitchFixed overrides the computed pitch when >= -pi. See PitchUnset.
	PitchFixed float64

	RollAngle   float64
	PitchOffset float64
	YawOffset   float64
}

// Command is the shared mutable record a protocol adapter maintains across
// update calls. Exactly one Kind is active at a time.
type Command struct {
	Kind Kind

	Angle AngleData
	Geo   GeoData

	// StabilizeAxis is set only by the legacy mount configure command.
	StabilizeAxis [3]bool

	// ShutterRetract is true only when an explicit retract request was just
	// processed.
	ShutterRetract bool
}

// SetGeoTarget points the command at a geographic target, clearing the fixed
// pitch and all angular corrections.
func (c *Command) SetGeoTarget(lon, lat, alt float64) {
	c.Kind = KindGeo
	c.Geo.Lon = lon
	c.Geo.Lat = lat
	c.Geo.Alt = alt
	c.Geo.RollAngle = 0
	c.Geo.PitchOffset = 0
	c.Geo.YawOffset = 0
	c.Geo.PitchFixed = PitchUnset
}
