package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"

	"github.com/skylift-robotics/mount/utils"
)

// Bearing returns the initial great-circle bearing from one geopoint to
// another in radians, wrapped into (-pi, pi] with 0 pointing north.
func Bearing(from, to *geo.Point) float64 {
	return utils.WrapPi(utils.DegToRad(from.BearingTo(to)))
}

// GetCartesianDistance calculates the latitude and longitude displacement between p and q in meters.
// Note that this is an approximation since we are trying to project a point on a sphere onto a plane.
// The closer these points are the more accurate the approximation is.
func GetCartesianDistance(p, q *geo.Point) (float64, float64) {
	// the corner point shares p's longitude and q's latitude, so each leg
	// varies along exactly one axis
	mod := geo.NewPoint(q.Lat(), p.Lng())
	// Calculate the Haversine distance between two points in kilometers, convert to meters
	distAlongLat := 1e3 * p.GreatCircleDistance(mod)
	distAlongLng := 1e3 * q.GreatCircleDistance(mod)
	return distAlongLat, distAlongLng
}

// LocalProjector projects geopoints onto a tangent plane anchored at a fixed
// origin. Because the projection is nonlinear it is linearized about the
// origin; the anchor is meant to be set once and reused for the lifetime of
// its owner.
type LocalProjector struct {
	origin *geo.Point
}

// NewLocalProjector returns a projector anchored at the given origin.
func NewLocalProjector(origin *geo.Point) *LocalProjector {
	return &LocalProjector{origin: origin}
}

// Origin returns the anchor of the projection.
func (lp *LocalProjector) Origin() *geo.Point {
	return lp.origin
}

// Project returns the planar displacement, in meters, from the anchor to the
// given geopoint. X points north and Y points east.
func (lp *LocalProjector) Project(p *geo.Point) r3.Vector {
	latDist, lngDist := GetCartesianDistance(lp.origin, p)
	azimuth := lp.origin.BearingTo(p)

	switch {
	case azimuth >= 0 && azimuth <= 90:
		return r3.Vector{X: latDist, Y: lngDist, Z: 0}
	case azimuth > 90 && azimuth <= 180:
		return r3.Vector{X: -latDist, Y: lngDist, Z: 0}
	case azimuth >= -90 && azimuth < 0:
		return r3.Vector{X: latDist, Y: -lngDist, Z: 0}
	default:
		return r3.Vector{X: -latDist, Y: -lngDist, Z: 0}
	}
}

// PitchTo returns the elevation angle, in radians, from the observer to the
// target. Coincident projections yield atan2(z, 0), which is 0 or +-pi/2;
// that degenerate result is intended.
func (lp *LocalProjector) PitchTo(target *geo.Point, targetAlt float64, observer *geo.Point, observerAlt float64) float64 {
	tp := lp.Project(target)
	op := lp.Project(observer)
	distance := math.Hypot(tp.X-op.X, tp.Y-op.Y)
	z := targetAlt - observerAlt
	return math.Atan2(z, distance)
}
