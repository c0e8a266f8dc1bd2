package input

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/skylift-robotics/mount/control"
	"github.com/skylift-robotics/mount/mavbus"
	"github.com/skylift-robotics/mount/mavmsg"
	"github.com/skylift-robotics/mount/utils"
)

// nextWaypointFixedPitch is the pitch used while tracking the mission's next
// waypoint, where the waypoint altitude is not a useful aim point.
var nextWaypointFixedPitch = utils.DegToRad(-10)

// ROIInput maps the legacy region-of-interest channel into the command
// model, following the position setpoint while the ROI designates the next
// waypoint.
type ROIInput struct {
	bus    *mavbus.Bus
	logger golog.Logger
	clock  clock.Clock

	ws          *mavbus.WaitSet
	roiSub      *mavbus.Subscription[mavmsg.RegionOfInterest]
	setpointSub *mavbus.Subscription[mavmsg.PositionSetpointTriplet]

	cmd     control.Command
	roiMode mavmsg.ROIMode
}

// NewROIInput returns an uninitialized ROI adapter.
func NewROIInput(bus *mavbus.Bus, logger golog.Logger) *ROIInput {
	return &ROIInput{
		bus:    bus,
		logger: logger,
		clock:  clock.New(),
	}
}

// Initialize subscribes to the ROI and position setpoint topics.
func (in *ROIInput) Initialize() error {
	in.ws = mavbus.NewWaitSet(in.clock)

	var err error
	if in.roiSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicRegionOfInterest, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to region of interest")
	}
	if in.setpointSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicPositionSetpointTriplet, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to position setpoint triplet")
	}
	return nil
}

// Update evaluates both sources once after a single timed wait. A timeout
// with no messages produces no command.
func (in *ROIInput) Update(ctx context.Context, timeout time.Duration) (*control.Command, error) {
	deadline := in.clock.Now().Add(timeout)
	woke, err := in.ws.WaitUntil(ctx, deadline)
	if err != nil {
		return nil, err
	}
	if !woke {
		return nil, nil
	}

	produced := false

	if in.roiSub.Updated() {
		roi, _ := in.roiSub.Copy()
		in.cmd.ShutterRetract = false

		switch roi.Mode {
		case mavmsg.ROIModeNone:
			in.cmd.Kind = control.KindNeutral
			produced = true

		case mavmsg.ROIModeNextWaypoint:
			in.readSetpointTarget()
			in.cmd.Geo.PitchFixed = nextWaypointFixedPitch
			in.cmd.Geo.RollAngle = roi.RollOffset
			in.cmd.Geo.PitchOffset = roi.PitchOffset
			in.cmd.Geo.YawOffset = roi.YawOffset
			produced = true

		case mavmsg.ROIModeLocation:
			in.cmd.SetGeoTarget(roi.Lon, roi.Lat, roi.Alt)
			produced = true

		case mavmsg.ROIModeTarget:
			// tracked-object targeting is recognized but not implemented
			in.logger.Debugf("ROI mode %d not implemented, ignoring", roi.Mode)
		}

		in.roiMode = roi.Mode
	}

	if in.setpointSub.Updated() {
		// the message must be consumed in every case, or the next wait would
		// fire again immediately
		if in.roiMode == mavmsg.ROIModeNextWaypoint {
			in.readSetpointTarget()
			produced = true
		} else {
			_, _ = in.setpointSub.Copy()
		}
	}

	if !produced {
		return nil, nil
	}
	out := in.cmd
	return &out, nil
}

// readSetpointTarget points the geo payload at the current position
// setpoint, leaving the correction fields untouched.
func (in *ROIInput) readSetpointTarget() {
	triplet, _ := in.setpointSub.Copy()
	in.cmd.Kind = control.KindGeo
	in.cmd.Geo.Lon = triplet.Current.Lon
	in.cmd.Geo.Lat = triplet.Current.Lat
	in.cmd.Geo.Alt = triplet.Current.Alt
}

// Describe implements Input.
func (in *ROIInput) Describe() string {
	return "MAVLink (ROI)"
}

// Close releases the adapter's subscriptions.
func (in *ROIInput) Close() error {
	var err error
	if in.roiSub != nil {
		err = multierr.Combine(err, in.roiSub.Close())
	}
	if in.setpointSub != nil {
		err = multierr.Combine(err, in.setpointSub.Close())
	}
	return err
}
