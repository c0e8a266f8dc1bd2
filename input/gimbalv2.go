package input

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/skylift-robotics/mount/control"
	"github.com/skylift-robotics/mount/mavbus"
	"github.com/skylift-robotics/mount/mavmsg"
	"github.com/skylift-robotics/mount/spatialmath"
	"github.com/skylift-robotics/mount/utils"
)

// GimbalManagerInput maps the modern gimbal manager protocol into the
// command model: set-attitude messages, gimbal manager commands, and the
// same ROI channel the legacy adapter speaks, turned into pointing angles
// here rather than downstream. It also announces device capabilities and
// mirrors the device's flag state as a manager status stream.
type GimbalManagerInput struct {
	bus    *mavbus.Bus
	conf   Config
	logger golog.Logger
	clock  clock.Clock

	ws          *mavbus.WaitSet
	setAttSub   *mavbus.Subscription[mavmsg.GimbalManagerSetAttitude]
	roiSub      *mavbus.Subscription[mavmsg.RegionOfInterest]
	setpointSub *mavbus.Subscription[mavmsg.PositionSetpointTriplet]
	cmdSub      *mavbus.Subscription[mavmsg.VehicleCommand]

	attStatusSub *mavbus.Subscription[mavmsg.GimbalDeviceAttitudeStatus]
	globalPosSub *mavbus.Subscription[mavmsg.GlobalPosition]

	lastAttStatus mavmsg.GimbalDeviceAttitudeStatus

	// projector is anchored at the first vehicle position observed and never
	// re-anchored
	projector *spatialmath.LocalProjector

	cmd     control.Command
	roiMode mavmsg.ROIMode
	roiSet  bool
}

// NewGimbalManagerInput returns an uninitialized gimbal manager adapter.
// When a device-protocol gimbal is attached its device information is
// requested from it; otherwise a default announcement is published on its
// behalf.
func NewGimbalManagerInput(bus *mavbus.Bus, conf Config, logger golog.Logger) *GimbalManagerInput {
	in := &GimbalManagerInput{
		bus:    bus,
		conf:   conf,
		logger: logger,
		clock:  clock.New(),
	}

	if conf.GimbalDeviceAttached {
		in.requestDeviceInformation()
	} else {
		in.publishDeviceInformation()
	}
	return in
}

// Initialize subscribes to all of the adapter's sources.
func (in *GimbalManagerInput) Initialize() error {
	in.ws = mavbus.NewWaitSet(in.clock)

	var err error
	if in.setAttSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicGimbalManagerSetAttitude, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to gimbal manager set attitude")
	}
	if in.roiSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicRegionOfInterest, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to region of interest")
	}
	if in.setpointSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicPositionSetpointTriplet, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to position setpoint triplet")
	}
	if in.cmdSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicVehicleCommand, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to vehicle command")
	}
	in.cmdSub.SetMinInterval(commandMinInterval)

	if in.attStatusSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicGimbalDeviceAttitudeStatus, nil); err != nil {
		return errors.Wrap(err, "subscribing to gimbal device attitude status")
	}
	if in.globalPosSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicGlobalPosition, nil); err != nil {
		return errors.Wrap(err, "subscribing to vehicle global position")
	}
	return nil
}

// Update streams the manager status, then waits for a message that changes
// the command model, re-entering the wait with the remaining budget after
// consuming anything that does not.
func (in *GimbalManagerInput) Update(ctx context.Context, timeout time.Duration) (*control.Command, error) {
	in.streamManagerStatus()

	deadline := in.clock.Now().Add(timeout)
	produced := false

	for {
		woke, err := in.ws.WaitUntil(ctx, deadline)
		if err != nil {
			return nil, err
		}
		if !woke {
			break
		}

		exit := true

		if in.setAttSub.Updated() {
			setAtt, _ := in.setAttSub.Copy()

			q := quat.Number{
				Real: float64(setAtt.Q[0]),
				Imag: float64(setAtt.Q[1]),
				Jmag: float64(setAtt.Q[2]),
				Kmag: float64(setAtt.Q[3]),
			}
			euler := spatialmath.EulerAnglesFromQuaternion(q)
			// the protocol's axis naming is crossed here on purpose
			pitch := euler.Roll
			roll := euler.Pitch
			yaw := euler.Yaw

			in.setFromAttitude(setAtt.Flags,
				pitch, float64(setAtt.AngularVelocityY),
				yaw, float64(setAtt.AngularVelocityZ),
				roll, float64(setAtt.AngularVelocityX))
			produced = true
		}

		if in.roiSub.Updated() {
			roi, _ := in.roiSub.Copy()
			in.cmd.ShutterRetract = false

			switch roi.Mode {
			case mavmsg.ROIModeNone:
				in.cmd.Kind = control.KindNeutral
				produced = true
				in.roiSet = false
				in.roiMode = roi.Mode

			case mavmsg.ROIModeNextWaypoint:
				triplet, _ := in.setpointSub.Copy()
				in.cmd.Kind = control.KindGeo
				in.cmd.Geo.Lon = triplet.Current.Lon
				in.cmd.Geo.Lat = triplet.Current.Lat
				in.cmd.Geo.Alt = triplet.Current.Alt
				in.cmd.Geo.PitchFixed = nextWaypointFixedPitch
				in.cmd.Geo.RollAngle = roi.RollOffset
				in.cmd.Geo.PitchOffset = roi.PitchOffset
				in.cmd.Geo.YawOffset = roi.YawOffset

				in.targetToAngles(triplet.Current.Lon, triplet.Current.Lat, triplet.Current.Alt)
				produced = true
				in.roiSet = true
				in.roiMode = roi.Mode

			case mavmsg.ROIModeLocation:
				in.cmd.SetGeoTarget(roi.Lon, roi.Lat, roi.Alt)
				in.targetToAngles(roi.Lon, roi.Lat, roi.Alt)
				produced = true
				in.roiSet = true
				in.roiMode = roi.Mode

			case mavmsg.ROIModeTarget:
				// tracked-object targeting is recognized but not implemented
				in.logger.Debugf("ROI mode %d not implemented, ignoring", roi.Mode)
				exit = false

			default:
				in.logger.Debugf("unknown ROI mode %d, ignoring", roi.Mode)
				exit = false
			}
		}

		if in.setpointSub.Updated() {
			// the message must be consumed in every case, or the next wait
			// would fire again immediately
			triplet, _ := in.setpointSub.Copy()
			if in.roiMode == mavmsg.ROIModeNextWaypoint {
				in.cmd.Kind = control.KindGeo
				in.cmd.Geo.Lon = triplet.Current.Lon
				in.cmd.Geo.Lat = triplet.Current.Lat
				in.cmd.Geo.Alt = triplet.Current.Alt
				in.targetToAngles(triplet.Current.Lon, triplet.Current.Lat, triplet.Current.Alt)
				produced = true
			} else {
				exit = false
			}
		}

		if in.cmdSub.Updated() {
			vcmd, _ := in.cmdSub.Copy()

			// process only commands for us or for anyone (id 0)
			sysOK := vcmd.TargetSystem == in.conf.SystemID || vcmd.TargetSystem == 0
			compOK := vcmd.TargetComponent == in.conf.ComponentID || vcmd.TargetComponent == 0
			if !sysOK || !compOK {
				in.logger.Debugf("discarding command %d addressed to %d/%d",
					vcmd.Command, vcmd.TargetSystem, vcmd.TargetComponent)
				exit = false
			} else if vcmd.Command == mavmsg.CmdDoGimbalManagerAttitude {
				in.setFromAttitude(uint32(vcmd.Param5),
					float64(vcmd.Param3), float64(vcmd.Param1),
					float64(vcmd.Param3), float64(vcmd.Param2),
					0, math.NaN())
				produced = true
				ackCommand(in.bus, in.clock, &vcmd)
			} else {
				exit = false
			}
		}

		if exit {
			break
		}
	}

	if !produced {
		return nil, nil
	}
	out := in.cmd
	return &out, nil
}

// setFromAttitude applies the flag-driven merge rule shared by the
// set-attitude message and the attitude command.
func (in *GimbalManagerInput) setFromAttitude(flags uint32,
	pitchAngle, pitchRate, yawAngle, yawRate, rollAngle, rollRate float64,
) {
	switch {
	case flags&mavmsg.GimbalManagerFlagsRetract != 0:
		// no retract representation in the command model

	case flags&mavmsg.GimbalManagerFlagsNeutral != 0:
		in.cmd.Kind = control.KindNeutral

	case flags&mavmsg.GimbalManagerFlagsNone != 0:
		// leave the model untouched

	default:
		in.cmd.Kind = control.KindAngle
		in.cmd.Angle.Frames = [3]control.Frame{
			control.FrameBodyRelative,
			control.FrameBodyRelative,
			control.FrameBodyRelative,
		}

		if in.roiSet && flags&mavmsg.GimbalManagerFlagsNudge != 0 {
			// nudge adds onto the tracked target instead of replacing it
			in.cmd.Angle.Angles[0] += pitchAngle
			in.cmd.Angle.Angles[1] += rollAngle
			in.cmd.Angle.Angles[2] += yawAngle
		} else {
			in.cmd.Angle.Angles[0] = pitchAngle
			in.cmd.Angle.Angles[1] = rollAngle
			in.cmd.Angle.Angles[2] = yawAngle
		}

		if in.roiSet && flags&mavmsg.GimbalManagerFlagsOverride != 0 {
			// override replaces the tracked target outright, winning over a
			// simultaneous nudge
			in.cmd.Angle.Angles[0] = pitchAngle
			in.cmd.Angle.Angles[1] = rollAngle
			in.cmd.Angle.Angles[2] = yawAngle
		}

		// a finite rate takes the axis over, value and frame both
		if !math.IsNaN(rollRate) && !math.IsInf(rollRate, 0) {
			in.cmd.Angle.Frames[0] = control.FrameAngularRate
			in.cmd.Angle.Angles[0] = rollRate
		}
		if !math.IsNaN(pitchRate) && !math.IsInf(pitchRate, 0) {
			in.cmd.Angle.Frames[1] = control.FrameAngularRate
			in.cmd.Angle.Angles[1] = pitchRate
		}
		if !math.IsNaN(yawRate) && !math.IsInf(yawRate, 0) {
			in.cmd.Angle.Frames[2] = control.FrameAngularRate
			in.cmd.Angle.Angles[2] = yawRate
		}

		// lock flags are evaluated last and pin the axis to the absolute
		// frame
		if flags&mavmsg.GimbalManagerFlagsRollLock != 0 {
			in.cmd.Angle.Frames[0] = control.FrameAbsolute
		}
		if flags&mavmsg.GimbalManagerFlagsPitchLock != 0 {
			in.cmd.Angle.Frames[1] = control.FrameAbsolute
		}
		if flags&mavmsg.GimbalManagerFlagsYawLock != 0 {
			in.cmd.Angle.Frames[2] = control.FrameAbsolute
		}
	}
}

// targetToAngles turns the geo payload's target into an angle command using
// the vehicle's current global position.
func (in *GimbalManagerInput) targetToAngles(lon, lat, alt float64) {
	pos, _ := in.globalPosSub.Copy()
	vehicle := geo.NewPoint(pos.Lat, pos.Lon)
	target := geo.NewPoint(lat, lon)

	in.cmd.Kind = control.KindAngle
	in.cmd.Angle.Frames = [3]control.Frame{
		control.FrameBodyRelative,
		control.FrameBodyRelative,
		control.FrameBodyRelative,
	}

	in.cmd.Angle.Angles[control.AxisRoll] = 0

	// a fixed pitch above -pi is used verbatim, otherwise the pitch comes
	// from the target altitude
	if in.cmd.Geo.PitchFixed >= -math.Pi {
		in.cmd.Angle.Angles[control.AxisPitch] = in.cmd.Geo.PitchFixed
	} else {
		in.cmd.Angle.Angles[control.AxisPitch] = in.computePitch(target, alt, vehicle, pos.Alt)
	}

	in.cmd.Angle.Angles[control.AxisYaw] = spatialmath.Bearing(vehicle, target) - pos.Yaw

	in.cmd.Angle.Angles[control.AxisPitch] += in.cmd.Geo.PitchOffset
	in.cmd.Angle.Angles[control.AxisYaw] += in.cmd.Geo.YawOffset

	in.cmd.Angle.Angles[control.AxisYaw] = utils.WrapPi(in.cmd.Angle.Angles[control.AxisYaw])
}

// computePitch projects the target and the vehicle onto the tangent plane
// anchored at the first vehicle position observed.
func (in *GimbalManagerInput) computePitch(target *geo.Point, targetAlt float64, vehicle *geo.Point, vehicleAlt float64) float64 {
	if in.projector == nil {
		in.projector = spatialmath.NewLocalProjector(vehicle)
	}
	return in.projector.PitchTo(target, targetAlt, vehicle, vehicleAlt)
}

// streamManagerStatus republishes the latest device flag state as a manager
// status announcement.
func (in *GimbalManagerInput) streamManagerStatus() {
	if in.attStatusSub.Updated() {
		in.lastAttStatus, _ = in.attStatusSub.Copy()
	}

	status := mavmsg.GimbalManagerStatus{
		Timestamp:      in.clock.Now(),
		Flags:          uint32(in.lastAttStatus.DeviceFlags),
		GimbalDeviceID: 0,
	}
	goutils.UncheckedError(mavbus.Publish(in.bus, mavmsg.TopicGimbalManagerStatus, status))
}

// publishDeviceInformation announces default device information on behalf of
// a gimbal that does not speak the device protocol itself.
func (in *GimbalManagerInput) publishDeviceInformation() {
	info := mavmsg.GimbalDeviceInformation{
		Timestamp:  in.clock.Now(),
		VendorName: "Skylift",
		ModelName:  "AUX mount",
		CapabilityFlags: mavmsg.GimbalDeviceCapFlagsHasNeutral |
			mavmsg.GimbalDeviceCapFlagsHasRollLock |
			mavmsg.GimbalDeviceCapFlagsHasPitchAxis |
			mavmsg.GimbalDeviceCapFlagsHasPitchLock |
			mavmsg.GimbalDeviceCapFlagsHasYawAxis |
			mavmsg.GimbalDeviceCapFlagsHasYawLock,
		TiltMax:     math.Pi / 2,
		TiltMin:     -math.Pi / 2,
		TiltRateMax: 1,
		PanMax:      math.Pi,
		PanMin:      -math.Pi,
		PanRateMax:  1,
	}
	goutils.UncheckedError(mavbus.Publish(in.bus, mavmsg.TopicGimbalDeviceInformation, info))
}

// requestDeviceInformation asks an attached device-protocol gimbal to
// announce itself.
func (in *GimbalManagerInput) requestDeviceInformation() {
	vcmd := mavmsg.VehicleCommand{
		Timestamp:       in.clock.Now(),
		Command:         mavmsg.CmdRequestMessage,
		Param1:          mavmsg.MsgIDGimbalDeviceInformation,
		TargetSystem:    0,
		TargetComponent: 0,
		SourceSystem:    in.conf.SystemID,
		SourceComponent: in.conf.ComponentID,
	}
	goutils.UncheckedError(mavbus.Publish(in.bus, mavmsg.TopicVehicleCommand, vcmd))
}

// Describe implements Input.
func (in *GimbalManagerInput) Describe() string {
	return "MAVLink (gimbal manager v2)"
}

// Close releases the adapter's subscriptions.
func (in *GimbalManagerInput) Close() error {
	var err error
	if in.setAttSub != nil {
		err = multierr.Combine(err, in.setAttSub.Close())
	}
	if in.roiSub != nil {
		err = multierr.Combine(err, in.roiSub.Close())
	}
	if in.setpointSub != nil {
		err = multierr.Combine(err, in.setpointSub.Close())
	}
	if in.cmdSub != nil {
		err = multierr.Combine(err, in.cmdSub.Close())
	}
	if in.attStatusSub != nil {
		err = multierr.Combine(err, in.attStatusSub.Close())
	}
	if in.globalPosSub != nil {
		err = multierr.Combine(err, in.globalPosSub.Close())
	}
	return err
}
