package input

import (
	"context"
	"math"
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

// commandMinInterval rate-limits the vehicle command subscription to 100Hz.
// An output stage configured to publish vehicle commands itself would
// otherwise wake the wait here immediately on every update, producing a busy
// loop.
const commandMinInterval = 10 * time.Millisecond

// MountCommandInput maps the legacy mount control and mount configure
// command pair into the command model, acknowledging each handled command.
type MountCommandInput struct {
	bus    *mavbus.Bus
	conf   Config
	logger golog.Logger
	clock  clock.Clock

	ws     *mavbus.WaitSet
	cmdSub *mavbus.Subscription[mavmsg.VehicleCommand]

	cmd control.Command
}

// NewMountCommandInput returns an uninitialized legacy mount command
// adapter.
func NewMountCommandInput(bus *mavbus.Bus, conf Config, logger golog.Logger) *MountCommandInput {
	return &MountCommandInput{
		bus:    bus,
		conf:   conf,
		logger: logger,
		clock:  clock.New(),
	}
}

// Initialize subscribes to the vehicle command topic.
func (in *MountCommandInput) Initialize() error {
	in.ws = mavbus.NewWaitSet(in.clock)

	var err error
	if in.cmdSub, err = mavbus.Subscribe(in.bus, mavmsg.TopicVehicleCommand, in.ws); err != nil {
		return errors.Wrap(err, "subscribing to vehicle command")
	}
	in.cmdSub.SetMinInterval(commandMinInterval)
	return nil
}

// Update waits for a mount command addressed to this system, re-entering the
// wait with the remaining budget after consuming anything else.
func (in *MountCommandInput) Update(ctx context.Context, timeout time.Duration) (*control.Command, error) {
	deadline := in.clock.Now().Add(timeout)

	for {
		woke, err := in.ws.WaitUntil(ctx, deadline)
		if err != nil {
			return nil, err
		}
		if !woke {
			return nil, nil
		}
		if !in.cmdSub.Updated() {
			continue
		}

		vcmd, _ := in.cmdSub.Copy()

		// process only commands for us or for any component (id 0)
		sysOK := vcmd.TargetSystem == in.conf.SystemID
		compOK := vcmd.TargetComponent == in.conf.ComponentID || vcmd.TargetComponent == 0
		if !sysOK || !compOK {
			in.logger.Debugf("discarding command %d addressed to %d/%d",
				vcmd.Command, vcmd.TargetSystem, vcmd.TargetComponent)
			continue
		}

		in.cmd.ShutterRetract = false

		switch vcmd.Command {
		case mavmsg.CmdDoMountControl:
			produced := in.handleMountControl(&vcmd)
			ackCommand(in.bus, in.clock, &vcmd)
			if !produced {
				return nil, nil
			}
			out := in.cmd
			return &out, nil

		case mavmsg.CmdDoMountConfigure:
			in.handleMountConfigure(&vcmd)
			ackCommand(in.bus, in.clock, &vcmd)
			out := in.cmd
			return &out, nil

		default:
			// not ours to handle; keep waiting
			in.logger.Debugf("unhandled command %d", vcmd.Command)
		}
	}
}

// handleMountControl dispatches on the mount sub-mode in the seventh
// parameter and reports whether the command model changed.
func (in *MountCommandInput) handleMountControl(vcmd *mavmsg.VehicleCommand) bool {
	switch mavmsg.MountMode(int(vcmd.Param7)) {
	case mavmsg.MountModeRetract:
		in.cmd.ShutterRetract = true
		fallthrough

	case mavmsg.MountModeNeutral:
		in.cmd.Kind = control.KindNeutral
		return true

	case mavmsg.MountModeMavlinkTargeting:
		in.cmd.Kind = control.KindAngle
		in.cmd.Angle.Frames = [3]control.Frame{
			control.FrameBodyRelative,
			control.FrameBodyRelative,
			control.FrameBodyRelative,
		}
		// the mount convention carries roll on channel 0 where the wire
		// layout carries pitch, and vice versa; yaw is channel 2 in both
		in.cmd.Angle.Angles[control.AxisRoll] = utils.DegToRad(float64(vcmd.Param2))
		in.cmd.Angle.Angles[control.AxisPitch] = utils.DegToRad(float64(vcmd.Param1))
		in.cmd.Angle.Angles[control.AxisYaw] = utils.DegToRad(float64(vcmd.Param3))

		// angles are expected in [-pi..+pi]; a [0..2pi] input range can be
		// fixed up
		if in.cmd.Angle.Angles[control.AxisYaw] > math.Pi {
			in.cmd.Angle.Angles[control.AxisYaw] -= 2 * math.Pi
		}
		return true

	case mavmsg.MountModeRCTargeting:
		return false

	case mavmsg.MountModeGPSPoint:
		in.cmd.SetGeoTarget(vcmd.Param6, vcmd.Param5, float64(vcmd.Param4))
		return true
	}
	return false
}

// handleMountConfigure stores the stabilization booleans and per-axis
// frames, then forces the output neutral.
func (in *MountCommandInput) handleMountConfigure(vcmd *mavmsg.VehicleCommand) {
	in.cmd.StabilizeAxis[0] = roundParam(vcmd.Param2) != 0
	in.cmd.StabilizeAxis[1] = roundParam(vcmd.Param3) != 0
	in.cmd.StabilizeAxis[2] = roundParam(vcmd.Param4) != 0

	params := [3]int{
		roundParam(float32(vcmd.Param5)),
		roundParam(float32(vcmd.Param6)),
		roundParam(vcmd.Param7),
	}
	for i, p := range params {
		in.cmd.Angle.Frames[i] = frameFromParam(p)
	}

	// configure never yields an angle command
	in.cmd.Kind = control.KindNeutral
}

func roundParam(p float32) int {
	return int(p + 0.5)
}

func frameFromParam(p int) control.Frame {
	switch p {
	case 0:
		return control.FrameBodyRelative
	case 1:
		return control.FrameAngularRate
	case 2:
		return control.FrameAbsolute
	default:
		// not supported, fall back to a body relative angle
		return control.FrameBodyRelative
	}
}

// Describe implements Input.
func (in *MountCommandInput) Describe() string {
	return "MAVLink (mount command)"
}

// Close releases the adapter's subscription.
func (in *MountCommandInput) Close() error {
	var err error
	if in.cmdSub != nil {
		err = multierr.Combine(err, in.cmdSub.Close())
	}
	return err
}
