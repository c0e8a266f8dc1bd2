package input

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/skylift-robotics/mount/control"
	"github.com/skylift-robotics/mount/mavbus"
	"github.com/skylift-robotics/mount/mavmsg"
	"github.com/skylift-robotics/mount/utils"
)

// newMountCommandInput drives the bus with a mock clock so consecutive
// publishes can be spaced past the command rate limit without sleeping.
func newMountCommandInput(t *testing.T) (*MountCommandInput, *mavbus.Bus, *clock.Mock) {
	t.Helper()
	mc := clock.NewMock()
	bus := mavbus.NewBusWithClock(golog.NewTestLogger(t), mc)
	mavmsg.RegisterAll(bus)
	in := NewMountCommandInput(bus, DefaultConfig(), golog.NewTestLogger(t))
	test.That(t, in.Initialize(), test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, in.Close(), test.ShouldBeNil) })
	return in, bus, mc
}

func publishCommand(t *testing.T, bus *mavbus.Bus, mc *clock.Mock, vcmd mavmsg.VehicleCommand) {
	t.Helper()
	mc.Add(commandMinInterval + time.Millisecond)
	test.That(t, mavbus.Publish(bus, mavmsg.TopicVehicleCommand, vcmd), test.ShouldBeNil)
}

func addressedCommand(command uint32) mavmsg.VehicleCommand {
	return mavmsg.VehicleCommand{
		Command:         command,
		TargetSystem:    DefaultSystemID,
		TargetComponent: DefaultComponentID,
		SourceSystem:    42,
		SourceComponent: 7,
	}
}

func TestMountControlAngles(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	vcmd := addressedCommand(mavmsg.CmdDoMountControl)
	vcmd.Param1 = 45 // pitch, degrees
	vcmd.Param2 = 30 // roll, degrees
	vcmd.Param3 = 10 // yaw, degrees
	vcmd.Param7 = float32(mavmsg.MountModeMavlinkTargeting)
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindAngle)
	test.That(t, cmd.Angle.Angles[control.AxisRoll], test.ShouldAlmostEqual, utils.DegToRad(30))
	test.That(t, cmd.Angle.Angles[control.AxisPitch], test.ShouldAlmostEqual, utils.DegToRad(45))
	test.That(t, cmd.Angle.Angles[control.AxisYaw], test.ShouldAlmostEqual, utils.DegToRad(10))
	for _, f := range cmd.Angle.Frames {
		test.That(t, f, test.ShouldEqual, control.FrameBodyRelative)
	}
}

func TestMountControlYawRewrap(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	vcmd := addressedCommand(mavmsg.CmdDoMountControl)
	vcmd.Param3 = 200
	vcmd.Param7 = float32(mavmsg.MountModeMavlinkTargeting)
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Angle.Angles[control.AxisYaw], test.ShouldAlmostEqual, utils.DegToRad(-160))
}

func TestMountControlRetract(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	vcmd := addressedCommand(mavmsg.CmdDoMountControl)
	vcmd.Param7 = float32(mavmsg.MountModeRetract)
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindNeutral)
	test.That(t, cmd.ShutterRetract, test.ShouldBeTrue)

	// any subsequent addressed command clears the retract flag
	vcmd.Param7 = float32(mavmsg.MountModeNeutral)
	publishCommand(t, bus, mc, vcmd)

	cmd, err = in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindNeutral)
	test.That(t, cmd.ShutterRetract, test.ShouldBeFalse)
}

func TestMountControlGPSPoint(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	vcmd := addressedCommand(mavmsg.CmdDoMountControl)
	vcmd.Param4 = 500   // altitude
	vcmd.Param5 = 47.37 // latitude
	vcmd.Param6 = 8.54  // longitude
	vcmd.Param7 = float32(mavmsg.MountModeGPSPoint)
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindGeo)
	test.That(t, cmd.Geo.Lat, test.ShouldEqual, 47.37)
	test.That(t, cmd.Geo.Lon, test.ShouldEqual, 8.54)
	test.That(t, cmd.Geo.Alt, test.ShouldEqual, 500)
	test.That(t, cmd.Geo.PitchFixed, test.ShouldEqual, control.PitchUnset)
}

func TestMountControlRCTargeting(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	ackWS := mavbus.NewWaitSet(nil)
	ackSub, err := mavbus.Subscribe(bus, mavmsg.TopicVehicleCommandAck, ackWS)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, ackSub.Close(), test.ShouldBeNil) }()

	vcmd := addressedCommand(mavmsg.CmdDoMountControl)
	vcmd.Param7 = float32(mavmsg.MountModeRCTargeting)
	publishCommand(t, bus, mc, vcmd)

	// acknowledged but not translated into a command
	cmd, err := in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldBeNil)

	ack, ok := ackSub.Copy()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ack.Command, test.ShouldEqual, mavmsg.CmdDoMountControl)
	test.That(t, ack.Result, test.ShouldEqual, mavmsg.ResultAccepted)
	test.That(t, ack.TargetSystem, test.ShouldEqual, uint8(42))
	test.That(t, ack.TargetComponent, test.ShouldEqual, uint8(7))
}

func TestMountConfigure(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	vcmd := addressedCommand(mavmsg.CmdDoMountConfigure)
	vcmd.Param2 = 1 // stabilize roll
	vcmd.Param3 = 0
	vcmd.Param4 = 0.9 // rounds to 1
	vcmd.Param5 = 1   // angular rate
	vcmd.Param6 = 2   // absolute
	vcmd.Param7 = 5   // unsupported, falls back to body relative
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindNeutral)
	test.That(t, cmd.StabilizeAxis, test.ShouldResemble, [3]bool{true, false, true})
	test.That(t, cmd.Angle.Frames, test.ShouldResemble, [3]control.Frame{
		control.FrameAngularRate,
		control.FrameAbsolute,
		control.FrameBodyRelative,
	})
}

func TestMountCommandAddressing(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	// wrong system: ignored
	vcmd := addressedCommand(mavmsg.CmdDoMountControl)
	vcmd.TargetSystem = 99
	vcmd.Param7 = float32(mavmsg.MountModeNeutral)
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), 30*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldBeNil)

	// broadcast component: accepted
	vcmd.TargetSystem = DefaultSystemID
	vcmd.TargetComponent = 0
	publishCommand(t, bus, mc, vcmd)

	cmd, err = in.Update(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindNeutral)
}

func TestMountCommandRemainingBudget(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	type result struct {
		cmd *control.Command
		err error
	}
	done := make(chan result, 1)
	go func() {
		cmd, err := in.Update(context.Background(), time.Second)
		done <- result{cmd, err}
	}()

	// give the update a moment to enter its wait, then feed it a command
	// for another system followed by one of ours
	time.Sleep(20 * time.Millisecond)
	other := addressedCommand(mavmsg.CmdDoMountControl)
	other.TargetSystem = 99
	other.Param7 = float32(mavmsg.MountModeNeutral)
	publishCommand(t, bus, mc, other)

	time.Sleep(20 * time.Millisecond)
	ours := addressedCommand(mavmsg.CmdDoMountControl)
	ours.Param7 = float32(mavmsg.MountModeNeutral)
	publishCommand(t, bus, mc, ours)

	res := <-done
	test.That(t, res.err, test.ShouldBeNil)
	test.That(t, res.cmd, test.ShouldNotBeNil)
	test.That(t, res.cmd.Kind, test.ShouldEqual, control.KindNeutral)
}

func TestMountCommandUnknownID(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	vcmd := addressedCommand(12345)
	publishCommand(t, bus, mc, vcmd)

	cmd, err := in.Update(context.Background(), 30*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldBeNil)
}

func TestMountCommandRateLimit(t *testing.T) {
	in, bus, mc := newMountCommandInput(t)

	first := addressedCommand(mavmsg.CmdDoMountControl)
	first.Param7 = float32(mavmsg.MountModeNeutral)
	publishCommand(t, bus, mc, first)

	// published within the rate limit window: no second observation, but the
	// topic's latest value is replaced, so the wakeup already pending from
	// the first command delivers this one
	second := addressedCommand(mavmsg.CmdDoMountControl)
	second.Param1 = 45
	second.Param7 = float32(mavmsg.MountModeMavlinkTargeting)
	test.That(t, mavbus.Publish(bus, mavmsg.TopicVehicleCommand, second), test.ShouldBeNil)

	cmd, err := in.Update(context.Background(), 50*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Kind, test.ShouldEqual, control.KindAngle)
	test.That(t, cmd.Angle.Angles[control.AxisPitch], test.ShouldAlmostEqual, utils.DegToRad(45))

	// the rate-limited message does not produce a second observation
	cmd, err = in.Update(context.Background(), 30*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldBeNil)
}

func TestMountCommandInitializeFailure(t *testing.T) {
	bus := mavbus.NewBus(golog.NewTestLogger(t))
	in := NewMountCommandInput(bus, DefaultConfig(), golog.NewTestLogger(t))
	test.That(t, in.Initialize(), test.ShouldNotBeNil)
}

func TestMountCommandDescribe(t *testing.T) {
	in, _, _ := newMountCommandInput(t)
	test.That(t, in.Describe(), test.ShouldContainSubstring, "mount command")
}
