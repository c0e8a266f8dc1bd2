package input

import (
	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"github.com/skylift-robotics/mount/mavbus"
	"github.com/skylift-robotics/mount/mavmsg"
)

// ackCommand publishes an accepted acknowledgment addressed back to the
// source of the original command. Fire-and-forget: there is no retry and no
// delivery confirmation.
func ackCommand(bus *mavbus.Bus, clk clock.Clock, cmd *mavmsg.VehicleCommand) {
	ack := mavmsg.VehicleCommandAck{
		Timestamp:       clk.Now(),
		Command:         cmd.Command,
		Result:          mavmsg.ResultAccepted,
		TargetSystem:    cmd.SourceSystem,
		TargetComponent: cmd.SourceComponent,
	}
	goutils.UncheckedError(mavbus.Publish(bus, mavmsg.TopicVehicleCommandAck, ack))
}
