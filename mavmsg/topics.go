package mavmsg

import (
	"github.com/skylift-robotics/mount/mavbus"
)

// Typed topic handles for every message the adapters consume or produce.
var (
	TopicRegionOfInterest           = mavbus.NewTopic[RegionOfInterest]("region_of_interest")
	TopicPositionSetpointTriplet    = mavbus.NewTopic[PositionSetpointTriplet]("position_setpoint_triplet")
	TopicVehicleCommand             = mavbus.NewTopic[VehicleCommand]("vehicle_command")
	TopicVehicleCommandAck          = mavbus.NewTopic[VehicleCommandAck]("vehicle_command_ack")
	TopicGimbalManagerSetAttitude   = mavbus.NewTopic[GimbalManagerSetAttitude]("gimbal_manager_set_attitude")
	TopicGimbalDeviceAttitudeStatus = mavbus.NewTopic[GimbalDeviceAttitudeStatus]("gimbal_device_attitude_status")
	TopicGimbalDeviceInformation    = mavbus.NewTopic[GimbalDeviceInformation]("gimbal_device_information")
	TopicGimbalManagerStatus        = mavbus.NewTopic[GimbalManagerStatus]("gimbal_manager_status")
	TopicGlobalPosition             = mavbus.NewTopic[GlobalPosition]("vehicle_global_position")
)

// RegisterAll registers every standard topic on the bus.
func RegisterAll(b *mavbus.Bus) {
	b.Register(
		TopicRegionOfInterest.Name(),
		TopicPositionSetpointTriplet.Name(),
		TopicVehicleCommand.Name(),
		TopicVehicleCommandAck.Name(),
		TopicGimbalManagerSetAttitude.Name(),
		TopicGimbalDeviceAttitudeStatus.Name(),
		TopicGimbalDeviceInformation.Name(),
		TopicGimbalManagerStatus.Name(),
		TopicGlobalPosition.Name(),
	)
}
