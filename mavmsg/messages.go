// Package mavmsg defines the semantic message records exchanged over the bus
// by the mount input adapters, together with their protocol constants. Wire
// encoding is out of scope; these are the in-process shapes only.
package mavmsg

import (
	"time"
)

// ROIMode designates what a region-of-interest message points at.
type ROIMode uint8

// The region-of-interest modes.
const (
	ROIModeNone ROIMode = iota
	ROIModeNextWaypoint
	ROIModeWaypointIndex
	ROIModeLocation
	ROIModeTarget
)

// MountMode is the sub-mode of a mount control command, carried in its
// seventh parameter.
type MountMode uint8

// The mount control sub-modes.
const (
	MountModeRetract MountMode = iota
	MountModeNeutral
	MountModeMavlinkTargeting
	MountModeRCTargeting
	MountModeGPSPoint
)

// Vehicle command ids understood by the adapters.
const (
	CmdDoMountConfigure        uint32 = 204
	CmdDoMountControl          uint32 = 205
	CmdRequestMessage          uint32 = 512
	CmdDoGimbalManagerAttitude uint32 = 1000
)

// MsgIDGimbalDeviceInformation is the message id requested from an attached
// gimbal device via CmdRequestMessage.
const MsgIDGimbalDeviceInformation = 283

// ResultAccepted is the only acknowledgment result the adapters produce.
const ResultAccepted uint8 = 0

// Gimbal manager flags carried by set-attitude messages and by the
// attitude-control command's fifth parameter.
const (
	GimbalManagerFlagsRetract   uint32 = 1
	GimbalManagerFlagsNeutral   uint32 = 2
	GimbalManagerFlagsRollLock  uint32 = 4
	GimbalManagerFlagsPitchLock uint32 = 8
	GimbalManagerFlagsYawLock   uint32 = 16
	GimbalManagerFlagsNone      uint32 = 1 << 20
	GimbalManagerFlagsNudge     uint32 = 1 << 21
	GimbalManagerFlagsOverride  uint32 = 1 << 22
)

// Gimbal device capability flags announced in device information.
const (
	GimbalDeviceCapFlagsHasRetract     uint16 = 1
	GimbalDeviceCapFlagsHasNeutral     uint16 = 2
	GimbalDeviceCapFlagsHasRollAxis    uint16 = 4
	GimbalDeviceCapFlagsHasRollFollow  uint16 = 8
	GimbalDeviceCapFlagsHasRollLock    uint16 = 16
	GimbalDeviceCapFlagsHasPitchAxis   uint16 = 32
	GimbalDeviceCapFlagsHasPitchFollow uint16 = 64
	GimbalDeviceCapFlagsHasPitchLock   uint16 = 128
	GimbalDeviceCapFlagsHasYawAxis     uint16 = 256
	GimbalDeviceCapFlagsHasYawFollow   uint16 = 512
	GimbalDeviceCapFlagsHasYawLock     uint16 = 1024
)

// RegionOfInterest is a target the mount should point at, expressed as
// coordinates or as a reference to the mission's next waypoint.
type RegionOfInterest struct {
	Timestamp time.Time
	Mode      ROIMode

	Lat float64
	Lon float64
	Alt float64

	RollOffset  float64
	PitchOffset float64
	YawOffset   float64
}

// PositionSetpoint is a single mission setpoint.
type PositionSetpoint struct {
	Lat float64
	Lon float64
	Alt float64
}

// PositionSetpointTriplet carries the previous, current and next mission
// setpoints. The adapters only read Current.
type PositionSetpointTriplet struct {
	Timestamp time.Time
	Previous  PositionSetpoint
	Current   PositionSetpoint
	Next      PositionSetpoint
}

// VehicleCommand is a generic addressed command with up to seven parameters.
// Parameters five and six carry double precision because they hold
// geographic coordinates for some commands.
type VehicleCommand struct {
	Timestamp time.Time
	Command   uint32

	Param1 float32
	Param2 float32
	Param3 float32
	Param4 float32
	Param5 float64
	Param6 float64
	Param7 float32

	TargetSystem    uint8
	TargetComponent uint8
	SourceSystem    uint8
	SourceComponent uint8
}

// VehicleCommandAck acknowledges a handled vehicle command. It is addressed
// back to the source of the original command.
type VehicleCommandAck struct {
	Timestamp time.Time
	Command   uint32
	Result    uint8

	TargetSystem    uint8
	TargetComponent uint8
}

// GimbalManagerSetAttitude is the modern attitude-control message: a flag
// bitset, an orientation quaternion (w, x, y, z) and an angular velocity.
type GimbalManagerSetAttitude struct {
	Timestamp time.Time
	Flags     uint32

	Q [4]float32

	AngularVelocityX float32
	AngularVelocityY float32
	AngularVelocityZ float32
}

// GimbalDeviceAttitudeStatus is the attitude and flag state streamed by a
// gimbal device.
type GimbalDeviceAttitudeStatus struct {
	Timestamp   time.Time
	DeviceFlags uint16

	Q [4]float32

	AngularVelocityX float32
	AngularVelocityY float32
	AngularVelocityZ float32
}

// GimbalDeviceInformation announces a gimbal device's identity and
// capabilities.
type GimbalDeviceInformation struct {
	Timestamp time.Time

	VendorName      string
	ModelName       string
	FirmwareVersion uint32
	CapabilityFlags uint16

	TiltMax     float32
	TiltMin     float32
	TiltRateMax float32
	PanMax      float32
	PanMin      float32
	PanRateMax  float32
}

// GimbalManagerStatus mirrors the flag state of the managed device.
type GimbalManagerStatus struct {
	Timestamp      time.Time
	Flags          uint32
	GimbalDeviceID uint8
}

// GlobalPosition is the vehicle's current geodetic position and heading.
type GlobalPosition struct {
	Timestamp time.Time

	Lat float64
	Lon float64
	Alt float64
	Yaw float64
}
