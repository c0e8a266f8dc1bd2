package input

// Parameter store keys for the two MAVLink identifiers.
const (
	ParamSystemID    = "MAV_SYS_ID"
	ParamComponentID = "MAV_COMP_ID"
)

// Defaults applied when the parameter store lacks the identifier keys.
const (
	DefaultSystemID    uint8 = 1
	DefaultComponentID uint8 = 1
)

// ParamStore is the read-only view of the external parameter store the
// adapters need.
type ParamStore interface {
	// Int returns the named integer parameter, or false when it is unset.
	Int(name string) (int64, bool)
}

// Config identifies this system on the command channels.
type Config struct {
	SystemID    uint8
	ComponentID uint8

	// GimbalDeviceAttached declares that a gimbal speaking the modern device
	// protocol is present, so device information is requested from it rather
	// than synthesized.
	GimbalDeviceAttached bool
}

// DefaultConfig returns a config with the built-in identifiers.
func DefaultConfig() Config {
	return Config{
		SystemID:    DefaultSystemID,
		ComponentID: DefaultComponentID,
	}
}

// ConfigFromParams reads the two identifiers from the store, falling back to
// the built-in defaults for absent keys.
func ConfigFromParams(store ParamStore) Config {
	conf := DefaultConfig()
	if v, ok := store.Int(ParamSystemID); ok {
		conf.SystemID = uint8(v)
	}
	if v, ok := store.Int(ParamComponentID); ok {
		conf.ComponentID = uint8(v)
	}
	return conf
}
