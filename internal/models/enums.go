package models

// DeviceStatus is the device lifecycle state
type DeviceStatus string

const (
	DeviceProvisioned DeviceStatus = "provisioned"
	DeviceClaimed     DeviceStatus = "claimed"
	DeviceActive      DeviceStatus = "active"
)

// SensorType is the closed set of supported sensor kinds
type SensorType string

const (
	SensorSoilMoisture   SensorType = "soil_moisture"
	SensorAirTemperature SensorType = "air_temperature"
	SensorWaterLevel     SensorType = "water_level"
)

// ActuatorType is the closed set of supported actuator kinds
type ActuatorType string

const (
	ActuatorPump ActuatorType = "pump"
	ActuatorLamp ActuatorType = "lamp"
)

// ActuatorState is the last known physical state of an actuator
type ActuatorState string

const (
	StateOn      ActuatorState = "on"
	StateOff     ActuatorState = "off"
	StateUnknown ActuatorState = "unknown"
)

// CommandVerb is what the device is asked to do
type CommandVerb string

const (
	VerbOn    CommandVerb = "on"
	VerbOff   CommandVerb = "off"
	VerbPulse CommandVerb = "pulse"
)

// Valid reports whether the verb is one a device understands
func (v CommandVerb) Valid() bool {
	return v == VerbOn || v == VerbOff || v == VerbPulse
}

// CommandStatus follows pending -> acknowledged | failed, terminal after that
type CommandStatus string

const (
	CommandPending      CommandStatus = "pending"
	CommandAcknowledged CommandStatus = "acknowledged"
	CommandFailed       CommandStatus = "failed"
)

// Terminal reports whether a command status can no longer transition
func (s CommandStatus) Terminal() bool {
	return s == CommandAcknowledged || s == CommandFailed
}

// AlertType identifies the condition that raised an alert
type AlertType string

const (
	AlertSoilLow          AlertType = "SOIL_LOW"
	AlertTempLow          AlertType = "TEMP_LOW"
	AlertTempHigh         AlertType = "TEMP_HIGH"
	AlertWaterLow         AlertType = "WATER_LOW"
	AlertWateringCooldown AlertType = "WATERING_COOLDOWN"
)

// AlertSeverity ranks alerts for display and notification routing
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarn     AlertSeverity = "WARN"
	SeverityCritical AlertSeverity = "CRITICAL"
)
