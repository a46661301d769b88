package models

import (
	"time"

	"github.com/google/uuid"
)

// Device represents a plant-care unit. Sensors, actuators, commands, alerts
// and the automation profile all hang off a device and are deleted with it.
type Device struct {
	ID         uuid.UUID    `json:"id"`
	UserID     *uuid.UUID   `json:"user_id"`
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	Status     DeviceStatus `json:"status"`
	SecretHash string       `json:"-"`
	LastSeen   *time.Time   `json:"last_seen"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Sensor belongs to one device and produces readings of a single type
type Sensor struct {
	ID        uuid.UUID  `json:"id"`
	DeviceID  uuid.UUID  `json:"device_id"`
	Type      SensorType `json:"type"`
	Unit      string     `json:"unit"`
	CreatedAt time.Time  `json:"created_at"`
}

// Reading is an immutable sensor sample. Corrections are new readings.
type Reading struct {
	ID         uuid.UUID  `json:"id"`
	SensorID   uuid.UUID  `json:"sensor_id"`
	Value      float64    `json:"value"`
	RecordedAt time.Time  `json:"recorded_at"`
	BatchID    *uuid.UUID `json:"batch_id,omitempty"`
}

// Actuator belongs to one device and tracks its last known physical state
type Actuator struct {
	ID            uuid.UUID     `json:"id"`
	DeviceID      uuid.UUID     `json:"device_id"`
	Type          ActuatorType  `json:"type"`
	State         ActuatorState `json:"state"`
	LastCommandAt *time.Time    `json:"last_command_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Command is a queued actuator instruction awaiting device pickup
type Command struct {
	ID          uuid.UUID     `json:"id"`
	DeviceID    uuid.UUID     `json:"device_id"`
	ActuatorID  uuid.UUID     `json:"actuator_id"`
	Verb        CommandVerb   `json:"verb"`
	DurationSec *int          `json:"duration_sec,omitempty"`
	Status      CommandStatus `json:"status"`
	Message     string        `json:"message,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AutomationProfile holds per-device thresholds. A nil field disables the
// corresponding rule for that device.
type AutomationProfile struct {
	ID                  uuid.UUID `json:"id"`
	DeviceID            uuid.UUID `json:"device_id"`
	SoilMoistureMin     *float64  `json:"soil_moisture_min"`
	SoilMoistureMax     *float64  `json:"soil_moisture_max"`
	TempMin             *float64  `json:"temp_min"`
	TempMax             *float64  `json:"temp_max"`
	MinWaterLevel       *float64  `json:"min_water_level"`
	WateringDurationSec *int      `json:"watering_duration_sec"`
	WateringCooldownMin *int      `json:"watering_cooldown_min"`
	LampOnMinute        *int      `json:"lamp_on_minute"`
	LampOffMinute       *int      `json:"lamp_off_minute"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Alert is a raised condition on a device. ResolvedAt is set by user action.
type Alert struct {
	ID         uuid.UUID     `json:"id"`
	DeviceID   uuid.UUID     `json:"device_id"`
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

// User owns devices and receives alert notifications
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TelemetryItem is one accepted reading inside a queued batch event
type TelemetryItem struct {
	SensorID   uuid.UUID `json:"sensor_id"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TelemetryBatch is the event published to the telemetry queue after a batch
// has been accepted and stored
type TelemetryBatch struct {
	DeviceID  uuid.UUID       `json:"device_id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	Items     []TelemetryItem `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

// RuleTrace is the per-rule entry of an execution log row
type RuleTrace struct {
	RuleName string `json:"rule_name"`
	Executed bool   `json:"executed"`
	Reason   string `json:"reason"`
	Commands int    `json:"commands"`
	Alerts   int    `json:"alerts"`
}

// ExecutionLog is the append-only audit record of one batch evaluation
type ExecutionLog struct {
	ID              uuid.UUID              `json:"id"`
	DeviceID        uuid.UUID              `json:"device_id"`
	BatchID         uuid.UUID              `json:"batch_id"`
	Rules           []RuleTrace            `json:"rules"`
	CommandsIssued  int                    `json:"commands_issued"`
	AlertsCreated   int                    `json:"alerts_created"`
	SensorReadings  map[SensorType]float64 `json:"sensor_readings"`
	ProfileSnapshot *AutomationProfile     `json:"profile_snapshot"`
	CreatedAt       time.Time              `json:"created_at"`
}
