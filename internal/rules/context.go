package rules

import (
	"time"

	"github.com/google/uuid"

	"plantcare/internal/models"
)

// RuleContext is the read-only snapshot a rule evaluates against. It is built
// once per telemetry batch per device; rules never see each other's output.
type RuleContext struct {
	Device  models.Device
	Profile models.AutomationProfile

	// Actuators of the device, with their last known states
	Actuators []models.Actuator

	// Readings maps sensor type to the latest value in this batch
	Readings map[models.SensorType]float64

	// LastCommands maps actuator type to the most recent command ever issued
	// for it, fetched fresh from the store per batch. Nil entry means none.
	LastCommands map[models.ActuatorType]*models.Command

	// Now pins evaluation time. The worker sets it to UTC wall clock; tests
	// set it directly.
	Now time.Time
}

// Actuator returns the device's actuator of the given type, or nil
func (c *RuleContext) Actuator(t models.ActuatorType) *models.Actuator {
	for i := range c.Actuators {
		if c.Actuators[i].Type == t {
			return &c.Actuators[i]
		}
	}
	return nil
}

// CommandRequest is a rule's wish to drive an actuator. The worker turns it
// into a queued Command.
type CommandRequest struct {
	ActuatorID  uuid.UUID
	Verb        models.CommandVerb
	DurationSec *int
}

// AlertRequest is a rule's wish to raise an alert
type AlertRequest struct {
	Type     models.AlertType
	Severity models.AlertSeverity
	Message  string
}

// RuleResult is the outcome of one rule against one context
type RuleResult struct {
	RuleName string
	Executed bool
	Reason   string
	Commands []CommandRequest
	Alerts   []AlertRequest
}

// HasActions reports whether the rule produced any command or alert
func (r RuleResult) HasActions() bool {
	return len(r.Commands) > 0 || len(r.Alerts) > 0
}

// Rule is one independently evaluable automation check
type Rule interface {
	Name() string

	// CanRun reports whether the context carries everything the rule needs.
	// A false return is a skip, not an error.
	CanRun(ctx *RuleContext) bool

	Evaluate(ctx *RuleContext) RuleResult
}
