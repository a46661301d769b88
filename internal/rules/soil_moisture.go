package rules

import (
	"fmt"
	"time"

	"plantcare/internal/models"
)

// Fallbacks when the profile leaves watering parameters unset
const (
	defaultWateringDurationSec = 20
	defaultWateringCooldownMin = 60
)

// SoilMoistureRule triggers watering when soil is drier than the profile
// minimum. The cooldown is measured against the last pump command's creation
// time, never against alert history. The backend does not schedule a
// follow-up "off": the device's own timer ends the pulse.
type SoilMoistureRule struct{}

func (r *SoilMoistureRule) Name() string { return "soil_moisture_control" }

func (r *SoilMoistureRule) CanRun(ctx *RuleContext) bool {
	_, ok := ctx.Readings[models.SensorSoilMoisture]
	return ok && ctx.Profile.SoilMoistureMin != nil && ctx.Actuator(models.ActuatorPump) != nil
}

func (r *SoilMoistureRule) Evaluate(ctx *RuleContext) RuleResult {
	moisture := ctx.Readings[models.SensorSoilMoisture]
	min := *ctx.Profile.SoilMoistureMin

	if moisture >= min {
		return RuleResult{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("soil moisture %.1f%% is above minimum %.1f%%", moisture, min),
		}
	}

	cooldown := defaultWateringCooldownMin
	if ctx.Profile.WateringCooldownMin != nil {
		cooldown = *ctx.Profile.WateringCooldownMin
	}

	if last := ctx.LastCommands[models.ActuatorPump]; last != nil {
		elapsed := ctx.Now.Sub(last.CreatedAt)
		if elapsed < time.Duration(cooldown)*time.Minute {
			return RuleResult{
				RuleName: r.Name(),
				Executed: true,
				Reason: fmt.Sprintf("soil moisture %.1f%% below minimum %.1f%%, but watering on cooldown (%d/%d min)",
					moisture, min, int(elapsed.Minutes()), cooldown),
				Alerts: []AlertRequest{{
					Type:     models.AlertWateringCooldown,
					Severity: models.SeverityWarn,
					Message:  fmt.Sprintf("Soil moisture %.1f%% is low but watering cooldown is active", moisture),
				}},
			}
		}
	}

	duration := defaultWateringDurationSec
	if ctx.Profile.WateringDurationSec != nil {
		duration = *ctx.Profile.WateringDurationSec
	}

	return RuleResult{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("soil moisture %.1f%% below minimum %.1f%%, triggering watering for %ds", moisture, min, duration),
		Commands: []CommandRequest{{
			ActuatorID:  ctx.Actuator(models.ActuatorPump).ID,
			Verb:        models.VerbOn,
			DurationSec: &duration,
		}},
	}
}
