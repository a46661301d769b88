package rules

import (
	"fmt"

	"plantcare/internal/models"
)

// TemperatureRule raises alerts when air temperature leaves the profile
// range. It issues no commands and carries no suppression of its own;
// repeated-alert handling is a worker-level policy.
type TemperatureRule struct{}

func (r *TemperatureRule) Name() string { return "temperature_alerts" }

func (r *TemperatureRule) CanRun(ctx *RuleContext) bool {
	_, ok := ctx.Readings[models.SensorAirTemperature]
	return ok && ctx.Profile.TempMin != nil && ctx.Profile.TempMax != nil
}

func (r *TemperatureRule) Evaluate(ctx *RuleContext) RuleResult {
	temp := ctx.Readings[models.SensorAirTemperature]
	min, max := *ctx.Profile.TempMin, *ctx.Profile.TempMax

	if temp < min {
		return RuleResult{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("temperature %.1fC is below minimum %.1fC", temp, min),
			Alerts: []AlertRequest{{
				Type:     models.AlertTempLow,
				Severity: models.SeverityWarn,
				Message:  fmt.Sprintf("Temperature %.1fC is below threshold %.1fC", temp, min),
			}},
		}
	}

	if temp > max {
		return RuleResult{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("temperature %.1fC is above maximum %.1fC", temp, max),
			Alerts: []AlertRequest{{
				Type:     models.AlertTempHigh,
				Severity: models.SeverityWarn,
				Message:  fmt.Sprintf("Temperature %.1fC is above threshold %.1fC", temp, max),
			}},
		}
	}

	return RuleResult{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("temperature %.1fC is within range %.1fC - %.1fC", temp, min, max),
	}
}
