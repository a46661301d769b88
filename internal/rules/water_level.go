package rules

import (
	"fmt"

	"plantcare/internal/models"
)

// WaterLevelRule alerts when the reservoir runs low. Critical severity: an
// empty reservoir makes every watering command a no-op.
type WaterLevelRule struct{}

func (r *WaterLevelRule) Name() string { return "water_level_monitor" }

func (r *WaterLevelRule) CanRun(ctx *RuleContext) bool {
	_, ok := ctx.Readings[models.SensorWaterLevel]
	return ok && ctx.Profile.MinWaterLevel != nil
}

func (r *WaterLevelRule) Evaluate(ctx *RuleContext) RuleResult {
	level := ctx.Readings[models.SensorWaterLevel]
	min := *ctx.Profile.MinWaterLevel

	if level < min {
		return RuleResult{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("water level %.1f%% below minimum %.1f%%", level, min),
			Alerts: []AlertRequest{{
				Type:     models.AlertWaterLow,
				Severity: models.SeverityCritical,
				Message:  fmt.Sprintf("Reservoir water level low (%.1f%%)", level),
			}},
		}
	}

	return RuleResult{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("water level %.1f%% is adequate (minimum %.1f%%)", level, min),
	}
}
