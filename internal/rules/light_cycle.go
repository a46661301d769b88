package rules

import (
	"fmt"

	"plantcare/internal/models"
)

// LightCycleRule drives the lamp from a minute-of-day window. Time-of-day is
// pinned to UTC. The rule only issues a command when the desired state
// differs from the actuator's last known state, so a lamp already on stays
// untouched batch after batch. An unknown actuator state counts as a
// mismatch: one command brings it in sync.
type LightCycleRule struct{}

func (r *LightCycleRule) Name() string { return "light_cycle_control" }

func (r *LightCycleRule) CanRun(ctx *RuleContext) bool {
	return ctx.Profile.LampOnMinute != nil &&
		ctx.Profile.LampOffMinute != nil &&
		ctx.Actuator(models.ActuatorLamp) != nil
}

func (r *LightCycleRule) Evaluate(ctx *RuleContext) RuleResult {
	onMinute := *ctx.Profile.LampOnMinute
	offMinute := *ctx.Profile.LampOffMinute
	lamp := ctx.Actuator(models.ActuatorLamp)

	if onMinute == offMinute {
		return RuleResult{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("lamp window is empty (on and off both at minute %d)", onMinute),
		}
	}

	now := ctx.Now.UTC()
	minuteOfDay := now.Hour()*60 + now.Minute()
	wantOn := inWindow(minuteOfDay, onMinute, offMinute)

	wantState := models.StateOff
	verb := models.VerbOff
	if wantOn {
		wantState = models.StateOn
		verb = models.VerbOn
	}

	if lamp.State == wantState {
		return RuleResult{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("lamp already %s for window %d-%d (minute %d)", wantState, onMinute, offMinute, minuteOfDay),
		}
	}

	return RuleResult{
		RuleName: r.Name(),
		Executed: true,
		Reason: fmt.Sprintf("lamp is %s but window %d-%d wants %s (minute %d)",
			lamp.State, onMinute, offMinute, wantState, minuteOfDay),
		Commands: []CommandRequest{{
			ActuatorID: lamp.ID,
			Verb:       verb,
		}},
	}
}

// inWindow handles windows that wrap midnight: on=1200 off=300 means lit
// from 20:00 UTC to 05:00 UTC.
func inWindow(minute, on, off int) bool {
	if on < off {
		return minute >= on && minute < off
	}
	return minute >= on || minute < off
}
