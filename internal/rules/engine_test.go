package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare/internal/models"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func testContext(now time.Time) *RuleContext {
	deviceID := uuid.New()
	return &RuleContext{
		Device: models.Device{ID: deviceID, Name: "basil-01", Status: models.DeviceActive},
		Profile: models.AutomationProfile{
			DeviceID:            deviceID,
			SoilMoistureMin:     f(35),
			TempMin:             f(18),
			TempMax:             f(28),
			MinWaterLevel:       f(20),
			WateringDurationSec: i(25),
			WateringCooldownMin: i(60),
		},
		Actuators: []models.Actuator{
			{ID: uuid.New(), DeviceID: deviceID, Type: models.ActuatorPump, State: models.StateOff},
			{ID: uuid.New(), DeviceID: deviceID, Type: models.ActuatorLamp, State: models.StateOff},
		},
		Readings:     map[models.SensorType]float64{},
		LastCommands: map[models.ActuatorType]*models.Command{},
		Now:          now,
	}
}

func TestSoilMoistureTriggersWatering(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorSoilMoisture] = 20

	rule := &SoilMoistureRule{}
	require.True(t, rule.CanRun(ctx))

	result := rule.Evaluate(ctx)
	require.True(t, result.Executed)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, models.VerbOn, result.Commands[0].Verb)
	assert.Equal(t, ctx.Actuator(models.ActuatorPump).ID, result.Commands[0].ActuatorID)
	require.NotNil(t, result.Commands[0].DurationSec)
	assert.Equal(t, 25, *result.Commands[0].DurationSec)
	assert.Empty(t, result.Alerts)
}

func TestSoilMoistureAboveMinimumDoesNothing(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorSoilMoisture] = 50

	result := (&SoilMoistureRule{}).Evaluate(ctx)
	assert.True(t, result.Executed)
	assert.Empty(t, result.Commands)
	assert.Empty(t, result.Alerts)
}

func TestSoilMoistureCooldown(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	run := func(sinceLastPump time.Duration) RuleResult {
		ctx := testContext(now)
		ctx.Readings[models.SensorSoilMoisture] = 20
		ctx.LastCommands[models.ActuatorPump] = &models.Command{
			ID:         uuid.New(),
			ActuatorID: ctx.Actuator(models.ActuatorPump).ID,
			Verb:       models.VerbOn,
			CreatedAt:  now.Add(-sinceLastPump),
		}
		return (&SoilMoistureRule{}).Evaluate(ctx)
	}

	// 10 minutes after the last pump command: blocked, cooldown alert raised
	blocked := run(10 * time.Minute)
	assert.Empty(t, blocked.Commands)
	require.Len(t, blocked.Alerts, 1)
	assert.Equal(t, models.AlertWateringCooldown, blocked.Alerts[0].Type)
	assert.Equal(t, models.SeverityWarn, blocked.Alerts[0].Severity)

	// 61 minutes after: cooldown expired, watering fires again
	allowed := run(61 * time.Minute)
	require.Len(t, allowed.Commands, 1)
	assert.Empty(t, allowed.Alerts)
}

func TestSoilMoistureSkippedWithoutThreshold(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorSoilMoisture] = 20
	ctx.Profile.SoilMoistureMin = nil

	assert.False(t, (&SoilMoistureRule{}).CanRun(ctx))
}

func TestTemperatureAlerts(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		wantType models.AlertType
		none     bool
	}{
		{"below minimum", 15, models.AlertTempLow, false},
		{"above maximum", 31, models.AlertTempHigh, false},
		{"within range", 22, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := testContext(time.Now().UTC())
			ctx.Readings[models.SensorAirTemperature] = tc.temp

			result := (&TemperatureRule{}).Evaluate(ctx)
			require.True(t, result.Executed)
			if tc.none {
				assert.Empty(t, result.Alerts)
				return
			}
			require.Len(t, result.Alerts, 1)
			assert.Equal(t, tc.wantType, result.Alerts[0].Type)
			assert.Equal(t, models.SeverityWarn, result.Alerts[0].Severity)
		})
	}
}

func TestTemperatureLowMessageReferencesValues(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorAirTemperature] = 15

	result := (&TemperatureRule{}).Evaluate(ctx)
	require.Len(t, result.Alerts, 1)
	assert.Contains(t, result.Alerts[0].Message, "15.0")
	assert.Contains(t, result.Alerts[0].Message, "18.0")
}

func TestWaterLevelAlert(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorWaterLevel] = 10

	result := (&WaterLevelRule{}).Evaluate(ctx)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, models.AlertWaterLow, result.Alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, result.Alerts[0].Severity)

	ctx.Readings[models.SensorWaterLevel] = 80
	result = (&WaterLevelRule{}).Evaluate(ctx)
	assert.Empty(t, result.Alerts)
}

func TestLightCycleBoundaryCrossing(t *testing.T) {
	// Window 08:00 - 20:00 UTC
	on, off := 8*60, 20*60

	run := func(hour int, lampState models.ActuatorState) RuleResult {
		ctx := testContext(time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC))
		ctx.Profile.LampOnMinute = i(on)
		ctx.Profile.LampOffMinute = i(off)
		ctx.Actuator(models.ActuatorLamp).State = lampState
		return (&LightCycleRule{}).Evaluate(ctx)
	}

	// Inside the window with the lamp off: turn it on
	result := run(10, models.StateOff)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, models.VerbOn, result.Commands[0].Verb)

	// Inside the window with the lamp already on: no redundant command
	result = run(10, models.StateOn)
	assert.Empty(t, result.Commands)

	// Outside the window with the lamp on: turn it off
	result = run(22, models.StateOn)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, models.VerbOff, result.Commands[0].Verb)

	// Outside the window, lamp off: nothing to do
	result = run(22, models.StateOff)
	assert.Empty(t, result.Commands)

	// Unknown state counts as a mismatch and gets one corrective command
	result = run(10, models.StateUnknown)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, models.VerbOn, result.Commands[0].Verb)
}

func TestLightCycleOvernightWindow(t *testing.T) {
	// Window 20:00 - 05:00 UTC wraps midnight
	ctx := testContext(time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC))
	ctx.Profile.LampOnMinute = i(20 * 60)
	ctx.Profile.LampOffMinute = i(5 * 60)

	result := (&LightCycleRule{}).Evaluate(ctx)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, models.VerbOn, result.Commands[0].Verb)
}

func TestEngineSkipsRulesMissingData(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	// No readings at all, no lamp schedule: everything skips

	commands, alerts, results := NewEngine().Evaluate(ctx)
	assert.Empty(t, commands)
	assert.Empty(t, alerts)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.False(t, r.Executed, r.RuleName)
	}
}

func TestEngineRunsRulesInOrderAndConcatenates(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorSoilMoisture] = 20
	ctx.Readings[models.SensorAirTemperature] = 15
	ctx.Readings[models.SensorWaterLevel] = 5

	commands, alerts, results := NewEngine().Evaluate(ctx)
	require.Len(t, commands, 1) // pump on
	require.Len(t, alerts, 2)   // temp low + water low
	assert.Equal(t, models.AlertTempLow, alerts[0].Type)
	assert.Equal(t, models.AlertWaterLow, alerts[1].Type)

	require.Len(t, results, 4)
	assert.Equal(t, "soil_moisture_control", results[0].RuleName)
	assert.Equal(t, "temperature_alerts", results[1].RuleName)
	assert.Equal(t, "water_level_monitor", results[2].RuleName)
	assert.Equal(t, "light_cycle_control", results[3].RuleName)
}

type panickingRule struct{}

func (panickingRule) Name() string               { return "broken_rule" }
func (panickingRule) CanRun(*RuleContext) bool   { return true }
func (panickingRule) Evaluate(*RuleContext) RuleResult {
	panic("nil profile dereference")
}

func TestEngineContainsPanickingRule(t *testing.T) {
	ctx := testContext(time.Now().UTC())
	ctx.Readings[models.SensorWaterLevel] = 5

	engine := NewEngineWith(panickingRule{}, &WaterLevelRule{})
	commands, alerts, results := engine.Evaluate(ctx)

	assert.Empty(t, commands)
	require.Len(t, alerts, 1) // water rule still ran after the panic
	require.Len(t, results, 2)
	assert.False(t, results[0].Executed)
	assert.Contains(t, results[0].Reason, "rule failed")
	assert.True(t, results[1].Executed)
}
