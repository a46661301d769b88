package rules

import (
	"fmt"
	"log"

	"plantcare/internal/metrics"
)

// Engine runs a fixed, ordered list of rules against a shared context.
// Adding a rule is a code change here, not a runtime registration.
type Engine struct {
	rules []Rule
}

// NewEngine builds the engine with the built-in rule set in evaluation order
func NewEngine() *Engine {
	return &Engine{
		rules: []Rule{
			&SoilMoistureRule{},
			&TemperatureRule{},
			&WaterLevelRule{},
			&LightCycleRule{},
		},
	}
}

// NewEngineWith builds an engine with an explicit rule list, for tests
func NewEngineWith(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Evaluate runs every rule in order and concatenates their output. A rule
// that cannot run is recorded as executed=false. A panicking rule degrades to
// a failed result and does not abort the remaining rules.
func (e *Engine) Evaluate(ctx *RuleContext) ([]CommandRequest, []AlertRequest, []RuleResult) {
	var commands []CommandRequest
	var alerts []AlertRequest
	results := make([]RuleResult, 0, len(e.rules))

	for _, rule := range e.rules {
		if !rule.CanRun(ctx) {
			results = append(results, RuleResult{
				RuleName: rule.Name(),
				Executed: false,
				Reason:   "missing required profile fields or sensor data",
			})
			continue
		}

		result := e.evaluateOne(rule, ctx)
		results = append(results, result)
		commands = append(commands, result.Commands...)
		alerts = append(alerts, result.Alerts...)

		if result.HasActions() {
			log.Printf("RULES: %s: %s -> %d commands, %d alerts",
				result.RuleName, result.Reason, len(result.Commands), len(result.Alerts))
		}
	}

	return commands, alerts, results
}

func (e *Engine) evaluateOne(rule Rule, ctx *RuleContext) (result RuleResult) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Default.RuleFailures.Add(1)
			log.Printf("RULES: %s panicked: %v", rule.Name(), r)
			result = RuleResult{
				RuleName: rule.Name(),
				Executed: false,
				Reason:   fmt.Sprintf("rule failed: %v", r),
			}
		}
	}()
	return rule.Evaluate(ctx)
}
