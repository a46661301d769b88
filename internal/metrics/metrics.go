package metrics

import "sync/atomic"

// Counters tracks the observable counts required by the error handling
// design: every rejected reading, failed rule, failed command and failed
// notification increments one of these.
type Counters struct {
	ReadingsAccepted  atomic.Int64
	ReadingsRejected  atomic.Int64
	BatchesPublished  atomic.Int64
	BatchesProcessed  atomic.Int64
	RuleFailures      atomic.Int64
	CommandsEnqueued  atomic.Int64
	CommandsAcked     atomic.Int64
	CommandsFailed    atomic.Int64
	AlertsCreated     atomic.Int64
	AlertsSuppressed  atomic.Int64
	NotifyFailures    atomic.Int64
	PersistFailures   atomic.Int64
	TelemetryAuthFail atomic.Int64
}

// Snapshot returns the current counter values for the stats endpoint
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"readings_accepted":    c.ReadingsAccepted.Load(),
		"readings_rejected":    c.ReadingsRejected.Load(),
		"batches_published":    c.BatchesPublished.Load(),
		"batches_processed":    c.BatchesProcessed.Load(),
		"rule_failures":        c.RuleFailures.Load(),
		"commands_enqueued":    c.CommandsEnqueued.Load(),
		"commands_acked":       c.CommandsAcked.Load(),
		"commands_failed":      c.CommandsFailed.Load(),
		"alerts_created":       c.AlertsCreated.Load(),
		"alerts_suppressed":    c.AlertsSuppressed.Load(),
		"notify_failures":      c.NotifyFailures.Load(),
		"persist_failures":     c.PersistFailures.Load(),
		"telemetry_auth_fails": c.TelemetryAuthFail.Load(),
	}
}

// Default is the process-wide counter set
var Default = &Counters{}
