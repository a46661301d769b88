package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"plantcare/internal/apperr"
	"plantcare/internal/metrics"
	"plantcare/internal/models"
	"plantcare/internal/notify"
	"plantcare/internal/rules"
)

// Store is the slice of persistence the worker needs
type Store interface {
	GetDeviceByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	GetProfileByDevice(ctx context.Context, deviceID uuid.UUID) (*models.AutomationProfile, error)
	GetActuatorsByDevice(ctx context.Context, deviceID uuid.UUID) ([]models.Actuator, error)
	GetSensorsByDevice(ctx context.Context, deviceID uuid.UUID) ([]models.Sensor, error)
	InsertAlert(ctx context.Context, a *models.Alert) error
	GetUnresolvedAlert(ctx context.Context, deviceID uuid.UUID, alertType models.AlertType) (*models.Alert, error)
	InsertExecutionLog(ctx context.Context, entry *models.ExecutionLog) error
}

// CommandSink is how evaluated commands reach the device-facing queue
type CommandSink interface {
	Enqueue(ctx context.Context, deviceID, actuatorID uuid.UUID, verb models.CommandVerb, durationSec *int) (*models.Command, error)
	LatestByActuatorType(ctx context.Context, deviceID uuid.UUID) (map[models.ActuatorType]*models.Command, error)
}

// Worker consumes telemetry batches and turns them into commands and alerts.
// One batch at a time per device; the queue guarantees per-device ordering.
type Worker struct {
	store    Store
	commands CommandSink
	engine   *rules.Engine

	// suppressDuplicates skips creating an alert when an unresolved alert of
	// the same (device, type) already exists.
	suppressDuplicates bool

	notifyFn func(notify.AlertEvent) error
	now      func() time.Time
}

// New creates an automation worker. notifyFn may be nil when notification
// delivery is disabled.
func New(store Store, commands CommandSink, engine *rules.Engine, suppressDuplicates bool, notifyFn func(notify.AlertEvent) error) *Worker {
	return &Worker{
		store:              store,
		commands:           commands,
		engine:             engine,
		suppressDuplicates: suppressDuplicates,
		notifyFn:           notifyFn,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// HandleBatch evaluates one telemetry batch. A non-nil return means the
// batch should be redelivered; unknown devices are dropped instead, since
// redelivery cannot fix a deleted device.
func (w *Worker) HandleBatch(ctx context.Context, batch *models.TelemetryBatch) error {
	device, err := w.store.GetDeviceByID(ctx, batch.DeviceID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Printf("WORKER: dropping batch %s for unknown device %s", batch.BatchID, batch.DeviceID)
			return nil
		}
		return err
	}

	ruleCtx, err := w.buildContext(ctx, device, batch)
	if err != nil {
		return err
	}

	_, _, results := w.engine.Evaluate(ruleCtx)

	commandsIssued, alertsCreated := w.persistResults(ctx, device, results)

	w.writeExecutionLog(ctx, batch, ruleCtx, results, commandsIssued, alertsCreated)

	metrics.Default.BatchesProcessed.Add(1)
	return nil
}

// buildContext assembles the read-only snapshot the rules evaluate against.
// Last commands are loaded fresh per batch; nothing is cached between
// evaluations.
func (w *Worker) buildContext(ctx context.Context, device *models.Device, batch *models.TelemetryBatch) (*rules.RuleContext, error) {
	profile, err := w.store.GetProfileByDevice(ctx, device.ID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		// No profile means every threshold rule skips via CanRun
		profile = &models.AutomationProfile{DeviceID: device.ID}
	}

	actuators, err := w.store.GetActuatorsByDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	sensors, err := w.store.GetSensorsByDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	lastCommands, err := w.commands.LatestByActuatorType(ctx, device.ID)
	if err != nil {
		return nil, err
	}

	return &rules.RuleContext{
		Device:       *device,
		Profile:      *profile,
		Actuators:    actuators,
		Readings:     latestByType(sensors, batch.Items),
		LastCommands: lastCommands,
		Now:          w.now(),
	}, nil
}

// latestByType reduces batch items to one value per sensor type, keeping the
// most recent sample when a type appears more than once.
func latestByType(sensors []models.Sensor, items []models.TelemetryItem) map[models.SensorType]float64 {
	typeOf := make(map[uuid.UUID]models.SensorType, len(sensors))
	for _, s := range sensors {
		typeOf[s.ID] = s.Type
	}

	readings := make(map[models.SensorType]float64)
	newest := make(map[models.SensorType]time.Time)
	for _, item := range items {
		t, ok := typeOf[item.SensorID]
		if !ok {
			continue
		}
		if at, seen := newest[t]; !seen || item.RecordedAt.After(at) {
			readings[t] = item.Value
			newest[t] = item.RecordedAt
		}
	}
	return readings
}

// persistResults writes each rule's commands and alerts independently. A
// storage failure on one rule's output never blocks another rule's output.
func (w *Worker) persistResults(ctx context.Context, device *models.Device, results []rules.RuleResult) (commandsIssued, alertsCreated int) {
	for i := range results {
		res := &results[i]
		for _, cr := range res.Commands {
			if _, err := w.commands.Enqueue(ctx, device.ID, cr.ActuatorID, cr.Verb, cr.DurationSec); err != nil {
				metrics.Default.PersistFailures.Add(1)
				log.Printf("WORKER: rule %s: failed to enqueue %s command for actuator %s: %v", res.RuleName, cr.Verb, cr.ActuatorID, err)
				continue
			}
			commandsIssued++
		}
		for _, ar := range res.Alerts {
			created, err := w.raiseAlert(ctx, device, ar)
			if err != nil {
				metrics.Default.PersistFailures.Add(1)
				log.Printf("WORKER: rule %s: failed to persist %s alert: %v", res.RuleName, ar.Type, err)
				continue
			}
			if created {
				alertsCreated++
			}
		}
	}
	return commandsIssued, alertsCreated
}

// raiseAlert creates an alert unless duplicate suppression finds an
// unresolved one of the same type. Returns whether a new alert was stored.
func (w *Worker) raiseAlert(ctx context.Context, device *models.Device, req rules.AlertRequest) (bool, error) {
	if w.suppressDuplicates {
		existing, err := w.store.GetUnresolvedAlert(ctx, device.ID, req.Type)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return false, err
		}
		if existing != nil {
			metrics.Default.AlertsSuppressed.Add(1)
			return false, nil
		}
	}

	alert := &models.Alert{
		ID:        uuid.New(),
		DeviceID:  device.ID,
		Type:      req.Type,
		Severity:  req.Severity,
		Message:   req.Message,
		CreatedAt: w.now(),
	}
	if err := w.store.InsertAlert(ctx, alert); err != nil {
		return false, err
	}
	metrics.Default.AlertsCreated.Add(1)

	if w.notifyFn != nil {
		if err := w.notifyFn(notify.FromAlert(alert)); err != nil {
			// The alert is stored; delivery failure is the task queue's
			// problem to retry, not a reason to fail the batch.
			metrics.Default.NotifyFailures.Add(1)
			log.Printf("WORKER: failed to enqueue notification for alert %s: %v", alert.ID, err)
		}
	}
	return true, nil
}

// writeExecutionLog appends the audit row for one evaluation. Failures are
// logged and swallowed: by this point commands and alerts are durable, and a
// redelivery would double-issue them.
func (w *Worker) writeExecutionLog(ctx context.Context, batch *models.TelemetryBatch, ruleCtx *rules.RuleContext, results []rules.RuleResult, commandsIssued, alertsCreated int) {
	traces := make([]models.RuleTrace, len(results))
	for i, res := range results {
		traces[i] = models.RuleTrace{
			RuleName: res.RuleName,
			Executed: res.Executed,
			Reason:   res.Reason,
			Commands: len(res.Commands),
			Alerts:   len(res.Alerts),
		}
	}

	profile := ruleCtx.Profile
	entry := &models.ExecutionLog{
		ID:              uuid.New(),
		DeviceID:        batch.DeviceID,
		BatchID:         batch.BatchID,
		Rules:           traces,
		CommandsIssued:  commandsIssued,
		AlertsCreated:   alertsCreated,
		SensorReadings:  ruleCtx.Readings,
		ProfileSnapshot: &profile,
		CreatedAt:       w.now(),
	}
	if err := w.store.InsertExecutionLog(ctx, entry); err != nil {
		metrics.Default.PersistFailures.Add(1)
		log.Printf("WORKER: failed to write execution log for batch %s: %v", batch.BatchID, err)
	}
}
