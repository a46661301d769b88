package telemetry

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"plantcare/internal/apperr"
	"plantcare/internal/metrics"
	"plantcare/internal/models"
)

// Store is the slice of persistence the validator needs
type Store interface {
	GetSensorsByDevice(ctx context.Context, deviceID uuid.UUID) ([]models.Sensor, error)
	InsertReadings(ctx context.Context, readings []models.Reading) error
	TouchDeviceLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Publisher hands the accepted batch off for asynchronous rule evaluation
type Publisher interface {
	Publish(ctx context.Context, batch *models.TelemetryBatch) error
}

// Result reports per-batch acceptance counts back to the device
type Result struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Validator is the device-facing ingestion path. Accepted readings are
// persisted before Ingest returns, so a follow-up "latest readings" query
// already sees them; rule evaluation happens later off the queue.
type Validator struct {
	store Store
	queue Publisher
	now   func() time.Time
}

// NewValidator creates a telemetry validator
func NewValidator(store Store, queue Publisher) *Validator {
	return &Validator{
		store: store,
		queue: queue,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Ingest validates a batch of readings for an authenticated device. Readings
// referencing sensors the device does not own are rejected individually; the
// rest of the batch still goes through (partial acceptance).
func (v *Validator) Ingest(ctx context.Context, deviceID uuid.UUID, items []models.TelemetryItem) (*Result, error) {
	if len(items) == 0 {
		return nil, apperr.Validationf("telemetry batch is empty")
	}

	sensors, err := v.store.GetSensorsByDevice(ctx, deviceID)
	if err != nil {
		return nil, apperr.Transientf("load sensors for device %s: %v", deviceID, err)
	}
	owned := make(map[uuid.UUID]bool, len(sensors))
	for _, s := range sensors {
		owned[s.ID] = true
	}

	now := v.now()
	batchID := uuid.New()
	result := &Result{}
	accepted := make([]models.Reading, 0, len(items))
	acceptedItems := make([]models.TelemetryItem, 0, len(items))

	for _, item := range items {
		if !owned[item.SensorID] {
			log.Printf("TELEMETRY: device %s submitted reading for foreign sensor %s, rejecting", deviceID, item.SensorID)
			result.Rejected++
			continue
		}
		if math.IsNaN(item.Value) || math.IsInf(item.Value, 0) {
			log.Printf("TELEMETRY: device %s submitted non-finite value for sensor %s, rejecting", deviceID, item.SensorID)
			result.Rejected++
			continue
		}

		recordedAt := item.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		accepted = append(accepted, models.Reading{
			ID:         uuid.New(),
			SensorID:   item.SensorID,
			Value:      item.Value,
			RecordedAt: recordedAt,
			BatchID:    &batchID,
		})
		acceptedItems = append(acceptedItems, models.TelemetryItem{
			SensorID:   item.SensorID,
			Value:      item.Value,
			RecordedAt: recordedAt,
		})
		result.Accepted++
	}

	metrics.Default.ReadingsRejected.Add(int64(result.Rejected))

	if result.Accepted == 0 {
		return result, nil
	}

	if err := v.store.InsertReadings(ctx, accepted); err != nil {
		metrics.Default.PersistFailures.Add(1)
		return nil, apperr.Transientf("persist readings: %v", err)
	}
	metrics.Default.ReadingsAccepted.Add(int64(result.Accepted))

	if err := v.store.TouchDeviceLastSeen(ctx, deviceID, now); err != nil {
		// Non-fatal: last_seen is advisory
		log.Printf("TELEMETRY: failed to touch last_seen for device %s: %v", deviceID, err)
	}

	batch := &models.TelemetryBatch{
		DeviceID:  deviceID,
		BatchID:   batchID,
		Items:     acceptedItems,
		CreatedAt: now,
	}
	if err := v.queue.Publish(ctx, batch); err != nil {
		// Readings are already durable; the device should retry so the batch
		// reaches the worker.
		metrics.Default.PersistFailures.Add(1)
		return nil, apperr.Transientf("publish telemetry batch %s: %v", batchID, err)
	}

	return result, nil
}
