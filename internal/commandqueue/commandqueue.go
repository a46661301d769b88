package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"plantcare/internal/apperr"
	"plantcare/internal/metrics"
	"plantcare/internal/models"
)

// Store is the slice of persistence the queue needs
type Store interface {
	GetActuatorByID(ctx context.Context, id uuid.UUID) (*models.Actuator, error)
	GetActuatorsByDevice(ctx context.Context, deviceID uuid.UUID) ([]models.Actuator, error)
	InsertCommand(ctx context.Context, cmd *models.Command) error
	GetCommandByID(ctx context.Context, id uuid.UUID) (*models.Command, error)
	GetPendingCommands(ctx context.Context, deviceID uuid.UUID) ([]models.Command, error)
	GetPendingCommandFor(ctx context.Context, actuatorID uuid.UUID, verb models.CommandVerb) (*models.Command, error)
	GetLatestCommandsByActuator(ctx context.Context, deviceID uuid.UUID) (map[uuid.UUID]models.Command, error)
	UpdateCommandStatus(ctx context.Context, id uuid.UUID, status models.CommandStatus, message string) error
	UpdateActuatorState(ctx context.Context, id uuid.UUID, state models.ActuatorState, at time.Time) error
}

// Queue is the per-device FIFO of pending actuator instructions. Delivery is
// consumer-pull: devices poll, commands stay pending until acknowledged.
type Queue struct {
	store Store

	// coalesce collapses an enqueue into an existing pending command for the
	// same actuator and verb. Off by default: the device side owns idempotent
	// application of duplicates.
	coalesce bool

	now func() time.Time
}

// New creates a command queue over the given store
func New(store Store, coalescePending bool) *Queue {
	return &Queue{
		store:    store,
		coalesce: coalescePending,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue creates a pending command for an actuator of the device. The
// actuator must belong to the same device or the call is rejected.
func (q *Queue) Enqueue(ctx context.Context, deviceID, actuatorID uuid.UUID, verb models.CommandVerb, durationSec *int) (*models.Command, error) {
	actuator, err := q.store.GetActuatorByID(ctx, actuatorID)
	if err != nil {
		return nil, err
	}
	if actuator.DeviceID != deviceID {
		return nil, apperr.Validationf("actuator %s does not belong to device %s", actuatorID, deviceID)
	}

	if q.coalesce {
		existing, err := q.store.GetPendingCommandFor(ctx, actuatorID, verb)
		if err == nil {
			log.Printf("QUEUE: coalesced %s command for actuator %s into pending %s", verb, actuatorID, existing.ID)
			return existing, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	cmd := &models.Command{
		ID:          uuid.New(),
		DeviceID:    deviceID,
		ActuatorID:  actuatorID,
		Verb:        verb,
		DurationSec: durationSec,
		Status:      models.CommandPending,
		CreatedAt:   q.now(),
		UpdatedAt:   q.now(),
	}
	if err := q.store.InsertCommand(ctx, cmd); err != nil {
		return nil, fmt.Errorf("enqueue command: %w", err)
	}
	metrics.Default.CommandsEnqueued.Add(1)
	return cmd, nil
}

// Poll returns all pending commands for a device, oldest first. Polling does
// not transition status, so repeated polls before ack return the same set.
func (q *Queue) Poll(ctx context.Context, deviceID uuid.UUID) ([]models.Command, error) {
	return q.store.GetPendingCommands(ctx, deviceID)
}

// Acknowledge finishes a command: pending -> acknowledged on success,
// pending -> failed otherwise. A second ack for the same command is an
// InvalidState error, not a silent no-op; double-acks are device bugs worth
// surfacing. On success the owning actuator's last known state is updated.
func (q *Queue) Acknowledge(ctx context.Context, commandID uuid.UUID, success bool, message string) error {
	cmd, err := q.store.GetCommandByID(ctx, commandID)
	if err != nil {
		return err
	}
	return q.finish(ctx, cmd, success, message)
}

// AcknowledgeFrom is the device-gateway variant: the command must belong to
// the authenticated device. A foreign command reads as not-found so device
// tokens cannot probe other devices' queues.
func (q *Queue) AcknowledgeFrom(ctx context.Context, deviceID, commandID uuid.UUID, success bool, message string) error {
	cmd, err := q.store.GetCommandByID(ctx, commandID)
	if err != nil {
		return err
	}
	if cmd.DeviceID != deviceID {
		return apperr.NotFoundf("command %s", commandID)
	}
	return q.finish(ctx, cmd, success, message)
}

func (q *Queue) finish(ctx context.Context, cmd *models.Command, success bool, message string) error {
	if cmd.Status.Terminal() {
		return apperr.InvalidStatef("command %s already %s", cmd.ID, cmd.Status)
	}

	status := models.CommandFailed
	if success {
		status = models.CommandAcknowledged
	}
	if err := q.store.UpdateCommandStatus(ctx, cmd.ID, status, message); err != nil {
		return err
	}

	if success {
		metrics.Default.CommandsAcked.Add(1)
		if err := q.store.UpdateActuatorState(ctx, cmd.ActuatorID, stateAfter(cmd), q.now()); err != nil {
			log.Printf("QUEUE: ack of %s stored but actuator %s state update failed: %v", cmd.ID, cmd.ActuatorID, err)
		}
	} else {
		metrics.Default.CommandsFailed.Add(1)
	}
	return nil
}

// LatestByActuatorType returns the most recent command per actuator type of
// a device, built fresh from the store. Rule cooldowns read from this.
func (q *Queue) LatestByActuatorType(ctx context.Context, deviceID uuid.UUID) (map[models.ActuatorType]*models.Command, error) {
	actuators, err := q.store.GetActuatorsByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	byID, err := q.store.GetLatestCommandsByActuator(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	latest := make(map[models.ActuatorType]*models.Command, len(actuators))
	for _, a := range actuators {
		if cmd, ok := byID[a.ID]; ok {
			c := cmd
			latest[a.Type] = &c
		} else {
			latest[a.Type] = nil
		}
	}
	return latest, nil
}

// stateAfter maps an acknowledged verb to the actuator state it leaves
// behind. A timed "on" still reports on: the device timer ends the pulse and
// the next light/soil evaluation corrects the record if needed.
func stateAfter(cmd *models.Command) models.ActuatorState {
	switch cmd.Verb {
	case models.VerbOn:
		return models.StateOn
	case models.VerbOff:
		return models.StateOff
	case models.VerbPulse:
		return models.StateOff
	}
	return models.StateUnknown
}
