package commandqueue

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare/internal/apperr"
	"plantcare/internal/models"
)

// memStore is an in-memory Store for tests
type memStore struct {
	actuators map[uuid.UUID]*models.Actuator
	commands  map[uuid.UUID]*models.Command
}

func newMemStore() *memStore {
	return &memStore{
		actuators: make(map[uuid.UUID]*models.Actuator),
		commands:  make(map[uuid.UUID]*models.Command),
	}
}

func (m *memStore) addActuator(deviceID uuid.UUID, t models.ActuatorType) *models.Actuator {
	a := &models.Actuator{ID: uuid.New(), DeviceID: deviceID, Type: t, State: models.StateUnknown}
	m.actuators[a.ID] = a
	return a
}

func (m *memStore) GetActuatorByID(_ context.Context, id uuid.UUID) (*models.Actuator, error) {
	a, ok := m.actuators[id]
	if !ok {
		return nil, apperr.NotFoundf("actuator %s", id)
	}
	copied := *a
	return &copied, nil
}

func (m *memStore) GetActuatorsByDevice(_ context.Context, deviceID uuid.UUID) ([]models.Actuator, error) {
	var out []models.Actuator
	for _, a := range m.actuators {
		if a.DeviceID == deviceID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) InsertCommand(_ context.Context, cmd *models.Command) error {
	copied := *cmd
	m.commands[cmd.ID] = &copied
	return nil
}

func (m *memStore) GetCommandByID(_ context.Context, id uuid.UUID) (*models.Command, error) {
	cmd, ok := m.commands[id]
	if !ok {
		return nil, apperr.NotFoundf("command %s", id)
	}
	copied := *cmd
	return &copied, nil
}

func (m *memStore) GetPendingCommands(_ context.Context, deviceID uuid.UUID) ([]models.Command, error) {
	var out []models.Command
	for _, cmd := range m.commands {
		if cmd.DeviceID == deviceID && cmd.Status == models.CommandPending {
			out = append(out, *cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetPendingCommandFor(_ context.Context, actuatorID uuid.UUID, verb models.CommandVerb) (*models.Command, error) {
	var oldest *models.Command
	for _, cmd := range m.commands {
		if cmd.ActuatorID == actuatorID && cmd.Verb == verb && cmd.Status == models.CommandPending {
			if oldest == nil || cmd.CreatedAt.Before(oldest.CreatedAt) {
				oldest = cmd
			}
		}
	}
	if oldest == nil {
		return nil, apperr.NotFoundf("pending command")
	}
	copied := *oldest
	return &copied, nil
}

func (m *memStore) GetLatestCommandsByActuator(_ context.Context, deviceID uuid.UUID) (map[uuid.UUID]models.Command, error) {
	latest := make(map[uuid.UUID]models.Command)
	for _, cmd := range m.commands {
		if cmd.DeviceID != deviceID {
			continue
		}
		if cur, ok := latest[cmd.ActuatorID]; !ok || cmd.CreatedAt.After(cur.CreatedAt) {
			latest[cmd.ActuatorID] = *cmd
		}
	}
	return latest, nil
}

func (m *memStore) UpdateCommandStatus(_ context.Context, id uuid.UUID, status models.CommandStatus, message string) error {
	cmd, ok := m.commands[id]
	if !ok {
		return apperr.NotFoundf("command %s", id)
	}
	if cmd.Status != models.CommandPending {
		return apperr.InvalidStatef("command %s is not pending", id)
	}
	cmd.Status = status
	cmd.Message = message
	cmd.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) UpdateActuatorState(_ context.Context, id uuid.UUID, state models.ActuatorState, at time.Time) error {
	a, ok := m.actuators[id]
	if !ok {
		return apperr.NotFoundf("actuator %s", id)
	}
	a.State = state
	a.LastCommandAt = &at
	return nil
}

func TestEnqueueRejectsForeignActuator(t *testing.T) {
	store := newMemStore()
	deviceA := uuid.New()
	deviceB := uuid.New()
	pump := store.addActuator(deviceA, models.ActuatorPump)

	q := New(store, false)
	_, err := q.Enqueue(context.Background(), deviceB, pump.ID, models.VerbOn, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestPollReturnsSameSetUntilAck(t *testing.T) {
	store := newMemStore()
	deviceID := uuid.New()
	pump := store.addActuator(deviceID, models.ActuatorPump)
	q := New(store, false)
	ctx := context.Background()

	cmd, err := q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)

	first, err := q.Poll(ctx, deviceID)
	require.NoError(t, err)
	second, err := q.Poll(ctx, deviceID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	require.NoError(t, q.Acknowledge(ctx, cmd.ID, true, "done"))

	after, err := q.Poll(ctx, deviceID)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestAcknowledgeIsTerminal(t *testing.T) {
	store := newMemStore()
	deviceID := uuid.New()
	pump := store.addActuator(deviceID, models.ActuatorPump)
	q := New(store, false)
	ctx := context.Background()

	cmd, err := q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)

	require.NoError(t, q.Acknowledge(ctx, cmd.ID, true, "ok"))

	// Second ack is rejected, and the actuator reflects only the first
	err = q.Acknowledge(ctx, cmd.ID, false, "again")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	assert.Equal(t, models.StateOn, store.actuators[pump.ID].State)
}

func TestAcknowledgeFromForeignDevice(t *testing.T) {
	store := newMemStore()
	deviceID := uuid.New()
	pump := store.addActuator(deviceID, models.ActuatorPump)
	q := New(store, false)
	ctx := context.Background()

	cmd, err := q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)

	// Another device's token cannot ack the command; it reads as not-found
	err = q.AcknowledgeFrom(ctx, uuid.New(), cmd.ID, true, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, q.AcknowledgeFrom(ctx, deviceID, cmd.ID, true, "done"))
	assert.Equal(t, models.StateOn, store.actuators[pump.ID].State)
}

func TestAcknowledgeUnknownCommand(t *testing.T) {
	q := New(newMemStore(), false)
	err := q.Acknowledge(context.Background(), uuid.New(), true, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAcknowledgeFailureLeavesActuatorAlone(t *testing.T) {
	store := newMemStore()
	deviceID := uuid.New()
	pump := store.addActuator(deviceID, models.ActuatorPump)
	q := New(store, false)
	ctx := context.Background()

	cmd, err := q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)

	require.NoError(t, q.Acknowledge(ctx, cmd.ID, false, "valve stuck"))

	stored, err := q.store.GetCommandByID(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandFailed, stored.Status)
	assert.Equal(t, "valve stuck", stored.Message)
	assert.Equal(t, models.StateUnknown, store.actuators[pump.ID].State)
}

func TestCoalescingPolicy(t *testing.T) {
	store := newMemStore()
	deviceID := uuid.New()
	pump := store.addActuator(deviceID, models.ActuatorPump)
	ctx := context.Background()

	// Coalescing off: duplicates are allowed
	q := New(store, false)
	_, err := q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)
	pending, _ := q.Poll(ctx, deviceID)
	assert.Len(t, pending, 2)

	// Coalescing on: a matching pending command is reused
	store2 := newMemStore()
	pump2 := store2.addActuator(deviceID, models.ActuatorPump)
	qc := New(store2, true)
	first, err := qc.Enqueue(ctx, deviceID, pump2.ID, models.VerbOn, nil)
	require.NoError(t, err)
	second, err := qc.Enqueue(ctx, deviceID, pump2.ID, models.VerbOn, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	pending, _ = qc.Poll(ctx, deviceID)
	assert.Len(t, pending, 1)
}

func TestLatestByActuatorType(t *testing.T) {
	store := newMemStore()
	deviceID := uuid.New()
	pump := store.addActuator(deviceID, models.ActuatorPump)
	lamp := store.addActuator(deviceID, models.ActuatorLamp)
	q := New(store, false)
	ctx := context.Background()

	old := &models.Command{ID: uuid.New(), DeviceID: deviceID, ActuatorID: pump.ID,
		Verb: models.VerbOn, Status: models.CommandAcknowledged, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.InsertCommand(ctx, old))
	recent, err := q.Enqueue(ctx, deviceID, pump.ID, models.VerbOn, nil)
	require.NoError(t, err)

	latest, err := q.LatestByActuatorType(ctx, deviceID)
	require.NoError(t, err)
	require.NotNil(t, latest[models.ActuatorPump])
	assert.Equal(t, recent.ID, latest[models.ActuatorPump].ID)
	assert.Nil(t, latest[models.ActuatorLamp])
	_ = lamp
}
