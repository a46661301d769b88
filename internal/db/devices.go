package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"plantcare/internal/apperr"
	"plantcare/internal/models"
)

const deviceColumns = "id, user_id, name, model, status, secret_hash, last_seen, created_at, updated_at"

func scanDevice(row pgx.Row) (*models.Device, error) {
	var dev models.Device
	err := row.Scan(&dev.ID, &dev.UserID, &dev.Name, &dev.Model, &dev.Status,
		&dev.SecretHash, &dev.LastSeen, &dev.CreatedAt, &dev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("device")
	}
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// GetDeviceByID fetches a device by ID
func (d *DB) GetDeviceByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = $1", id)
	return scanDevice(row)
}

// GetDevicesByUser fetches all devices owned by a user
func (d *DB) GetDevicesByUser(ctx context.Context, userID uuid.UUID) ([]models.Device, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+deviceColumns+" FROM devices WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *dev)
	}
	return devices, rows.Err()
}

// InsertDevice creates a new device
func (d *DB) InsertDevice(ctx context.Context, dev *models.Device) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO devices (id, user_id, name, model, status, secret_hash) VALUES ($1, $2, $3, $4, $5, $6)",
		dev.ID, dev.UserID, dev.Name, dev.Model, dev.Status, dev.SecretHash)
	return err
}

// UpdateDeviceStatus moves a device through its lifecycle
func (d *DB) UpdateDeviceStatus(ctx context.Context, id uuid.UUID, status models.DeviceStatus) error {
	tag, err := d.pool.Exec(ctx,
		"UPDATE devices SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("device %s", id)
	}
	return nil
}

// TouchDeviceLastSeen records device activity
func (d *DB) TouchDeviceLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := d.pool.Exec(ctx, "UPDATE devices SET last_seen = $1 WHERE id = $2", at, id)
	return err
}

// DeleteDevice removes a device; dependents go with it via cascade
func (d *DB) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	tag, err := d.pool.Exec(ctx, "DELETE FROM devices WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("device %s", id)
	}
	return nil
}

// GetSensorsByDevice fetches all sensors of a device
func (d *DB) GetSensorsByDevice(ctx context.Context, deviceID uuid.UUID) ([]models.Sensor, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT id, device_id, type, unit, created_at FROM sensors WHERE device_id = $1", deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.Type, &s.Unit, &s.CreatedAt); err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}
	return sensors, rows.Err()
}

// InsertSensor creates a sensor for a device
func (d *DB) InsertSensor(ctx context.Context, s *models.Sensor) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO sensors (id, device_id, type, unit) VALUES ($1, $2, $3, $4)",
		s.ID, s.DeviceID, s.Type, s.Unit)
	return err
}

// GetActuatorsByDevice fetches all actuators of a device
func (d *DB) GetActuatorsByDevice(ctx context.Context, deviceID uuid.UUID) ([]models.Actuator, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT id, device_id, type, state, last_command_at, created_at FROM actuators WHERE device_id = $1", deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actuators []models.Actuator
	for rows.Next() {
		var a models.Actuator
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.Type, &a.State, &a.LastCommandAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		actuators = append(actuators, a)
	}
	return actuators, rows.Err()
}

// GetActuatorByID fetches an actuator
func (d *DB) GetActuatorByID(ctx context.Context, id uuid.UUID) (*models.Actuator, error) {
	var a models.Actuator
	err := d.pool.QueryRow(ctx,
		"SELECT id, device_id, type, state, last_command_at, created_at FROM actuators WHERE id = $1", id).
		Scan(&a.ID, &a.DeviceID, &a.Type, &a.State, &a.LastCommandAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("actuator %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertActuator creates an actuator for a device
func (d *DB) InsertActuator(ctx context.Context, a *models.Actuator) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO actuators (id, device_id, type, state) VALUES ($1, $2, $3, $4)",
		a.ID, a.DeviceID, a.Type, a.State)
	return err
}

// UpdateActuatorState records the last known physical state after an ack
func (d *DB) UpdateActuatorState(ctx context.Context, id uuid.UUID, state models.ActuatorState, at time.Time) error {
	tag, err := d.pool.Exec(ctx,
		"UPDATE actuators SET state = $1, last_command_at = $2 WHERE id = $3", state, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("actuator %s", id)
	}
	return nil
}
