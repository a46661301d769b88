package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"plantcare/internal/models"
)

// InsertReadings appends a batch of readings. Readings are immutable once
// stored; there is no update path by design.
func (d *DB) InsertReadings(ctx context.Context, readings []models.Reading) error {
	for _, r := range readings {
		_, err := d.pool.Exec(ctx,
			"INSERT INTO readings (id, sensor_id, value, recorded_at, batch_id) VALUES ($1, $2, $3, $4, $5)",
			r.ID, r.SensorID, r.Value, r.RecordedAt, r.BatchID)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetLatestReadings returns the max-recorded_at reading per sensor of a device
func (d *DB) GetLatestReadings(ctx context.Context, deviceID uuid.UUID) ([]models.Reading, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT DISTINCT ON (r.sensor_id) r.id, r.sensor_id, r.value, r.recorded_at, r.batch_id
		FROM readings r
		JOIN sensors s ON s.id = r.sensor_id
		WHERE s.device_id = $1
		ORDER BY r.sensor_id, r.recorded_at DESC`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Value, &r.RecordedAt, &r.BatchID); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// GetReadingsBySensor returns readings for one sensor in a time range,
// newest first
func (d *DB) GetReadingsBySensor(ctx context.Context, sensorID uuid.UUID, from, to time.Time) ([]models.Reading, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, sensor_id, value, recorded_at, batch_id
		FROM readings
		WHERE sensor_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at DESC`, sensorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Value, &r.RecordedAt, &r.BatchID); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
