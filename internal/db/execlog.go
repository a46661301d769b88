package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"plantcare/internal/models"
)

// InsertExecutionLog appends an audit row. Rows are never mutated afterwards.
func (d *DB) InsertExecutionLog(ctx context.Context, entry *models.ExecutionLog) error {
	rules, err := json.Marshal(entry.Rules)
	if err != nil {
		return err
	}
	readings, err := json.Marshal(entry.SensorReadings)
	if err != nil {
		return err
	}
	profile, err := json.Marshal(entry.ProfileSnapshot)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO execution_logs
			(id, device_id, batch_id, rules, commands_issued, alerts_created, sensor_readings, profile_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.DeviceID, entry.BatchID, rules,
		entry.CommandsIssued, entry.AlertsCreated, readings, profile)
	return err
}

// GetExecutionLogs returns audit rows for a device in a time range,
// newest first
func (d *DB) GetExecutionLogs(ctx context.Context, deviceID uuid.UUID, from, to time.Time) ([]models.ExecutionLog, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, device_id, batch_id, rules, commands_issued, alerts_created,
		       sensor_readings, profile_snapshot, created_at
		FROM execution_logs
		WHERE device_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC`, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ExecutionLog
	for rows.Next() {
		var entry models.ExecutionLog
		var rules, readings, profile []byte
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.BatchID, &rules,
			&entry.CommandsIssued, &entry.AlertsCreated, &readings, &profile, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rules, &entry.Rules); err != nil {
			return nil, err
		}
		if len(readings) > 0 {
			if err := json.Unmarshal(readings, &entry.SensorReadings); err != nil {
				return nil, err
			}
		}
		if len(profile) > 0 && string(profile) != "null" {
			if err := json.Unmarshal(profile, &entry.ProfileSnapshot); err != nil {
				return nil, err
			}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
