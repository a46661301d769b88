package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"plantcare/internal/apperr"
	"plantcare/internal/models"
)

const profileColumns = `id, device_id, soil_moisture_min, soil_moisture_max, temp_min, temp_max,
	min_water_level, watering_duration_sec, watering_cooldown_min, lamp_on_minute, lamp_off_minute,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*models.AutomationProfile, error) {
	var p models.AutomationProfile
	err := row.Scan(&p.ID, &p.DeviceID, &p.SoilMoistureMin, &p.SoilMoistureMax,
		&p.TempMin, &p.TempMax, &p.MinWaterLevel, &p.WateringDurationSec,
		&p.WateringCooldownMin, &p.LampOnMinute, &p.LampOffMinute, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("automation profile")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByDevice fetches the automation profile of a device
func (d *DB) GetProfileByDevice(ctx context.Context, deviceID uuid.UUID) (*models.AutomationProfile, error) {
	row := d.pool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM automation_profiles WHERE device_id = $1", deviceID)
	return scanProfile(row)
}

// UpsertProfile inserts or fully replaces the profile of a device. The
// device_id unique constraint keeps it at most one per device.
func (d *DB) UpsertProfile(ctx context.Context, p *models.AutomationProfile) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO automation_profiles
			(id, device_id, soil_moisture_min, soil_moisture_max, temp_min, temp_max,
			 min_water_level, watering_duration_sec, watering_cooldown_min, lamp_on_minute, lamp_off_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (device_id) DO UPDATE SET
			soil_moisture_min = EXCLUDED.soil_moisture_min,
			soil_moisture_max = EXCLUDED.soil_moisture_max,
			temp_min = EXCLUDED.temp_min,
			temp_max = EXCLUDED.temp_max,
			min_water_level = EXCLUDED.min_water_level,
			watering_duration_sec = EXCLUDED.watering_duration_sec,
			watering_cooldown_min = EXCLUDED.watering_cooldown_min,
			lamp_on_minute = EXCLUDED.lamp_on_minute,
			lamp_off_minute = EXCLUDED.lamp_off_minute,
			updated_at = NOW()`,
		p.ID, p.DeviceID, p.SoilMoistureMin, p.SoilMoistureMax, p.TempMin, p.TempMax,
		p.MinWaterLevel, p.WateringDurationSec, p.WateringCooldownMin, p.LampOnMinute, p.LampOffMinute)
	return err
}

// GetDevicesWithLampSchedule returns device IDs whose profile has a complete
// lamp window. The scheduler ticks these even when telemetry is quiet.
func (d *DB) GetDevicesWithLampSchedule(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT device_id FROM automation_profiles WHERE lamp_on_minute IS NOT NULL AND lamp_off_minute IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
