package db

import "context"

// Cascade deletes enforce the invariant that every dependent row references
// an existing device.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id UUID PRIMARY KEY,
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'provisioned',
		secret_hash TEXT NOT NULL,
		last_seen TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		id UUID PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS readings (
		id UUID PRIMARY KEY,
		sensor_id UUID NOT NULL REFERENCES sensors(id) ON DELETE CASCADE,
		value DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		batch_id UUID
	)`,
	`CREATE INDEX IF NOT EXISTS readings_sensor_recorded_idx
		ON readings (sensor_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS actuators (
		id UUID PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'unknown',
		last_command_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS commands (
		id UUID PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		actuator_id UUID NOT NULL REFERENCES actuators(id) ON DELETE CASCADE,
		verb TEXT NOT NULL,
		duration_sec INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS commands_device_status_idx
		ON commands (device_id, status, created_at)`,
	`CREATE TABLE IF NOT EXISTS automation_profiles (
		id UUID PRIMARY KEY,
		device_id UUID NOT NULL UNIQUE REFERENCES devices(id) ON DELETE CASCADE,
		soil_moisture_min DOUBLE PRECISION,
		soil_moisture_max DOUBLE PRECISION,
		temp_min DOUBLE PRECISION,
		temp_max DOUBLE PRECISION,
		min_water_level DOUBLE PRECISION,
		watering_duration_sec INTEGER,
		watering_cooldown_min INTEGER,
		lamp_on_minute INTEGER,
		lamp_off_minute INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS execution_logs (
		id UUID PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		batch_id UUID NOT NULL,
		rules JSONB NOT NULL,
		commands_issued INTEGER NOT NULL,
		alerts_created INTEGER NOT NULL,
		sensor_readings JSONB,
		profile_snapshot JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS execution_logs_device_created_idx
		ON execution_logs (device_id, created_at)`,
}

// Migrate creates all tables and indexes if they do not exist
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
