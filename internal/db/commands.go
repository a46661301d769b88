package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"plantcare/internal/apperr"
	"plantcare/internal/models"
)

const commandColumns = "id, device_id, actuator_id, verb, duration_sec, status, message, created_at, updated_at"

func scanCommand(row pgx.Row) (*models.Command, error) {
	var cmd models.Command
	err := row.Scan(&cmd.ID, &cmd.DeviceID, &cmd.ActuatorID, &cmd.Verb,
		&cmd.DurationSec, &cmd.Status, &cmd.Message, &cmd.CreatedAt, &cmd.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("command")
	}
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// InsertCommand creates a command row, always pending
func (d *DB) InsertCommand(ctx context.Context, cmd *models.Command) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO commands (id, device_id, actuator_id, verb, duration_sec, status) VALUES ($1, $2, $3, $4, $5, $6)",
		cmd.ID, cmd.DeviceID, cmd.ActuatorID, cmd.Verb, cmd.DurationSec, cmd.Status)
	return err
}

// GetCommandByID fetches a command
func (d *DB) GetCommandByID(ctx context.Context, id uuid.UUID) (*models.Command, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+commandColumns+" FROM commands WHERE id = $1", id)
	return scanCommand(row)
}

// GetPendingCommands returns all pending commands for a device, oldest first.
// Status is not touched here: commands stay pending until acknowledged, so a
// device that polls twice before acking sees the same set.
func (d *DB) GetPendingCommands(ctx context.Context, deviceID uuid.UUID) ([]models.Command, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT "+commandColumns+" FROM commands WHERE device_id = $1 AND status = $2 ORDER BY created_at",
		deviceID, models.CommandPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []models.Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, *cmd)
	}
	return commands, rows.Err()
}

// GetPendingCommandFor returns the oldest pending command matching
// actuator and verb, or NotFound. Used by the coalescing policy.
func (d *DB) GetPendingCommandFor(ctx context.Context, actuatorID uuid.UUID, verb models.CommandVerb) (*models.Command, error) {
	row := d.pool.QueryRow(ctx,
		"SELECT "+commandColumns+" FROM commands WHERE actuator_id = $1 AND verb = $2 AND status = $3 ORDER BY created_at LIMIT 1",
		actuatorID, verb, models.CommandPending)
	return scanCommand(row)
}

// GetLatestCommandsByActuator returns the most recent command per actuator of
// a device, regardless of status. Cooldown checks read created_at from these.
func (d *DB) GetLatestCommandsByActuator(ctx context.Context, deviceID uuid.UUID) (map[uuid.UUID]models.Command, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT DISTINCT ON (actuator_id) `+commandColumns+`
		FROM commands
		WHERE device_id = $1
		ORDER BY actuator_id, created_at DESC`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[uuid.UUID]models.Command)
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		latest[cmd.ActuatorID] = *cmd
	}
	return latest, rows.Err()
}

// UpdateCommandStatus transitions pending -> acknowledged|failed. The status
// guard in the WHERE clause makes concurrent double-acks lose cleanly.
func (d *DB) UpdateCommandStatus(ctx context.Context, id uuid.UUID, status models.CommandStatus, message string) error {
	tag, err := d.pool.Exec(ctx,
		"UPDATE commands SET status = $1, message = $2, updated_at = NOW() WHERE id = $3 AND status = $4",
		status, message, id, models.CommandPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidStatef("command %s is not pending", id)
	}
	return nil
}
