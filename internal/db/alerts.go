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

const alertColumns = "id, device_id, type, severity, message, created_at, resolved_at"

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	err := row.Scan(&a.ID, &a.DeviceID, &a.Type, &a.Severity, &a.Message, &a.CreatedAt, &a.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("alert")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertAlert creates an alert row
func (d *DB) InsertAlert(ctx context.Context, a *models.Alert) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO alerts (id, device_id, type, severity, message) VALUES ($1, $2, $3, $4, $5)",
		a.ID, a.DeviceID, a.Type, a.Severity, a.Message)
	return err
}

// GetUnresolvedAlert returns an open alert of the given type for a device,
// or NotFound. Used by the duplicate-suppression switch.
func (d *DB) GetUnresolvedAlert(ctx context.Context, deviceID uuid.UUID, alertType models.AlertType) (*models.Alert, error) {
	row := d.pool.QueryRow(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE device_id = $1 AND type = $2 AND resolved_at IS NULL ORDER BY created_at DESC LIMIT 1",
		deviceID, alertType)
	return scanAlert(row)
}

// GetAlertsByUser lists alerts across a user's devices, newest first
func (d *DB) GetAlertsByUser(ctx context.Context, userID uuid.UUID, unresolvedOnly bool) ([]models.Alert, error) {
	query := `
		SELECT a.id, a.device_id, a.type, a.severity, a.message, a.created_at, a.resolved_at
		FROM alerts a
		JOIN devices d ON d.id = a.device_id
		WHERE d.user_id = $1`
	if unresolvedOnly {
		query += " AND a.resolved_at IS NULL"
	}
	query += " ORDER BY a.created_at DESC"

	rows, err := d.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// ResolveAlert marks an alert resolved. Resolving twice is rejected.
func (d *DB) ResolveAlert(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := d.pool.Exec(ctx,
		"UPDATE alerts SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL", at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, lookupErr := d.GetAlertByID(ctx, id); lookupErr != nil {
			return lookupErr
		}
		return apperr.InvalidStatef("alert %s already resolved", id)
	}
	return nil
}

// GetAlertByID fetches an alert
func (d *DB) GetAlertByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = $1", id)
	return scanAlert(row)
}

// GetAlertOwner returns the user owning the device an alert belongs to
func (d *DB) GetAlertOwner(ctx context.Context, alertID uuid.UUID) (*uuid.UUID, error) {
	var userID *uuid.UUID
	err := d.pool.QueryRow(ctx, `
		SELECT d.user_id FROM alerts a JOIN devices d ON d.id = a.device_id WHERE a.id = $1`, alertID).
		Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("alert %s", alertID)
	}
	if err != nil {
		return nil, err
	}
	return userID, nil
}
