package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lekesiz/HECS/internal/domain"
)

type DeviceRepo struct {
	pool *pgxpool.Pool
}

func NewDeviceRepo(pool *pgxpool.Pool) *DeviceRepo {
	return &DeviceRepo{pool: pool}
}

const deviceColumns = `id, name, device_id, hardware_id, customer_id, status,
	ip_address, mac_address, firmware_version, last_seen, metadata,
	created_at, updated_at`

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var d domain.Device
	var status string
	err := row.Scan(
		&d.ID, &d.Name, &d.DeviceID, &d.HardwareID, &d.CustomerID, &status,
		&d.IPAddress, &d.MACAddress, &d.FirmwareVersion, &d.LastSeen, &d.Metadata,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = domain.DeviceStatus(status)
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *DeviceRepo) Create(ctx context.Context, device *domain.Device) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO devices (id, name, device_id, hardware_id, customer_id, status,
			ip_address, mac_address, firmware_version, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		device.ID, device.Name, device.DeviceID, device.HardwareID, device.CustomerID,
		string(device.Status), device.IPAddress, device.MACAddress,
		device.FirmwareVersion, device.Metadata, device.CreatedAt, device.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateDevice
	}
	if err != nil {
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

func (r *DeviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	device, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

func (r *DeviceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = $1`, deviceID)
	device, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device by device_id: %w", err)
	}
	return device, nil
}

func (r *DeviceRepo) List(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID != uuid.Nil {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	query := `SELECT ` + deviceColumns + ` FROM devices`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []*domain.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (r *DeviceRepo) Update(ctx context.Context, device *domain.Device) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE devices
		SET name = $2, status = $3, ip_address = $4, mac_address = $5,
			firmware_version = $6, last_seen = $7, metadata = $8, updated_at = $9
		WHERE id = $1`,
		device.ID, device.Name, string(device.Status), device.IPAddress,
		device.MACAddress, device.FirmwareVersion, device.LastSeen,
		device.Metadata, device.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepo) CountByStatus(ctx context.Context) (map[domain.DeviceStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM devices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}
	defer rows.Close()

	counts := map[domain.DeviceStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan device count: %w", err)
		}
		counts[domain.DeviceStatus(status)] = n
	}
	return counts, rows.Err()
}
