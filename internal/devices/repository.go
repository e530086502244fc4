package devices

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("devices: not found")

// Repository is the persistence contract for devices.
// Devices are never deleted.
type Repository interface {
	Create(ctx context.Context, d Device) error
	Get(ctx context.Context, id string) (Device, error)
	// List returns every device ordered by last activity, most recent first.
	List(ctx context.Context) ([]Device, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	UpdateTelecaller(ctx context.Context, id, telecaller string, at time.Time) error
}

// PostgresRepo stores devices in the devices table (see internal/migrate).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, d Device) error {
	const q = `
INSERT INTO devices (id, name, token, telecaller, last_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		d.ID,
		d.Name,
		d.Token,
		d.Telecaller,
		d.LastActive,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Device, error) {
	const q = `
SELECT id, name, token, telecaller, last_active, created_at, updated_at
FROM devices
WHERE id = $1
`
	d, err := scanDevice(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Device{}, ErrNotFound
		}
		return Device{}, err
	}
	return d, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Device, error) {
	const q = `
SELECT id, name, token, telecaller, last_active, created_at, updated_at
FROM devices
ORDER BY last_active DESC
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE devices SET last_active = $2, updated_at = $2 WHERE id = $1`
	return r.execOne(ctx, q, id, at)
}

func (r *PostgresRepo) UpdateTelecaller(ctx context.Context, id, telecaller string, at time.Time) error {
	const q = `UPDATE devices SET telecaller = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, q, id, telecaller, at)
}

func (r *PostgresRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(s rowScanner) (Device, error) {
	var d Device
	err := s.Scan(
		&d.ID,
		&d.Name,
		&d.Token,
		&d.Telecaller,
		&d.LastActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}
