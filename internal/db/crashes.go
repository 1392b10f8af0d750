package db

import (
	"context"
	"fmt"
)

// CrashRepo keeps the most recent crash multipliers in crash_history.
type CrashRepo struct {
	db *DB
}

func (d *DB) Crashes() *CrashRepo {
	return &CrashRepo{db: d}
}

// Load returns up to limit multipliers, oldest first.
func (r *CrashRepo) Load(ctx context.Context, limit int) ([]float64, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT multiplier FROM (
			SELECT id, multiplier FROM crash_history ORDER BY id DESC LIMIT $1
		) recent ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying crash history: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var m float64
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scanning crash history: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *CrashRepo) Append(ctx context.Context, multiplier float64, limit int) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO crash_history (multiplier) VALUES ($1)`, multiplier); err != nil {
		return fmt.Errorf("inserting crash: %w", err)
	}
	if _, err := tx.ExecContext(ctx, trimQuery, limit); err != nil {
		return fmt.Errorf("trimming crash history: %w", err)
	}
	return tx.Commit()
}

func (r *CrashRepo) Trim(ctx context.Context, limit int) error {
	if _, err := r.db.conn.ExecContext(ctx, trimQuery, limit); err != nil {
		return fmt.Errorf("trimming crash history: %w", err)
	}
	return nil
}

const trimQuery = `
	DELETE FROM crash_history WHERE id NOT IN (
		SELECT id FROM crash_history ORDER BY id DESC LIMIT $1
	)`
