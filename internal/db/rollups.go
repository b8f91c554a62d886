package db

import (
	"context"
	"fmt"
	"time"
)

// HourlyFlowRollup is one precomputed (section, hour, vehicle kind) bucket.
type HourlyFlowRollup struct {
	SectionID   string    `json:"section_id"`
	HourStart   time.Time `json:"hour_start"`
	VehicleKind string    `json:"vehicle_kind"`
	TxnCount    int       `json:"txn_count"`
	TollTotal   float64   `json:"toll_total"`
	ComputedAt  time.Time `json:"computed_at"`
}

// UpsertHourlyFlowRollups upserts rollup rows with one prepared statement
// inside a single transaction.
func (db *DB) UpsertHourlyFlowRollups(ctx context.Context, rollups []HourlyFlowRollup) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO hourly_flow_rollups
		(section_id, hour_start, vehicle_kind, txn_count, toll_total, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(section_id, hour_start, vehicle_kind) DO UPDATE SET
			txn_count = excluded.txn_count,
			toll_total = excluded.toll_total,
			computed_at = excluded.computed_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rollups {
		if _, err := stmt.ExecContext(ctx, r.SectionID, r.HourStart, r.VehicleKind,
			r.TxnCount, r.TollTotal, r.ComputedAt); err != nil {
			return fmt.Errorf("failed to upsert rollup %s/%s/%s: %w",
				r.SectionID, r.HourStart.Format(time.RFC3339), r.VehicleKind, err)
		}
	}

	return tx.Commit()
}

// ListHourlyFlowRollups returns rollups for a section (all sections when
// empty) and vehicle kind within [start, end], ordered by hour.
func (db *DB) ListHourlyFlowRollups(sectionID, vehicleKind string, start, end time.Time) ([]HourlyFlowRollup, error) {
	query := `SELECT section_id, hour_start, vehicle_kind, txn_count, toll_total, computed_at
		FROM hourly_flow_rollups
		WHERE hour_start >= ? AND hour_start <= ? AND vehicle_kind = ?`
	args := []interface{}{start, end, vehicleKind}
	if sectionID != "" {
		query += ` AND section_id = ?`
		args = append(args, sectionID)
	}
	query += ` ORDER BY section_id, hour_start`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourlyFlowRollup
	for rows.Next() {
		var r HourlyFlowRollup
		if err := rows.Scan(&r.SectionID, &r.HourStart, &r.VehicleKind,
			&r.TxnCount, &r.TollTotal, &r.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
