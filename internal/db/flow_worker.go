package db

import (
	"context"
	"fmt"
	"time"

	"github.com/tollgate-data/gantryflow/internal/monitoring"
	"github.com/tollgate-data/gantryflow/internal/timeutil"
	"github.com/tollgate-data/gantryflow/internal/vehicle"
)

// FlowWorker periodically recomputes hourly_flow_rollups from
// gantry_transactions. Designed to run every 15 minutes over the trailing
// window so late-arriving transactions are folded in on the next pass.
type FlowWorker struct {
	DB       *DB
	Interval time.Duration // how often to run (e.g. 15m)
	Window   time.Duration // lookback window (e.g. 48h)
	Clock    timeutil.Clock
	stopChan chan struct{}
}

// NewFlowWorker returns a worker with the default 15 minute interval and
// 48 hour lookback.
func NewFlowWorker(db *DB) *FlowWorker {
	return &FlowWorker{
		DB:       db,
		Interval: 15 * time.Minute,
		Window:   48 * time.Hour,
		Clock:    timeutil.RealClock{},
		stopChan: make(chan struct{}),
	}
}

// Start runs the periodic worker loop in a goroutine.
func (w *FlowWorker) Start() {
	go func() {
		ticker := w.Clock.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if err := w.RunOnce(context.Background()); err != nil {
					monitoring.Logf("flow worker run error: %v", err)
				}
			case <-w.stopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *FlowWorker) Stop() {
	close(w.stopChan)
}

// RunOnce recomputes rollups for the trailing window ending now.
func (w *FlowWorker) RunOnce(ctx context.Context) error {
	now := w.Clock.Now().UTC()
	return w.RunRange(ctx, now.Add(-w.Window), now)
}

// RunRange recomputes rollups for gantry transactions in [start, end].
// Buckets are whole UTC hours; each (section, hour) produces one row per
// vehicle kind (truck, coach) plus an "all" row covering every class.
func (w *FlowWorker) RunRange(ctx context.Context, start, end time.Time) error {
	rows, err := w.DB.QueryContext(ctx, `SELECT section_id,
		strftime('%Y-%m-%dT%H:00:00Z', transaction_time),
		COALESCE(vehicle_type, ''), COUNT(*), COALESCE(SUM(pay_fee), 0)
		FROM gantry_transactions
		WHERE transaction_time >= ? AND transaction_time <= ?
		GROUP BY 1, 2, 3`, start, end)
	if err != nil {
		return fmt.Errorf("failed to scan gantry transactions: %w", err)
	}
	defer rows.Close()

	type bucket struct {
		sectionID string
		hourStart time.Time
		kind      string
	}
	counts := map[bucket]*HourlyFlowRollup{}
	computedAt := w.Clock.Now().UTC()

	add := func(sectionID string, hourStart time.Time, kind string, n int, fee int64) {
		key := bucket{sectionID, hourStart, kind}
		r, ok := counts[key]
		if !ok {
			r = &HourlyFlowRollup{
				SectionID:   sectionID,
				HourStart:   hourStart,
				VehicleKind: kind,
				ComputedAt:  computedAt,
			}
			counts[key] = r
		}
		r.TxnCount += n
		r.TollTotal += float64(fee)
	}

	for rows.Next() {
		var sectionID, hourStr, class string
		var n int
		var fee int64
		if err := rows.Scan(&sectionID, &hourStr, &class, &n, &fee); err != nil {
			return err
		}
		hourStart, err := time.Parse(time.RFC3339, hourStr)
		if err != nil {
			return fmt.Errorf("failed to parse hour bucket %q: %w", hourStr, err)
		}

		add(sectionID, hourStart, vehicle.KindAll, n, fee)
		if c, ok := vehicle.Lookup(class); ok {
			add(sectionID, hourStart, c.Kind, n, fee)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rollups := make([]HourlyFlowRollup, 0, len(counts))
	for _, r := range counts {
		rollups = append(rollups, *r)
	}
	if len(rollups) == 0 {
		return nil
	}

	if err := w.DB.UpsertHourlyFlowRollups(ctx, rollups); err != nil {
		return fmt.Errorf("failed to upsert rollups: %w", err)
	}
	monitoring.Logf("flow worker: upserted %d rollup buckets for [%s, %s]",
		len(rollups), start.Format(time.RFC3339), end.Format(time.RFC3339))
	return nil
}
