package db

import (
	"strings"
	"time"

	"github.com/tollgate-data/gantryflow/internal/vehicle"
)

// HourlyFlowRow is one (section, hour-of-day) traffic count.
type HourlyFlowRow struct {
	SectionID string `json:"section_id"`
	Hour      int    `json:"hour"`
	Count     int    `json:"count"`
}

// SectionRevenueRow aggregates gantry toll revenue per section. Fees are in
// fen as stored; callers convert for display.
type SectionRevenueRow struct {
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	TxnCount    int    `json:"txn_count"`
	PayFeeTotal int64  `json:"pay_fee_total"`
}

// ClassDistributionRow is one vehicle class share of gantry traffic.
type ClassDistributionRow struct {
	VehicleClass string  `json:"vehicle_class"`
	Count        int     `json:"count"`
	Share        float64 `json:"share"`
}

// HourCountRow is one hour-of-day count across all sections.
type HourCountRow struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// SectionAvgRow is one per-section average with its sample size.
type SectionAvgRow struct {
	SectionID string  `json:"section_id"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

// OverweightRateRow is the share of weighable truck exits over their limit.
type OverweightRateRow struct {
	SectionID  string  `json:"section_id"`
	Total      int     `json:"total"`
	Overweight int     `json:"overweight"`
	Rate       float64 `json:"rate"`
}

// DiscountRateRow is the share of truck exits charged below list toll.
type DiscountRateRow struct {
	SectionID   string  `json:"section_id"`
	Total       int     `json:"total"`
	Discounted  int     `json:"discounted"`
	Rate        float64 `json:"rate"`
	AvgDiscount float64 `json:"avg_discount"`
}

// PeakHourRow is one of a section's busiest hours.
type PeakHourRow struct {
	SectionID string `json:"section_id"`
	Hour      int    `json:"hour"`
	Count     int    `json:"count"`
	Rank      int    `json:"rank"`
}

// truckClassClause returns an "IN (...)" fragment over the truck class
// registry for the given column, plus its bind args.
func truckClassClause(col string) (string, []interface{}) {
	classes := vehicle.TruckClasses()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(classes)), ",")
	args := make([]interface{}, len(classes))
	for i, c := range classes {
		args[i] = c
	}
	return col + " IN (" + placeholders + ")", args
}

// HourlyTrafficFlow counts gantry transactions per (section, hour of day)
// in the window.
func (db *DB) HourlyTrafficFlow(start, end time.Time) ([]HourlyFlowRow, error) {
	rows, err := db.Query(`SELECT section_id,
		CAST(strftime('%H', transaction_time) AS INTEGER) AS hour, COUNT(*)
		FROM gantry_transactions
		WHERE transaction_time >= ? AND transaction_time <= ?
		GROUP BY section_id, hour
		ORDER BY section_id, hour`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourlyFlowRow
	for rows.Next() {
		var r HourlyFlowRow
		if err := rows.Scan(&r.SectionID, &r.Hour, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RevenueBySection sums gantry pay fees per section in the window.
func (db *DB) RevenueBySection(start, end time.Time) ([]SectionRevenueRow, error) {
	rows, err := db.Query(`SELECT g.section_id, COALESCE(s.section_name, ''),
		COUNT(*), COALESCE(SUM(g.pay_fee), 0)
		FROM gantry_transactions g
		LEFT JOIN sections s ON s.section_id = g.section_id
		WHERE g.transaction_time >= ? AND g.transaction_time <= ?
		GROUP BY g.section_id
		ORDER BY SUM(g.pay_fee) DESC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SectionRevenueRow
	for rows.Next() {
		var r SectionRevenueRow
		if err := rows.Scan(&r.SectionID, &r.SectionName, &r.TxnCount, &r.PayFeeTotal); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// VehicleDistribution counts gantry transactions per vehicle class in the
// window and computes each class's share of the total.
func (db *DB) VehicleDistribution(start, end time.Time) ([]ClassDistributionRow, error) {
	rows, err := db.Query(`SELECT COALESCE(vehicle_type, ''), COUNT(*)
		FROM gantry_transactions
		WHERE transaction_time >= ? AND transaction_time <= ?
		GROUP BY vehicle_type
		ORDER BY COUNT(*) DESC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClassDistributionRow
	total := 0
	for rows.Next() {
		var r ClassDistributionRow
		if err := rows.Scan(&r.VehicleClass, &r.Count); err != nil {
			return nil, err
		}
		total += r.Count
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if total > 0 {
			out[i].Share = float64(out[i].Count) / float64(total)
		}
	}
	return out, nil
}

// TruckHourlyFlow counts truck gantry transactions per hour of day.
func (db *DB) TruckHourlyFlow(start, end time.Time) ([]HourCountRow, error) {
	classClause, classArgs := truckClassClause("vehicle_type")
	args := append([]interface{}{start, end}, classArgs...)
	rows, err := db.Query(`SELECT CAST(strftime('%H', transaction_time) AS INTEGER) AS hour, COUNT(*)
		FROM gantry_transactions
		WHERE transaction_time >= ? AND transaction_time <= ? AND `+classClause+`
		GROUP BY hour
		ORDER BY hour`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourCountRow
	for rows.Next() {
		var r HourCountRow
		if err := rows.Scan(&r.Hour, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TruckExitHourlyFlow counts truck exit transactions per hour of day.
func (db *DB) TruckExitHourlyFlow(start, end time.Time) ([]HourCountRow, error) {
	classClause, classArgs := truckClassClause("vehicle_class")
	args := append([]interface{}{start, end}, classArgs...)
	rows, err := db.Query(`SELECT CAST(strftime('%H', exit_time) AS INTEGER) AS hour, COUNT(*)
		FROM exit_transactions
		WHERE exit_time >= ? AND exit_time <= ? AND `+classClause+`
		GROUP BY hour
		ORDER BY hour`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourCountRow
	for rows.Next() {
		var r HourCountRow
		if err := rows.Scan(&r.Hour, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AvgTollFeeBySection averages truck exit toll_money (yuan) per section.
func (db *DB) AvgTollFeeBySection(start, end time.Time) ([]SectionAvgRow, error) {
	classClause, classArgs := truckClassClause("vehicle_class")
	args := append([]interface{}{start, end}, classArgs...)
	return db.sectionAvgQuery(`SELECT section_id, AVG(toll_money), COUNT(*)
		FROM exit_transactions
		WHERE exit_time >= ? AND exit_time <= ? AND `+classClause+`
		GROUP BY section_id
		ORDER BY section_id`, args)
}

// AvgTravelTimeBySection joins truck exits to their entrance record on
// pass_id and averages the travel time in minutes per exit section.
func (db *DB) AvgTravelTimeBySection(start, end time.Time) ([]SectionAvgRow, error) {
	classClause, classArgs := truckClassClause("x.vehicle_class")
	args := append([]interface{}{start, end}, classArgs...)
	return db.sectionAvgQuery(`SELECT x.section_id,
		AVG((julianday(x.exit_time) - julianday(e.entrance_time)) * 24 * 60), COUNT(*)
		FROM exit_transactions x
		JOIN entrance_transactions e ON e.pass_id = x.pass_id
		WHERE x.exit_time >= ? AND x.exit_time <= ? AND `+classClause+`
		AND x.exit_time > e.entrance_time
		GROUP BY x.section_id
		ORDER BY x.section_id`, args)
}

// AvgAxleCountBySection averages the truck exit axle count per section,
// skipping rows whose axle_count is not numeric.
func (db *DB) AvgAxleCountBySection(start, end time.Time) ([]SectionAvgRow, error) {
	classClause, classArgs := truckClassClause("vehicle_class")
	args := append([]interface{}{start, end}, classArgs...)
	return db.sectionAvgQuery(`SELECT section_id, AVG(CAST(axle_count AS REAL)), COUNT(*)
		FROM exit_transactions
		WHERE exit_time >= ? AND exit_time <= ? AND `+classClause+`
		AND axle_count != '' AND CAST(axle_count AS REAL) > 0
		GROUP BY section_id
		ORDER BY section_id`, args)
}

func (db *DB) sectionAvgQuery(query string, args []interface{}) ([]SectionAvgRow, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SectionAvgRow
	for rows.Next() {
		var r SectionAvgRow
		if err := rows.Scan(&r.SectionID, &r.Average, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OverweightRateBySection computes, per section, the share of truck exits
// whose total weight exceeds the permitted limit. Rows with a missing or
// non-numeric weight or limit are excluded from the denominator.
func (db *DB) OverweightRateBySection(start, end time.Time) ([]OverweightRateRow, error) {
	classClause, classArgs := truckClassClause("vehicle_class")
	args := append([]interface{}{start, end}, classArgs...)
	rows, err := db.Query(`SELECT section_id, COUNT(*),
		SUM(CASE WHEN CAST(total_weight AS REAL) > CAST(total_limit AS REAL) THEN 1 ELSE 0 END)
		FROM exit_transactions
		WHERE exit_time >= ? AND exit_time <= ? AND `+classClause+`
		AND total_weight != '' AND total_limit != ''
		AND CAST(total_weight AS REAL) > 0 AND CAST(total_limit AS REAL) > 0
		GROUP BY section_id
		ORDER BY section_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverweightRateRow
	for rows.Next() {
		var r OverweightRateRow
		if err := rows.Scan(&r.SectionID, &r.Total, &r.Overweight); err != nil {
			return nil, err
		}
		if r.Total > 0 {
			r.Rate = float64(r.Overweight) / float64(r.Total)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DiscountRateBySection computes, per section, the share of truck exits
// charged below the list toll, and the average discount amount over the
// discounted rows.
func (db *DB) DiscountRateBySection(start, end time.Time) ([]DiscountRateRow, error) {
	classClause, classArgs := truckClassClause("vehicle_class")
	args := append([]interface{}{start, end}, classArgs...)
	rows, err := db.Query(`SELECT section_id, COUNT(*),
		SUM(CASE WHEN real_money < toll_money THEN 1 ELSE 0 END),
		COALESCE(AVG(CASE WHEN real_money < toll_money THEN toll_money - real_money END), 0)
		FROM exit_transactions
		WHERE exit_time >= ? AND exit_time <= ? AND `+classClause+`
		GROUP BY section_id
		ORDER BY section_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiscountRateRow
	for rows.Next() {
		var r DiscountRateRow
		if err := rows.Scan(&r.SectionID, &r.Total, &r.Discounted, &r.AvgDiscount); err != nil {
			return nil, err
		}
		if r.Total > 0 {
			r.Rate = float64(r.Discounted) / float64(r.Total)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PeakHoursBySection returns each section's three busiest hours of day by
// gantry transaction count.
func (db *DB) PeakHoursBySection(start, end time.Time) ([]PeakHourRow, error) {
	rows, err := db.Query(`SELECT section_id, hour, cnt, rnk FROM (
		SELECT section_id,
			CAST(strftime('%H', transaction_time) AS INTEGER) AS hour,
			COUNT(*) AS cnt,
			ROW_NUMBER() OVER (PARTITION BY section_id ORDER BY COUNT(*) DESC,
				CAST(strftime('%H', transaction_time) AS INTEGER)) AS rnk
		FROM gantry_transactions
		WHERE transaction_time >= ? AND transaction_time <= ?
		GROUP BY section_id, hour
	) WHERE rnk <= 3
	ORDER BY section_id, rnk`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PeakHourRow
	for rows.Next() {
		var r PeakHourRow
		if err := rows.Scan(&r.SectionID, &r.Hour, &r.Count, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
