package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tollgate-data/gantryflow/internal/anonymize"
	"github.com/tollgate-data/gantryflow/internal/vehicle"
)

// EntranceTransaction is one entrance plaza record.
type EntranceTransaction struct {
	EntranceTransactionID string    `json:"entrance_transaction_id"`
	PassID                string    `json:"pass_id"`
	SectionID             string    `json:"section_id"`
	SectionName           string    `json:"section_name"`
	VehicleClass          string    `json:"vehicle_class"`
	VehicleColorID        string    `json:"vehicle_color_id"`
	CardType              string    `json:"card_type"`
	VehicleSign           string    `json:"vehicle_sign"`
	EntranceTime          time.Time `json:"entrance_time"`
}

// ExitTransaction is one exit plaza record. Exit rows carry the weight and
// toll fields used by the truck analytics and the anonymizer.
type ExitTransaction struct {
	ExitTransactionID   string    `json:"exit_transaction_id"`
	PassID              string    `json:"pass_id"`
	SectionID           string    `json:"section_id"`
	SectionName         string    `json:"section_name"`
	VehicleClass        string    `json:"vehicle_class"`
	VehiclePlateColorID string    `json:"vehicle_plate_color_id"`
	AxleCount           string    `json:"axle_count"`
	TotalLimit          string    `json:"total_limit"`
	TotalWeight         string    `json:"total_weight"`
	CardType            string    `json:"card_type"`
	PayType             string    `json:"pay_type"`
	PayCardType         string    `json:"pay_card_type"`
	TollMoney           float64   `json:"toll_money"`
	RealMoney           float64   `json:"real_money"`
	CardPayToll         float64   `json:"card_pay_toll"`
	DiscountType        string    `json:"discount_type"`
	ExitTime            time.Time `json:"exit_time"`
}

// GantryTransaction is one free-flow gantry passage record. Fees are in fen.
type GantryTransaction struct {
	GantryTransactionID string    `json:"gantry_transaction_id"`
	GantryID            string    `json:"gantry_id"`
	GantryType          string    `json:"gantry_type"`
	SectionID           string    `json:"section_id"`
	SectionName         string    `json:"section_name"`
	PassID              string    `json:"pass_id"`
	TransactionTime     time.Time `json:"transaction_time"`
	EntranceTime        time.Time `json:"entrance_time"`
	EntranceLaneType    string    `json:"entrance_lane_type"`
	PayFee              int64     `json:"pay_fee"`
	DiscountFee         int64     `json:"discount_fee"`
	MediaType           string    `json:"media_type"`
	VehicleType         string    `json:"vehicle_type"`
	VehicleSign         string    `json:"vehicle_sign"`
	PassState           string    `json:"pass_state"`
	AxleCount           float64   `json:"axle_count"`
	TotalWeight         float64   `json:"total_weight"`
	CPUCardType         string    `json:"cpu_card_type"`
	FeeProvBeginHex     string    `json:"fee_prov_begin_hex"`
}

// TransactionFilter narrows transaction list queries. Zero values mean "no
// filter"; Limit must be set by the caller.
type TransactionFilter struct {
	SectionID      string
	Start          time.Time
	End            time.Time
	VehicleClasses []string
	Limit          int
	Offset         int
}

// where builds the WHERE clause for the filter over the given time column.
func (f TransactionFilter) where(timeCol, classCol string) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.SectionID != "" {
		conds = append(conds, "section_id = ?")
		args = append(args, f.SectionID)
	}
	if !f.Start.IsZero() {
		conds = append(conds, timeCol+" >= ?")
		args = append(args, f.Start)
	}
	if !f.End.IsZero() {
		conds = append(conds, timeCol+" <= ?")
		args = append(args, f.End)
	}
	if len(f.VehicleClasses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.VehicleClasses)), ",")
		conds = append(conds, classCol+" IN ("+placeholders+")")
		for _, c := range f.VehicleClasses {
			args = append(args, c)
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// InsertEntranceTransactionsBatch inserts records with one prepared
// statement inside a single transaction.
func (db *DB) InsertEntranceTransactionsBatch(ctx context.Context, records []EntranceTransaction) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entrance_transactions
		(entrance_transaction_id, pass_id, section_id, section_name, vehicle_class,
		 vehicle_color_id, card_type, vehicle_sign, entrance_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.EntranceTransactionID, r.PassID, r.SectionID,
			r.SectionName, r.VehicleClass, r.VehicleColorID, r.CardType, r.VehicleSign,
			r.EntranceTime); err != nil {
			return fmt.Errorf("failed to insert entrance transaction %s: %w", r.EntranceTransactionID, err)
		}
	}

	return tx.Commit()
}

// InsertExitTransactionsBatch inserts records with one prepared statement
// inside a single transaction.
func (db *DB) InsertExitTransactionsBatch(ctx context.Context, records []ExitTransaction) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO exit_transactions
		(exit_transaction_id, pass_id, section_id, section_name, vehicle_class,
		 vehicle_plate_color_id, axle_count, total_limit, total_weight, card_type,
		 pay_type, pay_card_type, toll_money, real_money, card_pay_toll,
		 discount_type, exit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ExitTransactionID, r.PassID, r.SectionID,
			r.SectionName, r.VehicleClass, r.VehiclePlateColorID, r.AxleCount,
			r.TotalLimit, r.TotalWeight, r.CardType, r.PayType, r.PayCardType,
			r.TollMoney, r.RealMoney, r.CardPayToll, r.DiscountType, r.ExitTime); err != nil {
			return fmt.Errorf("failed to insert exit transaction %s: %w", r.ExitTransactionID, err)
		}
	}

	return tx.Commit()
}

// InsertGantryTransactionsBatch inserts records with one prepared statement
// inside a single transaction.
func (db *DB) InsertGantryTransactionsBatch(ctx context.Context, records []GantryTransaction) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO gantry_transactions
		(gantry_transaction_id, gantry_id, gantry_type, section_id, section_name,
		 pass_id, transaction_time, entrance_time, entrance_lane_type, pay_fee,
		 discount_fee, media_type, vehicle_type, vehicle_sign, pass_state,
		 axle_count, total_weight, cpu_card_type, fee_prov_begin_hex)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.GantryTransactionID, r.GantryID, r.GantryType,
			r.SectionID, r.SectionName, r.PassID, r.TransactionTime, r.EntranceTime,
			r.EntranceLaneType, r.PayFee, r.DiscountFee, r.MediaType, r.VehicleType,
			r.VehicleSign, r.PassState, r.AxleCount, r.TotalWeight, r.CPUCardType,
			r.FeeProvBeginHex); err != nil {
			return fmt.Errorf("failed to insert gantry transaction %s: %w", r.GantryTransactionID, err)
		}
	}

	return tx.Commit()
}

// ListEntranceTransactions returns the filtered page plus the total count
// matching the filter (for pagination).
func (db *DB) ListEntranceTransactions(f TransactionFilter) ([]EntranceTransaction, int, error) {
	where, args := f.where("entrance_time", "vehicle_class")

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM entrance_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT entrance_transaction_id, pass_id, section_id, COALESCE(section_name, ''),
		COALESCE(vehicle_class, ''), COALESCE(vehicle_color_id, ''), COALESCE(card_type, ''),
		COALESCE(vehicle_sign, ''), entrance_time
		FROM entrance_transactions` + where + ` ORDER BY entrance_time DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []EntranceTransaction
	for rows.Next() {
		var r EntranceTransaction
		if err := rows.Scan(&r.EntranceTransactionID, &r.PassID, &r.SectionID, &r.SectionName,
			&r.VehicleClass, &r.VehicleColorID, &r.CardType, &r.VehicleSign, &r.EntranceTime); err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// ListExitTransactions returns the filtered page plus the total count
// matching the filter.
func (db *DB) ListExitTransactions(f TransactionFilter) ([]ExitTransaction, int, error) {
	where, args := f.where("exit_time", "vehicle_class")

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM exit_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT exit_transaction_id, pass_id, section_id, COALESCE(section_name, ''),
		COALESCE(vehicle_class, ''), COALESCE(vehicle_plate_color_id, ''), COALESCE(axle_count, ''),
		COALESCE(total_limit, ''), COALESCE(total_weight, ''), COALESCE(card_type, ''),
		COALESCE(pay_type, ''), COALESCE(pay_card_type, ''), COALESCE(toll_money, 0),
		COALESCE(real_money, 0), COALESCE(card_pay_toll, 0), COALESCE(discount_type, ''), exit_time
		FROM exit_transactions` + where + ` ORDER BY exit_time DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []ExitTransaction
	for rows.Next() {
		var r ExitTransaction
		if err := rows.Scan(&r.ExitTransactionID, &r.PassID, &r.SectionID, &r.SectionName,
			&r.VehicleClass, &r.VehiclePlateColorID, &r.AxleCount, &r.TotalLimit,
			&r.TotalWeight, &r.CardType, &r.PayType, &r.PayCardType, &r.TollMoney,
			&r.RealMoney, &r.CardPayToll, &r.DiscountType, &r.ExitTime); err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// ListGantryTransactions returns the filtered page plus the total count
// matching the filter.
func (db *DB) ListGantryTransactions(f TransactionFilter) ([]GantryTransaction, int, error) {
	where, args := f.where("transaction_time", "vehicle_type")

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM gantry_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT gantry_transaction_id, gantry_id, COALESCE(gantry_type, ''), section_id,
		COALESCE(section_name, ''), pass_id, transaction_time,
		COALESCE(entrance_time, transaction_time), COALESCE(entrance_lane_type, ''),
		COALESCE(pay_fee, 0), COALESCE(discount_fee, 0), COALESCE(media_type, ''),
		COALESCE(vehicle_type, ''), COALESCE(vehicle_sign, ''), COALESCE(pass_state, ''),
		COALESCE(axle_count, 0), COALESCE(total_weight, 0), COALESCE(cpu_card_type, ''),
		COALESCE(fee_prov_begin_hex, '')
		FROM gantry_transactions` + where + ` ORDER BY transaction_time DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []GantryTransaction
	for rows.Next() {
		var r GantryTransaction
		if err := rows.Scan(&r.GantryTransactionID, &r.GantryID, &r.GantryType, &r.SectionID,
			&r.SectionName, &r.PassID, &r.TransactionTime, &r.EntranceTime,
			&r.EntranceLaneType, &r.PayFee, &r.DiscountFee, &r.MediaType, &r.VehicleType,
			&r.VehicleSign, &r.PassState, &r.AxleCount, &r.TotalWeight, &r.CPUCardType,
			&r.FeeProvBeginHex); err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// ExitRecordsForAnonymization loads truck exit transactions in the window
// as anonymizer input records. The transaction id and pass id are stripped
// at the scan boundary: they never enter the anonymization pipeline.
func (db *DB) ExitRecordsForAnonymization(start, end time.Time) ([]anonymize.Record, error) {
	f := TransactionFilter{Start: start, End: end, VehicleClasses: vehicle.TruckClasses()}
	where, args := f.where("exit_time", "vehicle_class")

	query := `SELECT section_id, exit_time, COALESCE(vehicle_class, ''),
		COALESCE(vehicle_plate_color_id, ''), COALESCE(axle_count, ''),
		COALESCE(total_limit, ''), COALESCE(total_weight, ''), COALESCE(card_type, ''),
		COALESCE(pay_type, ''), COALESCE(pay_card_type, ''), COALESCE(discount_type, ''),
		COALESCE(toll_money, 0), COALESCE(real_money, 0), COALESCE(card_pay_toll, 0)
		FROM exit_transactions` + where + ` ORDER BY exit_time`
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []anonymize.Record
	for rows.Next() {
		var r anonymize.Record
		if err := rows.Scan(&r.SectionID, &r.ExitTime, &r.VehicleClass, &r.PlateColorID,
			&r.AxleCount, &r.TotalLimit, &r.TotalWeight, &r.CardType, &r.PayType,
			&r.PayCardType, &r.DiscountType, &r.TollMoney, &r.RealMoney, &r.CardPayToll); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
