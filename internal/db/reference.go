package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// Section is one road section, the coarsest unit of the toll network.
type Section struct {
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
}

// TollStation is one entrance/exit plaza on a section.
type TollStation struct {
	TollStationID   string `json:"toll_station_id"`
	StationName     string `json:"station_name"`
	SectionID       string `json:"section_id"`
	StationType     string `json:"station_type"`
	StationCode     string `json:"station_code"`
	OperationStatus string `json:"operation_status"`
	StationStatus   string `json:"station_status"`
	Longitude       string `json:"longitude"`
	Latitude        string `json:"latitude"`
}

// Gantry is one free-flow tolling gantry on a section.
type Gantry struct {
	GantryID       string `json:"gantry_id"`
	GantryName     string `json:"gantry_name"`
	SectionID      string `json:"section_id"`
	GantryType     string `json:"gantry_type"`
	GantryStatus   string `json:"gantry_status"`
	Direction      string `json:"direction"`
	LaneCount      int    `json:"lane_count"`
	StartStationID string `json:"start_station_id"`
	EndStationID   string `json:"end_station_id"`
	NeighborID     string `json:"neighbor_id"`
	ReverseID      string `json:"reverse_id"`
}

func (db *DB) ListSections() ([]Section, error) {
	rows, err := db.Query(`SELECT section_id, section_name FROM sections ORDER BY section_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.SectionID, &s.SectionName); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (db *DB) GetSection(sectionID string) (*Section, error) {
	var s Section
	err := db.QueryRow(`SELECT section_id, section_name FROM sections WHERE section_id = ?`, sectionID).
		Scan(&s.SectionID, &s.SectionName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) UpsertSection(s Section) error {
	_, err := db.Exec(`INSERT INTO sections (section_id, section_name) VALUES (?, ?)
		ON CONFLICT(section_id) DO UPDATE SET section_name = excluded.section_name`,
		s.SectionID, s.SectionName)
	if err != nil {
		return fmt.Errorf("failed to upsert section %s: %w", s.SectionID, err)
	}
	return nil
}

func (db *DB) DeleteSection(sectionID string) error {
	res, err := db.Exec(`DELETE FROM sections WHERE section_id = ?`, sectionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTollStations returns stations, optionally filtered by section.
func (db *DB) ListTollStations(sectionID string, limit, offset int) ([]TollStation, error) {
	query := `SELECT toll_station_id, station_name, section_id,
		COALESCE(station_type, ''), COALESCE(station_code, ''),
		COALESCE(operation_status, ''), COALESCE(station_status, ''),
		COALESCE(longitude, ''), COALESCE(latitude, '')
		FROM toll_stations`
	var args []interface{}
	if sectionID != "" {
		query += ` WHERE section_id = ?`
		args = append(args, sectionID)
	}
	query += ` ORDER BY toll_station_id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []TollStation
	for rows.Next() {
		var ts TollStation
		if err := rows.Scan(&ts.TollStationID, &ts.StationName, &ts.SectionID,
			&ts.StationType, &ts.StationCode, &ts.OperationStatus, &ts.StationStatus,
			&ts.Longitude, &ts.Latitude); err != nil {
			return nil, err
		}
		stations = append(stations, ts)
	}
	return stations, rows.Err()
}

func (db *DB) GetTollStation(stationID string) (*TollStation, error) {
	var ts TollStation
	err := db.QueryRow(`SELECT toll_station_id, station_name, section_id,
		COALESCE(station_type, ''), COALESCE(station_code, ''),
		COALESCE(operation_status, ''), COALESCE(station_status, ''),
		COALESCE(longitude, ''), COALESCE(latitude, '')
		FROM toll_stations WHERE toll_station_id = ?`, stationID).
		Scan(&ts.TollStationID, &ts.StationName, &ts.SectionID,
			&ts.StationType, &ts.StationCode, &ts.OperationStatus, &ts.StationStatus,
			&ts.Longitude, &ts.Latitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (db *DB) UpsertTollStation(ts TollStation) error {
	_, err := db.Exec(`INSERT INTO toll_stations
		(toll_station_id, station_name, section_id, station_type, station_code,
		 operation_status, station_status, longitude, latitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(toll_station_id) DO UPDATE SET
			station_name = excluded.station_name,
			section_id = excluded.section_id,
			station_type = excluded.station_type,
			station_code = excluded.station_code,
			operation_status = excluded.operation_status,
			station_status = excluded.station_status,
			longitude = excluded.longitude,
			latitude = excluded.latitude`,
		ts.TollStationID, ts.StationName, ts.SectionID, ts.StationType, ts.StationCode,
		ts.OperationStatus, ts.StationStatus, ts.Longitude, ts.Latitude)
	if err != nil {
		return fmt.Errorf("failed to upsert toll station %s: %w", ts.TollStationID, err)
	}
	return nil
}

func (db *DB) DeleteTollStation(stationID string) error {
	res, err := db.Exec(`DELETE FROM toll_stations WHERE toll_station_id = ?`, stationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListGantries returns gantries, optionally filtered by section.
func (db *DB) ListGantries(sectionID string, limit, offset int) ([]Gantry, error) {
	query := `SELECT gantry_id, gantry_name, section_id,
		COALESCE(gantry_type, ''), COALESCE(gantry_status, ''), COALESCE(direction, ''),
		COALESCE(lane_count, 0), COALESCE(start_station_id, ''), COALESCE(end_station_id, ''),
		COALESCE(neighbor_id, ''), COALESCE(reverse_id, '')
		FROM gantries`
	var args []interface{}
	if sectionID != "" {
		query += ` WHERE section_id = ?`
		args = append(args, sectionID)
	}
	query += ` ORDER BY gantry_id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gantries []Gantry
	for rows.Next() {
		var g Gantry
		if err := rows.Scan(&g.GantryID, &g.GantryName, &g.SectionID,
			&g.GantryType, &g.GantryStatus, &g.Direction, &g.LaneCount,
			&g.StartStationID, &g.EndStationID, &g.NeighborID, &g.ReverseID); err != nil {
			return nil, err
		}
		gantries = append(gantries, g)
	}
	return gantries, rows.Err()
}

func (db *DB) GetGantry(gantryID string) (*Gantry, error) {
	var g Gantry
	err := db.QueryRow(`SELECT gantry_id, gantry_name, section_id,
		COALESCE(gantry_type, ''), COALESCE(gantry_status, ''), COALESCE(direction, ''),
		COALESCE(lane_count, 0), COALESCE(start_station_id, ''), COALESCE(end_station_id, ''),
		COALESCE(neighbor_id, ''), COALESCE(reverse_id, '')
		FROM gantries WHERE gantry_id = ?`, gantryID).
		Scan(&g.GantryID, &g.GantryName, &g.SectionID,
			&g.GantryType, &g.GantryStatus, &g.Direction, &g.LaneCount,
			&g.StartStationID, &g.EndStationID, &g.NeighborID, &g.ReverseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (db *DB) UpsertGantry(g Gantry) error {
	_, err := db.Exec(`INSERT INTO gantries
		(gantry_id, gantry_name, section_id, gantry_type, gantry_status, direction,
		 lane_count, start_station_id, end_station_id, neighbor_id, reverse_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gantry_id) DO UPDATE SET
			gantry_name = excluded.gantry_name,
			section_id = excluded.section_id,
			gantry_type = excluded.gantry_type,
			gantry_status = excluded.gantry_status,
			direction = excluded.direction,
			lane_count = excluded.lane_count,
			start_station_id = excluded.start_station_id,
			end_station_id = excluded.end_station_id,
			neighbor_id = excluded.neighbor_id,
			reverse_id = excluded.reverse_id`,
		g.GantryID, g.GantryName, g.SectionID, g.GantryType, g.GantryStatus, g.Direction,
		g.LaneCount, g.StartStationID, g.EndStationID, g.NeighborID, g.ReverseID)
	if err != nil {
		return fmt.Errorf("failed to upsert gantry %s: %w", g.GantryID, err)
	}
	return nil
}

func (db *DB) DeleteGantry(gantryID string) error {
	res, err := db.Exec(`DELETE FROM gantries WHERE gantry_id = ?`, gantryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
