package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tollgate-data/gantryflow/internal/db"
	"github.com/tollgate-data/gantryflow/internal/version"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "gantryflow",
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) listSections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.db.ListSections()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list sections: %v", err))
		return
	}
	s.writeData(w, sections, len(sections))
}

func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	section, err := s.db.GetSection(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "section not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get section: %v", err))
		return
	}
	s.writeData(w, section, 1)
}

func (s *Server) upsertSection(w http.ResponseWriter, r *http.Request) {
	var section db.Section
	if err := json.NewDecoder(r.Body).Decode(&section); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if section.SectionID == "" || section.SectionName == "" {
		s.writeJSONError(w, http.StatusBadRequest, "section_id and section_name are required")
		return
	}
	if err := s.db.UpsertSection(section); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to upsert section: %v", err))
		return
	}
	s.writeData(w, section, 1)
}

func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteSection(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "section not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete section: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) listTollStations(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	stations, err := s.db.ListTollStations(r.URL.Query().Get("section_id"), limit, offset)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list toll stations: %v", err))
		return
	}
	s.writeData(w, stations, len(stations))
}

func (s *Server) getTollStation(w http.ResponseWriter, r *http.Request) {
	station, err := s.db.GetTollStation(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "toll station not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get toll station: %v", err))
		return
	}
	s.writeData(w, station, 1)
}

func (s *Server) upsertTollStation(w http.ResponseWriter, r *http.Request) {
	var station db.TollStation
	if err := json.NewDecoder(r.Body).Decode(&station); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if station.TollStationID == "" || station.StationName == "" || station.SectionID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "toll_station_id, station_name, and section_id are required")
		return
	}
	if err := s.db.UpsertTollStation(station); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to upsert toll station: %v", err))
		return
	}
	s.writeData(w, station, 1)
}

func (s *Server) deleteTollStation(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteTollStation(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "toll station not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete toll station: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) listGantries(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	gantries, err := s.db.ListGantries(r.URL.Query().Get("section_id"), limit, offset)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list gantries: %v", err))
		return
	}
	s.writeData(w, gantries, len(gantries))
}

func (s *Server) getGantry(w http.ResponseWriter, r *http.Request) {
	gantry, err := s.db.GetGantry(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "gantry not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get gantry: %v", err))
		return
	}
	s.writeData(w, gantry, 1)
}

func (s *Server) upsertGantry(w http.ResponseWriter, r *http.Request) {
	var gantry db.Gantry
	if err := json.NewDecoder(r.Body).Decode(&gantry); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if gantry.GantryID == "" || gantry.GantryName == "" || gantry.SectionID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "gantry_id, gantry_name, and section_id are required")
		return
	}
	if err := s.db.UpsertGantry(gantry); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to upsert gantry: %v", err))
		return
	}
	s.writeData(w, gantry, 1)
}

func (s *Server) deleteGantry(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteGantry(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "gantry not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete gantry: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
