package api

import (
	"fmt"
	"net/http"
)

func (s *Server) trafficFlow(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.HourlyTrafficFlow(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute traffic flow: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

func (s *Server) revenue(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.RevenueBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute revenue: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

func (s *Server) vehicleDistribution(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.VehicleDistribution(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute vehicle distribution: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}
