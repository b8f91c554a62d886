package api

import (
	"fmt"
	"net/http"
)

func (s *Server) listEntranceTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.db.ListEntranceTransactions(f)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list entrance transactions: %v", err))
		return
	}
	s.writePage(w, rows, len(rows), total, f.Limit, f.Offset)
}

func (s *Server) listExitTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.db.ListExitTransactions(f)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list exit transactions: %v", err))
		return
	}
	s.writePage(w, rows, len(rows), total, f.Limit, f.Offset)
}

func (s *Server) listGantryTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.db.ListGantryTransactions(f)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list gantry transactions: %v", err))
		return
	}
	s.writePage(w, rows, len(rows), total, f.Limit, f.Offset)
}
