package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tollgate-data/gantryflow/internal/db"
)

func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := db.AuditFilter{
		Path:   r.URL.Query().Get("path"),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status, err = strconv.Atoi(v)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", v))
			return
		}
	}

	logs, total, err := s.db.ListAuditLogs(f)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit logs: %v", err))
		return
	}
	s.writePage(w, logs, len(logs), total, f.Limit, f.Offset)
}

func (s *Server) auditStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetAuditStatistics()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute audit statistics: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
	})
}
