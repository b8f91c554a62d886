package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tollgate-data/gantryflow/internal/agent"
	"github.com/tollgate-data/gantryflow/internal/db"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db       *db.DB
	apiKey   string
	defaultK int
	sqlAgent *agent.SQLAgent
	planner  *agent.Planner
}

// NewServer wires the HTTP surface. apiKey may be empty (key auth
// disabled, development only); sqlAgent and planner may be nil, disabling
// the agent routes.
func NewServer(database *db.DB, apiKey string, defaultK int, sqlAgent *agent.SQLAgent, planner *agent.Planner) *Server {
	if defaultK < 1 {
		defaultK = 5
	}
	return &Server{
		db:       database,
		apiKey:   apiKey,
		defaultK: defaultK,
		sqlAgent: sqlAgent,
		planner:  planner,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux registers every API route. Raw-data routes go through the API
// key check; every /api/ route goes through the audit recorder.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	public := func(h http.HandlerFunc) http.Handler { return s.audit(h) }
	keyed := func(h http.HandlerFunc) http.Handler { return s.audit(s.requireKey(h)) }

	mux.Handle("GET /api/health", public(s.health))

	// Reference data
	mux.Handle("GET /api/sections", keyed(s.listSections))
	mux.Handle("GET /api/sections/{id}", keyed(s.getSection))
	mux.Handle("POST /api/sections", keyed(s.upsertSection))
	mux.Handle("DELETE /api/sections/{id}", keyed(s.deleteSection))
	mux.Handle("GET /api/toll-stations", keyed(s.listTollStations))
	mux.Handle("GET /api/toll-stations/{id}", keyed(s.getTollStation))
	mux.Handle("POST /api/toll-stations", keyed(s.upsertTollStation))
	mux.Handle("DELETE /api/toll-stations/{id}", keyed(s.deleteTollStation))
	mux.Handle("GET /api/gantries", keyed(s.listGantries))
	mux.Handle("GET /api/gantries/{id}", keyed(s.getGantry))
	mux.Handle("POST /api/gantries", keyed(s.upsertGantry))
	mux.Handle("DELETE /api/gantries/{id}", keyed(s.deleteGantry))

	// Raw transactions
	mux.Handle("GET /api/transactions/entrance", keyed(s.listEntranceTransactions))
	mux.Handle("GET /api/transactions/exit", keyed(s.listExitTransactions))
	mux.Handle("GET /api/transactions/gantry", keyed(s.listGantryTransactions))

	// Statistics (public)
	mux.Handle("GET /api/statistics/traffic-flow", public(s.trafficFlow))
	mux.Handle("GET /api/statistics/revenue", public(s.revenue))
	mux.Handle("GET /api/statistics/vehicle-distribution", public(s.vehicleDistribution))

	// Truck analytics (public)
	mux.Handle("GET /api/analytics/truck/hourly-flow", public(s.truckHourlyFlow))
	mux.Handle("GET /api/analytics/truck/exit-hourly-flow", public(s.truckExitHourlyFlow))
	mux.Handle("GET /api/analytics/truck/exit-hourly-flow-k-anonymized", public(s.truckExitFlowAnonymized))
	mux.Handle("GET /api/analytics/truck/overweight-rate", public(s.truckOverweightRate))
	mux.Handle("GET /api/analytics/truck/discount-rate", public(s.truckDiscountRate))
	mux.Handle("GET /api/analytics/truck/avg-toll-fee", public(s.truckAvgTollFee))
	mux.Handle("GET /api/analytics/truck/avg-travel-time", public(s.truckAvgTravelTime))
	mux.Handle("GET /api/analytics/truck/peak-hours", public(s.truckPeakHours))
	mux.Handle("GET /api/analytics/truck/avg-axle-count", public(s.truckAvgAxleCount))

	// Agent
	mux.Handle("POST /api/ai/sql/generate", public(s.agentSQLGenerate))
	mux.Handle("POST /api/ai/sql", public(s.agentSQLRun))
	mux.Handle("POST /api/agent/query", public(s.agentQuery))

	// Audit (keyed)
	mux.Handle("GET /api/audit/logs", keyed(s.listAuditLogs))
	mux.Handle("GET /api/audit/statistics", keyed(s.auditStatistics))

	// Debug charts (public, outside the audit scope)
	mux.HandleFunc("GET /debug/charts/hourly-flow", s.chartHourlyFlow)
	mux.HandleFunc("GET /debug/charts/equivalence-classes", s.chartEquivalenceClasses)

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// writeData wraps a result set in the standard success envelope.
func (s *Server) writeData(w http.ResponseWriter, data interface{}, count int) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
		"count":   count,
	})
}

// writePage wraps a paginated result set in the standard success envelope.
func (s *Server) writePage(w http.ResponseWriter, data interface{}, count, total, limit, offset int) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
		"count":   count,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
