package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/tollgate-data/gantryflow/internal/agent"
)

type agentQuestion struct {
	Question string `json:"question"`
}

func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var q agentQuestion
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	if q.Question == "" {
		s.writeJSONError(w, http.StatusBadRequest, "question is required")
		return "", false
	}
	return q.Question, true
}

// agentSQLGenerate turns a question into a guarded SQL plan without
// executing it.
func (s *Server) agentSQLGenerate(w http.ResponseWriter, r *http.Request) {
	if s.sqlAgent == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "SQL agent not configured")
		return
	}
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	plan, err := s.sqlAgent.Generate(r.Context(), question)
	if err != nil {
		s.writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("failed to generate SQL: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"plan":    plan,
	})
}

// agentSQLRun generates a plan and executes its guarded SQL.
func (s *Server) agentSQLRun(w http.ResponseWriter, r *http.Request) {
	if s.sqlAgent == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "SQL agent not configured")
		return
	}
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	plan, err := s.sqlAgent.Generate(r.Context(), question)
	if err != nil {
		s.writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("failed to generate SQL: %v", err))
		return
	}
	result, err := s.sqlAgent.Execute(r.Context(), plan.SQL)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to execute SQL: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"plan":    plan,
		"columns": result.Columns,
		"rows":    result.Rows,
		"count":   len(result.Rows),
	})
}

// agentQuery plans analytics endpoints for the question and fans out to
// the internal handlers, aggregating their JSON responses.
func (s *Server) agentQuery(w http.ResponseWriter, r *http.Request) {
	if s.planner == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "query planner not configured")
		return
	}
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	plan, err := s.planner.Plan(r.Context(), question)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to plan query: %v", err))
		return
	}

	results := make([]map[string]interface{}, 0, len(plan.Calls))
	for _, call := range plan.Calls {
		payload, err := s.executeInternal(r, call)
		entry := map[string]interface{}{"path": call.Path}
		if len(call.Params) > 0 {
			entry["params"] = call.Params
		}
		if err != nil {
			entry["error"] = err.Error()
		} else {
			entry["result"] = payload
		}
		results = append(results, entry)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"source":    plan.Source,
		"reasoning": plan.Reasoning,
		"results":   results,
	})
}

// executeInternal dispatches one planned call to this server's own mux
// and decodes the JSON payload.
func (s *Server) executeInternal(r *http.Request, call agent.PlannedCall) (interface{}, error) {
	values := url.Values{}
	for k, v := range call.Params {
		values.Set(k, v)
	}
	target := call.Path
	if len(values) > 0 {
		target += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	var payload interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("endpoint %s returned invalid JSON: %w", call.Path, err)
	}
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("endpoint %s returned status %d", call.Path, rec.Code)
	}
	return payload, nil
}
