package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tollgate-data/gantryflow/internal/agent"
	"github.com/tollgate-data/gantryflow/internal/db"
	"github.com/tollgate-data/gantryflow/internal/httputil"
)

// chatReply wraps content in an OpenAI-style chat completion body.
func chatReply(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal chat reply: %v", err)
	}
	return string(body)
}

func newAgentServer(t *testing.T, mock *httputil.MockHTTPClient) (*Server, *db.DB) {
	t.Helper()
	s, database := newTestServer(t, "")
	client := agent.NewClient("https://model.example.com/v1", "test-model", "test-key", 5*time.Second, mock)
	s.sqlAgent = agent.NewSQLAgent(client, database, 100, 500)
	s.planner = agent.NewPlanner(client)
	return s, database
}

func TestAgentSQLGenerate(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, chatReply(t, `{
		"sql": "SELECT section_id, COUNT(*) AS n FROM exit_transactions GROUP BY section_id",
		"explanation": "counts exits per section",
		"query_type": "aggregate",
		"estimated_rows": 10
	}`))
	s, _ := newAgentServer(t, mock)

	rec := doRequest(t, s, http.MethodPost, "/api/ai/sql/generate", "",
		agentQuestion{Question: "how many exits per section?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	plan := payload["plan"].(map[string]interface{})
	sql := plan["sql"].(string)
	// The guard appends a LIMIT when the model omits one.
	if !strings.Contains(strings.ToUpper(sql), "LIMIT 100") {
		t.Errorf("Expected guarded SQL with injected limit, got %q", sql)
	}
}

func TestAgentSQLGenerateRejectsWrites(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, chatReply(t, `{
		"sql": "DELETE FROM exit_transactions",
		"explanation": "",
		"query_type": "write",
		"estimated_rows": 0
	}`))
	s, _ := newAgentServer(t, mock)

	rec := doRequest(t, s, http.MethodPost, "/api/ai/sql/generate", "",
		agentQuestion{Question: "delete everything"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for rejected SQL, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAgentSQLRun(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, chatReply(t, "```json\n{\"sql\": \"SELECT section_id, section_name FROM sections ORDER BY section_id\", \"explanation\": \"lists sections\", \"query_type\": \"list\", \"estimated_rows\": 2}\n```"))
	s, database := newAgentServer(t, mock)

	for _, sec := range []db.Section{
		{SectionID: "S001", SectionName: "North Ring"},
		{SectionID: "S002", SectionName: "South Spur"},
	} {
		if err := database.UpsertSection(sec); err != nil {
			t.Fatalf("Failed to seed section: %v", err)
		}
	}

	rec := doRequest(t, s, http.MethodPost, "/api/ai/sql", "",
		agentQuestion{Question: "list the sections"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["count"].(float64) != 2 {
		t.Errorf("Expected 2 rows, got %v", payload["count"])
	}
	rows := payload["rows"].([]interface{})
	first := rows[0].(map[string]interface{})
	if first["section_id"] != "S001" {
		t.Errorf("Unexpected first row: %v", first)
	}
}

func TestAgentEndpointsUnavailableWithoutAgent(t *testing.T) {
	s, _ := newTestServer(t, "")

	for _, path := range []string{"/api/ai/sql/generate", "/api/ai/sql", "/api/agent/query"} {
		rec := doRequest(t, s, http.MethodPost, path, "", agentQuestion{Question: "anything"})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}

func TestAgentQueryFansOut(t *testing.T) {
	// Model call fails; the planner falls back to keyword rules and the
	// handler still fans out to the matching endpoint.
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusBadRequest, `{"error": {"message": "bad request", "type": "invalid_request_error"}}`)
	s, _ := newAgentServer(t, mock)

	rec := doRequest(t, s, http.MethodPost, "/api/agent/query", "",
		agentQuestion{Question: "how much revenue did we earn?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["source"] != "rules" {
		t.Errorf("Expected rules fallback, got %v", payload["source"])
	}
	results := payload["results"].([]interface{})
	if len(results) == 0 {
		t.Fatal("Expected at least one planned call")
	}
	entry := results[0].(map[string]interface{})
	if entry["path"] != "/api/statistics/revenue" {
		t.Errorf("Expected revenue endpoint, got %v", entry["path"])
	}
	if _, ok := entry["result"]; !ok {
		t.Errorf("Expected embedded result, got %v", entry)
	}
}

func TestAgentQueryRejectsEmptyQuestion(t *testing.T) {
	s, _ := newAgentServer(t, httputil.NewMockHTTPClient())

	rec := doRequest(t, s, http.MethodPost, "/api/agent/query", "", agentQuestion{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty question, got %d", rec.Code)
	}
}
