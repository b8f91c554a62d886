package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/tollgate-data/gantryflow/internal/db"
)

var testDay = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, apiKey string) (*Server, *db.DB) {
	t.Helper()

	database, err := db.OpenDB(filepath.Join(t.TempDir(), t.Name()+".db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	migrationsFS, err := db.MigrationsFS()
	if err != nil {
		t.Fatalf("Failed to get migrations filesystem: %v", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return NewServer(database, apiKey, 5, nil, nil), database
}

func doRequest(t *testing.T, s *Server, method, target, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := doRequest(t, s, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["status"] != "ok" || payload["service"] != "gantryflow" {
		t.Errorf("Unexpected health payload: %v", payload)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	// Keyed route without key.
	rec := doRequest(t, s, http.MethodGet, "/api/sections", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["success"] != false || payload["error"] == "" {
		t.Errorf("Expected error envelope, got %v", payload)
	}

	// Wrong key.
	rec = doRequest(t, s, http.MethodGet, "/api/sections", "wrong", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", rec.Code)
	}

	// Correct key.
	rec = doRequest(t, s, http.MethodGet, "/api/sections", "secret", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d", rec.Code)
	}

	// Public route needs no key.
	rec = doRequest(t, s, http.MethodGet, "/api/statistics/revenue", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on public route, got %d", rec.Code)
	}
}

func TestSectionEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := doRequest(t, s, http.MethodPost, "/api/sections", "",
		db.Section{SectionID: "S001", SectionName: "North Ring"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Upsert failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/sections/S001", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Get failed: %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	data := payload["data"].(map[string]interface{})
	if data["section_name"] != "North Ring" {
		t.Errorf("Unexpected section: %v", data)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/sections/NOPE", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing section, got %d", rec.Code)
	}

	// Missing required fields.
	rec = doRequest(t, s, http.MethodPost, "/api/sections", "", db.Section{SectionID: "S002"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/sections/S001", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Delete failed: %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, "/api/sections/S001", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %d", rec.Code)
	}
}

func TestListExitTransactionsEndpoint(t *testing.T) {
	s, database := newTestServer(t, "")

	txns := []db.ExitTransaction{
		{ExitTransactionID: "X1", PassID: "P1", SectionID: "S001", VehicleClass: "11",
			TollMoney: 10, ExitTime: testDay.Add(8 * time.Hour)},
		{ExitTransactionID: "X2", PassID: "P2", SectionID: "S001", VehicleClass: "1",
			TollMoney: 5, ExitTime: testDay.Add(9 * time.Hour)},
	}
	if err := database.InsertExitTransactionsBatch(context.Background(), txns); err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet,
		"/api/transactions/exit?start_date=2023-06-01&end_date=2023-06-01&vehicle_class=11", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["total"].(float64) != 1 || payload["count"].(float64) != 1 {
		t.Errorf("Expected 1 filtered row, got %v", payload)
	}

	// Bad date.
	rec = doRequest(t, s, http.MethodGet, "/api/transactions/exit?start_date=junk", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", rec.Code)
	}

	// Bad limit.
	rec = doRequest(t, s, http.MethodGet, "/api/transactions/exit?limit=-3", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestAuditMiddleware(t *testing.T) {
	s, database := newTestServer(t, "key")

	rec := doRequest(t, s, http.MethodGet, "/api/statistics/revenue?start_date=2023-06-01", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	traceID := rec.Header().Get("X-Trace-Id")
	if traceID == "" {
		t.Fatal("Expected X-Trace-Id header")
	}

	// Unauthorized keyed request is audited too.
	doRequest(t, s, http.MethodGet, "/api/sections", "", nil)
	// Authenticated request flagged as such.
	doRequest(t, s, http.MethodGet, "/api/sections", "key", nil)

	logs, total, err := database.ListAuditLogs(db.AuditFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("Expected 3 audit rows, got %d", total)
	}
	// Newest first: authed 200, unauthed 401, public 200.
	if !logs[0].Authenticated || logs[0].Status != 200 {
		t.Errorf("Expected newest row authenticated 200, got %+v", logs[0])
	}
	if logs[1].Status != 401 || logs[1].Authenticated {
		t.Errorf("Expected 401 unauthenticated row, got %+v", logs[1])
	}
	if logs[2].TraceID != traceID {
		t.Errorf("Expected trace id %s, got %s", traceID, logs[2].TraceID)
	}
	if logs[2].Query != "start_date=2023-06-01" {
		t.Errorf("Expected recorded query string, got %q", logs[2].Query)
	}
}

func TestAuditEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "")

	// Generate some traffic first.
	doRequest(t, s, http.MethodGet, "/api/health", "", nil)
	doRequest(t, s, http.MethodGet, "/api/statistics/revenue", "", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/audit/logs", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["total"].(float64) < 2 {
		t.Errorf("Expected at least 2 audit rows, got %v", payload["total"])
	}

	rec = doRequest(t, s, http.MethodGet, "/api/audit/statistics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	stats := decodeBody(t, rec)["data"].(map[string]interface{})
	if stats["total_requests"].(float64) < 2 {
		t.Errorf("Expected request count, got %v", stats)
	}
}

func TestMaskSectionID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"S0014530010", "S*********0"},
		{"AB", "AB"},
		{"A", "A"},
		{"", ""},
		{"ABC", "A*C"},
	}
	for _, tt := range tests {
		if got := maskSectionID(tt.in); got != tt.want {
			t.Errorf("maskSectionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
