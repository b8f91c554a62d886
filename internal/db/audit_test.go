package db

import (
	"context"
	"testing"
)

func insertTestAuditLogs(t *testing.T, database *DB) {
	t.Helper()
	logs := []AuditLog{
		{TraceID: "t1", Method: "GET", Path: "/api/sections", Status: 200, DurationMS: 1.5, ClientAddr: "10.0.0.1", Authenticated: true},
		{TraceID: "t2", Method: "GET", Path: "/api/sections", Status: 200, DurationMS: 2.5, ClientAddr: "10.0.0.2"},
		{TraceID: "t3", Method: "GET", Path: "/api/statistics/revenue", Status: 200, DurationMS: 4.0},
		{TraceID: "t4", Method: "POST", Path: "/api/sections", Status: 401, DurationMS: 0.5, Error: "invalid API key"},
	}
	for _, a := range logs {
		if err := database.InsertAuditLog(context.Background(), a); err != nil {
			t.Fatalf("InsertAuditLog failed: %v", err)
		}
	}
}

func TestListAuditLogs(t *testing.T) {
	database := newTestDB(t)
	insertTestAuditLogs(t, database)

	all, total, err := database.ListAuditLogs(AuditFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Fatalf("Expected 4 logs, got %d / total %d", len(all), total)
	}
	// Newest first.
	if all[0].TraceID != "t4" {
		t.Errorf("Expected t4 first, got %s", all[0].TraceID)
	}
	if all[0].Error != "invalid API key" {
		t.Errorf("Expected error message, got %q", all[0].Error)
	}
	if all[0].CreatedAt.IsZero() {
		t.Error("created_at should be populated by the schema default")
	}

	byPath, total, err := database.ListAuditLogs(AuditFilter{Path: "/api/statistics", Limit: 10})
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	if total != 1 || len(byPath) != 1 || byPath[0].TraceID != "t3" {
		t.Errorf("Expected only t3 for path prefix, got %+v", byPath)
	}

	byStatus, total, err := database.ListAuditLogs(AuditFilter{Status: 401, Limit: 10})
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	if total != 1 || len(byStatus) != 1 || byStatus[0].TraceID != "t4" {
		t.Errorf("Expected only t4 for status 401, got %+v", byStatus)
	}
	if byStatus[0].Authenticated {
		t.Error("t4 should not be marked authenticated")
	}
}

func TestGetAuditStatistics(t *testing.T) {
	database := newTestDB(t)
	insertTestAuditLogs(t, database)

	stats, err := database.GetAuditStatistics()
	if err != nil {
		t.Fatalf("GetAuditStatistics failed: %v", err)
	}
	if stats.TotalRequests != 4 {
		t.Errorf("Expected 4 requests, got %d", stats.TotalRequests)
	}
	if stats.ByStatusClass["2xx"] != 3 || stats.ByStatusClass["4xx"] != 1 {
		t.Errorf("Unexpected status classes: %+v", stats.ByStatusClass)
	}
	wantAvg := (1.5 + 2.5 + 4.0 + 0.5) / 4
	if diff := stats.AvgDurationMS - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected avg duration %v, got %v", wantAvg, stats.AvgDurationMS)
	}
	if len(stats.TopPaths) == 0 || stats.TopPaths[0].Path != "/api/sections" || stats.TopPaths[0].Count != 3 {
		t.Errorf("Unexpected top paths: %+v", stats.TopPaths)
	}
}

func TestGetAuditStatisticsEmpty(t *testing.T) {
	database := newTestDB(t)

	stats, err := database.GetAuditStatistics()
	if err != nil {
		t.Fatalf("GetAuditStatistics failed: %v", err)
	}
	if stats.TotalRequests != 0 || stats.AvgDurationMS != 0 {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}
