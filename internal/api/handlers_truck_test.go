package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tollgate-data/gantryflow/internal/db"
)

// seedTruckExits inserts n truck exit transactions spread over the window
// [first, first+45m) in one section.
func seedTruckExits(t *testing.T, database *db.DB, sectionID string, n int, first time.Time) {
	t.Helper()
	txns := make([]db.ExitTransaction, n)
	for i := 0; i < n; i++ {
		txns[i] = db.ExitTransaction{
			ExitTransactionID:   fmt.Sprintf("X-%s-%d", sectionID, i),
			PassID:              fmt.Sprintf("P-%s-%d", sectionID, i),
			SectionID:           sectionID,
			VehicleClass:        "11",
			VehiclePlateColorID: "1",
			AxleCount:           "2",
			TotalLimit:          "18000",
			TotalWeight:         "12000",
			CardType:            "1",
			PayType:             "1",
			TollMoney:           40 + float64(i),
			RealMoney:           40 + float64(i),
			ExitTime:            first.Add(time.Duration(i*3) * time.Minute),
		}
	}
	if err := database.InsertExitTransactionsBatch(context.Background(), txns); err != nil {
		t.Fatalf("Failed to seed truck exits: %v", err)
	}
}

func TestTruckHourlyFlowNoised(t *testing.T) {
	s, database := newTestServer(t, "")

	txns := []db.GantryTransaction{
		{GantryTransactionID: "G1", GantryID: "GT1", SectionID: "S001", PassID: "P1",
			VehicleType: "11", PayFee: 300, TransactionTime: testDay.Add(8 * time.Hour),
			EntranceTime: testDay.Add(7*time.Hour + 30*time.Minute)},
		{GantryTransactionID: "G2", GantryID: "GT1", SectionID: "S001", PassID: "P2",
			VehicleType: "12", PayFee: 420, TransactionTime: testDay.Add(8*time.Hour + 20*time.Minute),
			EntranceTime: testDay.Add(7*time.Hour + 50*time.Minute)},
	}
	if err := database.InsertGantryTransactionsBatch(context.Background(), txns); err != nil {
		t.Fatalf("Failed to seed gantry transactions: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet,
		"/api/analytics/truck/hourly-flow?start_date=2023-06-01&end_date=2023-06-01", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)

	priv, ok := payload["privacy_protection"].(map[string]interface{})
	if !ok {
		t.Fatalf("Missing privacy_protection in %v", payload)
	}
	if priv["mechanism"] != "laplace" || priv["noised"] != true {
		t.Errorf("Unexpected privacy metadata: %v", priv)
	}

	// Noise is random so exact counts are unknowable, but clamped non-negative.
	for _, row := range payload["data"].([]interface{}) {
		count := row.(map[string]interface{})["count"].(float64)
		if count < 0 {
			t.Errorf("Expected non-negative noised count, got %v", count)
		}
	}
}

func TestTruckExitFlowKAnonymized(t *testing.T) {
	s, database := newTestServer(t, "")

	// 12 truck exits in one section within one morning: plenty for k=5,
	// should generalize to a single region/period class.
	seedTruckExits(t, database, "5615530120", 12, testDay.Add(8*time.Hour))

	rec := doRequest(t, s, http.MethodGet,
		"/api/analytics/truck/exit-hourly-flow-k-anonymized?start_date=2023-06-01&end_date=2023-06-01&k=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)

	priv := payload["privacy_protection"].(map[string]interface{})
	if priv["k"].(float64) != 5 {
		t.Errorf("Expected k=5, got %v", priv["k"])
	}
	if priv["total_records"].(float64) != 12 {
		t.Errorf("Expected 12 total records, got %v", priv["total_records"])
	}
	if priv["suppressed_count"].(float64) != 0 {
		t.Errorf("Expected no suppression, got %v", priv["suppressed_count"])
	}
	if priv["retention_rate"].(float64) != 1.0 {
		t.Errorf("Expected full retention, got %v", priv["retention_rate"])
	}

	data := payload["data"].([]interface{})
	if len(data) != 12 {
		t.Fatalf("Expected 12 released records, got %d", len(data))
	}
	for _, raw := range data {
		row := raw.(map[string]interface{})
		if row["section_region"] != "561-region" {
			t.Errorf("Expected section_region 561-region, got %v", row["section_region"])
		}
		if row["time_period"] != "morning" {
			t.Errorf("Expected time_period morning, got %v", row["time_period"])
		}
		if row["k_anonymized"] != true {
			t.Errorf("Expected k_anonymized flag, got %v", row)
		}
	}

	// The release must not leak the raw quasi-identifiers.
	body := rec.Body.String()
	if strings.Contains(body, "5615530120") {
		t.Error("Response leaks raw section id")
	}
	if strings.Contains(body, "2023-06-01T08") {
		t.Error("Response leaks raw exit timestamps")
	}
}

func TestTruckExitFlowKAnonymizedSmallBatch(t *testing.T) {
	s, database := newTestServer(t, "")

	// Fewer records than k: released best-effort as one under-sized class.
	seedTruckExits(t, database, "5615530120", 3, testDay.Add(8*time.Hour))

	rec := doRequest(t, s, http.MethodGet,
		"/api/analytics/truck/exit-hourly-flow-k-anonymized?start_date=2023-06-01&end_date=2023-06-01&k=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	priv := payload["privacy_protection"].(map[string]interface{})
	if priv["suppressed_count"].(float64) != 0 {
		t.Errorf("Expected no suppression for small batch, got %v", priv["suppressed_count"])
	}
	if payload["count"].(float64) != 3 {
		t.Errorf("Expected 3 released records, got %v", payload["count"])
	}
}

func TestTruckExitFlowKAnonymizedBadK(t *testing.T) {
	s, _ := newTestServer(t, "")

	for _, k := range []string{"1", "0", "-2", "abc"} {
		rec := doRequest(t, s, http.MethodGet,
			"/api/analytics/truck/exit-hourly-flow-k-anonymized?k="+k, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("k=%s: expected 400, got %d", k, rec.Code)
		}
	}
}

func TestTruckOverweightRateMasksSections(t *testing.T) {
	s, database := newTestServer(t, "")

	txns := []db.ExitTransaction{
		{ExitTransactionID: "X1", PassID: "P1", SectionID: "S0014530010", VehicleClass: "11",
			TotalLimit: "18000", TotalWeight: "20000", ExitTime: testDay.Add(8 * time.Hour)},
		{ExitTransactionID: "X2", PassID: "P2", SectionID: "S0014530010", VehicleClass: "11",
			TotalLimit: "18000", TotalWeight: "12000", ExitTime: testDay.Add(9 * time.Hour)},
	}
	if err := database.InsertExitTransactionsBatch(context.Background(), txns); err != nil {
		t.Fatalf("Failed to seed exits: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet,
		"/api/analytics/truck/overweight-rate?start_date=2023-06-01&end_date=2023-06-01", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	data := payload["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("Expected 1 section row, got %d", len(data))
	}
	row := data[0].(map[string]interface{})
	if row["section_id"] != "S*********0" {
		t.Errorf("Expected masked section id, got %v", row["section_id"])
	}
	if row["total"].(float64) != 2 || row["matched"].(float64) != 1 {
		t.Errorf("Unexpected counts: %v", row)
	}
	if row["rate"].(float64) != 0.5 {
		t.Errorf("Expected rate 0.5, got %v", row["rate"])
	}
	if strings.Contains(rec.Body.String(), "S0014530010") {
		t.Error("Response leaks raw section id")
	}
}

func TestChartsRenderHTML(t *testing.T) {
	s, database := newTestServer(t, "")
	seedTruckExits(t, database, "5615530120", 6, testDay.Add(8*time.Hour))

	for _, path := range []string{
		"/debug/charts/hourly-flow?start_date=2023-06-01&end_date=2023-06-01",
		"/debug/charts/equivalence-classes?start_date=2023-06-01&end_date=2023-06-01",
	} {
		rec := doRequest(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
			continue
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: expected HTML, got %q", path, ct)
		}
		if !strings.Contains(rec.Body.String(), "echarts") {
			t.Errorf("%s: expected chart markup in body", path)
		}
	}
}
