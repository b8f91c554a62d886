package api

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tollgate-data/gantryflow/internal/anonymize"
)

// dpEpsilon is the differential-privacy budget for the noised hourly flow.
// Sensitivity is 1 (one vehicle changes one hourly count by one).
const dpEpsilon = 1.0

// noisedHourCount is one hourly truck count with Laplace noise applied.
type noisedHourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

func (s *Server) truckHourlyFlow(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.TruckHourlyFlow(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute truck hourly flow: %v", err))
		return
	}

	laplace := distuv.Laplace{
		Mu:    0,
		Scale: 1.0 / dpEpsilon,
		Src:   rand.NewSource(uint64(time.Now().UnixNano())),
	}
	noised := make([]noisedHourCount, len(rows))
	for i, row := range rows {
		n := int(math.Round(float64(row.Count) + laplace.Rand()))
		if n < 0 {
			n = 0
		}
		noised[i] = noisedHourCount{Hour: row.Hour, Count: n}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    noised,
		"count":   len(noised),
		"privacy_protection": map[string]interface{}{
			"mechanism": "laplace",
			"epsilon":   dpEpsilon,
			"noised":    true,
		},
	})
}

func (s *Server) truckExitHourlyFlow(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.TruckExitHourlyFlow(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute truck exit hourly flow: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

// truckExitFlowAnonymized releases truck exit records k-anonymized over
// their location and exit-time quasi-identifiers.
func (s *Server) truckExitFlowAnonymized(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	k := s.defaultK
	if v := r.URL.Query().Get("k"); v != "" {
		k, err = strconv.Atoi(v)
		if err != nil || k < 2 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid k %q (want integer >= 2)", v))
			return
		}
	}

	records, err := s.db.ExitRecordsForAnonymization(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load exit records: %v", err))
		return
	}
	if n := len(records); n > 0 && n < k {
		log.Printf("anonymized release: batch size %d below k=%d; releasing one under-sized class", n, k)
	}

	result, err := anonymize.New(k).Anonymize(records)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to anonymize records: %v", err))
		return
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if a.SectionRegion != b.SectionRegion {
			return a.SectionRegion < b.SectionRegion
		}
		return a.TimePeriod < b.TimePeriod
	})

	retention := 1.0
	if result.TotalRecords > 0 {
		retention = float64(result.TotalRecords-result.SuppressedCount) / float64(result.TotalRecords)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result.Records,
		"count":   len(result.Records),
		"privacy_protection": map[string]interface{}{
			"algorithm":           anonymize.Algorithm,
			"k":                   k,
			"total_records":       result.TotalRecords,
			"equivalence_classes": result.EquivalenceClasses,
			"suppressed_count":    result.SuppressedCount,
			"retention_rate":      retention,
		},
	})
}

// maskedRateRow is a per-section rate with the section id masked.
type maskedRateRow struct {
	SectionID string  `json:"section_id"`
	Total     int     `json:"total"`
	Matched   int     `json:"matched"`
	Rate      float64 `json:"rate"`
}

func (s *Server) truckOverweightRate(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.OverweightRateBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute overweight rate: %v", err))
		return
	}
	masked := make([]maskedRateRow, len(rows))
	for i, row := range rows {
		masked[i] = maskedRateRow{
			SectionID: maskSectionID(row.SectionID),
			Total:     row.Total,
			Matched:   row.Overweight,
			Rate:      row.Rate,
		}
	}
	s.writeData(w, masked, len(masked))
}

func (s *Server) truckDiscountRate(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.DiscountRateBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute discount rate: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

func (s *Server) truckAvgTollFee(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.AvgTollFeeBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute average toll fee: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

func (s *Server) truckAvgTravelTime(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.AvgTravelTimeBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute average travel time: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

func (s *Server) truckPeakHours(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.PeakHoursBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute peak hours: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}

func (s *Server) truckAvgAxleCount(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.AvgAxleCountBySection(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute average axle count: %v", err))
		return
	}
	s.writeData(w, rows, len(rows))
}
