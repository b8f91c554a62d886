package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tollgate-data/gantryflow/internal/db"
)

const dateLayout = "2006-01-02"

// parseDateRange reads start_date and end_date (YYYY-MM-DD). A missing end
// defaults to now; a missing start defaults to 30 days before the end. The
// end is inclusive of its whole day.
func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	endStr := r.URL.Query().Get("end_date")
	if endStr == "" {
		end = time.Now().UTC()
	} else {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid end_date %q (want YYYY-MM-DD)", endStr)
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	startStr := r.URL.Query().Get("start_date")
	if startStr == "" {
		start = end.Add(-30 * 24 * time.Hour)
	} else {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid start_date %q (want YYYY-MM-DD)", startStr)
		}
	}

	if start.After(end) {
		return start, end, fmt.Errorf("start_date is after end_date")
	}
	return start, end, nil
}

// parseLimitOffset reads limit (default 100, cap 1000) and offset.
func parseLimitOffset(r *http.Request) (limit, offset int, err error) {
	limit = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		if limit > 1000 {
			limit = 1000
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
	}
	return limit, offset, nil
}

// parseTransactionFilter assembles the shared list filter from query
// params.
func parseTransactionFilter(r *http.Request) (db.TransactionFilter, error) {
	var f db.TransactionFilter

	start, end, err := parseDateRange(r)
	if err != nil {
		return f, err
	}
	f.Start = start
	f.End = end
	f.SectionID = r.URL.Query().Get("section_id")
	if class := r.URL.Query().Get("vehicle_class"); class != "" {
		f.VehicleClasses = []string{class}
	}

	f.Limit, f.Offset, err = parseLimitOffset(r)
	return f, err
}

// maskSectionID hides the middle of a section id, keeping the first and
// last character.
func maskSectionID(id string) string {
	runes := []rune(id)
	if len(runes) <= 2 {
		return id
	}
	masked := make([]rune, len(runes))
	masked[0] = runes[0]
	masked[len(runes)-1] = runes[len(runes)-1]
	for i := 1; i < len(runes)-1; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
